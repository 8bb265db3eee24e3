package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AttrKind discriminates the value held by an AttrValue.
type AttrKind int

const (
	AttrString AttrKind = iota
	AttrNumber
	AttrBool
	AttrMap
)

// AttrValue is one entry of a schema-less attribute bag. It is a small
// tagged union (string/number/bool/nested map) rather than an untyped
// blob so containment checks stay type-safe.
type AttrValue struct {
	Kind   AttrKind
	Str    string
	Num    float64
	Bool   bool
	Nested AttrBag
}

func StringAttr(s string) AttrValue  { return AttrValue{Kind: AttrString, Str: s} }
func NumberAttr(n float64) AttrValue { return AttrValue{Kind: AttrNumber, Num: n} }
func BoolAttr(b bool) AttrValue      { return AttrValue{Kind: AttrBool, Bool: b} }
func MapAttr(m AttrBag) AttrValue    { return AttrValue{Kind: AttrMap, Nested: m} }

// Equal reports deep equality of two attribute values.
func (v AttrValue) Equal(o AttrValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case AttrString:
		return v.Str == o.Str
	case AttrNumber:
		return v.Num == o.Num
	case AttrBool:
		return v.Bool == o.Bool
	case AttrMap:
		return v.Nested.Contains(o.Nested) && o.Nested.Contains(v.Nested)
	}
	return false
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AttrString:
		return json.Marshal(v.Str)
	case AttrNumber:
		return json.Marshal(v.Num)
	case AttrBool:
		return json.Marshal(v.Bool)
	case AttrMap:
		return json.Marshal(v.Nested)
	}
	return nil, fmt.Errorf("unknown attribute kind %d", v.Kind)
}

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := attrFromInterface(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func attrFromInterface(raw interface{}) (AttrValue, error) {
	switch t := raw.(type) {
	case string:
		return StringAttr(t), nil
	case float64:
		return NumberAttr(t), nil
	case bool:
		return BoolAttr(t), nil
	case map[string]interface{}:
		nested := make(AttrBag, len(t))
		for k, val := range t {
			av, err := attrFromInterface(val)
			if err != nil {
				return AttrValue{}, err
			}
			nested[k] = av
		}
		return MapAttr(nested), nil
	}
	return AttrValue{}, fmt.Errorf("unsupported attribute value type %T", raw)
}

// AttrBag is an open-ended key/value bag (features, market data). It
// round-trips through storage as JSON text.
type AttrBag map[string]AttrValue

// Contains reports whether every key/value pair of other is present in
// the bag with an equal value (JSON containment semantics).
func (b AttrBag) Contains(other AttrBag) bool {
	for k, want := range other {
		got, ok := b[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Value implements driver.Valuer. An empty bag stores as NULL.
func (b AttrBag) Value() (driver.Value, error) {
	if len(b) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (b *AttrBag) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	var data []byte
	switch t := src.(type) {
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		return fmt.Errorf("cannot scan %T into AttrBag", src)
	}
	if len(data) == 0 {
		*b = nil
		return nil
	}
	return json.Unmarshal(data, b)
}
