package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"janusprop/server/internal/auth"
	"janusprop/server/internal/errs"
	"janusprop/server/internal/models"
	"janusprop/server/internal/search"
)

// Database is the property store. Access predicates are evaluated here,
// on every query path, against the caller passed in explicitly; the SQL
// below only applies structured scoping, never authorization.
type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys so agent deletion clears weak references and
	// destroying a property cascades its insights.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

// storageErr folds driver failures into the retryable taxonomy bucket.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
}

// constraintViolated reports whether err is a SQLite constraint failure,
// such as inserting a duplicate primary key. Those are caller mistakes,
// not transient storage faults, and must not be surfaced as retryable.
func constraintViolated(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

const propertyColumns = `
	id, address, city, state, zip_code, property_type, property_subtype,
	bedrooms, bathrooms, square_feet, lot_size, year_built,
	list_price, estimated_value, last_sold_price, last_sold_date, tax_assessment,
	status, is_active, description, neighborhood, features, market_data,
	latitude, longitude, assigned_agent_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var p models.Property
	var bedrooms, squareFeet, lotSize, yearBuilt sql.NullInt64
	var bathrooms, listPrice, estimatedValue, lastSoldPrice, taxAssessment sql.NullFloat64
	var lastSoldDate sql.NullTime
	var latitude, longitude sql.NullFloat64
	var assignedAgentID sql.NullString

	err := row.Scan(
		&p.ID, &p.Address, &p.City, &p.State, &p.ZipCode,
		&p.PropertyType, &p.PropertySubtype,
		&bedrooms, &bathrooms, &squareFeet, &lotSize, &yearBuilt,
		&listPrice, &estimatedValue, &lastSoldPrice, &lastSoldDate, &taxAssessment,
		&p.Status, &p.IsActive, &p.Description, &p.Neighborhood,
		&p.Features, &p.MarketData,
		&latitude, &longitude, &assignedAgentID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bedrooms.Valid {
		v := int(bedrooms.Int64)
		p.Bedrooms = &v
	}
	if bathrooms.Valid {
		p.Bathrooms = &bathrooms.Float64
	}
	if squareFeet.Valid {
		v := int(squareFeet.Int64)
		p.SquareFeet = &v
	}
	if lotSize.Valid {
		v := int(lotSize.Int64)
		p.LotSize = &v
	}
	if yearBuilt.Valid {
		v := int(yearBuilt.Int64)
		p.YearBuilt = &v
	}
	if listPrice.Valid {
		p.ListPrice = &listPrice.Float64
	}
	if estimatedValue.Valid {
		p.EstimatedValue = &estimatedValue.Float64
	}
	if lastSoldPrice.Valid {
		p.LastSoldPrice = &lastSoldPrice.Float64
	}
	if lastSoldDate.Valid {
		t := lastSoldDate.Time
		p.LastSoldDate = &t
	}
	if taxAssessment.Valid {
		p.TaxAssessment = &taxAssessment.Float64
	}
	if latitude.Valid {
		p.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		p.Longitude = &longitude.Float64
	}
	if assignedAgentID.Valid {
		p.AssignedAgentID = &assignedAgentID.String
	}

	return &p, nil
}

// validateProperty rejects structurally invalid rows. Optional numeric
// attributes are either nil or non-negative; absence means unknown.
func validateProperty(p *models.Property) error {
	if strings.TrimSpace(p.Address) == "" || strings.TrimSpace(p.City) == "" ||
		strings.TrimSpace(p.State) == "" || strings.TrimSpace(p.PropertyType) == "" {
		return fmt.Errorf("%w: address, city, state and property_type are required", errs.ErrInvalidArgument)
	}

	negative := false
	if p.Bedrooms != nil && *p.Bedrooms < 0 {
		negative = true
	}
	if p.Bathrooms != nil && *p.Bathrooms < 0 {
		negative = true
	}
	if p.SquareFeet != nil && *p.SquareFeet < 0 {
		negative = true
	}
	if p.LotSize != nil && *p.LotSize < 0 {
		negative = true
	}
	for _, v := range []*float64{p.ListPrice, p.EstimatedValue, p.LastSoldPrice, p.TaxAssessment} {
		if v != nil && *v < 0 {
			negative = true
		}
	}
	if negative {
		return fmt.Errorf("%w: numeric attributes must be non-negative", errs.ErrInvalidArgument)
	}
	return nil
}

// CreateProperty inserts a new row. The identifier is minted here and is
// immutable afterwards; it is never reused.
func (d *Database) CreateProperty(ctx context.Context, caller *auth.Caller, p *models.Property) error {
	if !auth.CanWriteProperty(caller) {
		return errs.ErrForbidden
	}
	if err := validateProperty(p); err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.StatusActive
		p.IsActive = true
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.SearchText = p.ComputeSearchText()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO properties (
			id, address, city, state, zip_code, property_type, property_subtype,
			bedrooms, bathrooms, square_feet, lot_size, year_built,
			list_price, estimated_value, last_sold_price, last_sold_date, tax_assessment,
			status, is_active, description, neighborhood, features, market_data,
			latitude, longitude, assigned_agent_id, search_text, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Address, p.City, p.State, p.ZipCode, p.PropertyType, p.PropertySubtype,
		p.Bedrooms, p.Bathrooms, p.SquareFeet, p.LotSize, p.YearBuilt,
		p.ListPrice, p.EstimatedValue, p.LastSoldPrice, p.LastSoldDate, p.TaxAssessment,
		p.Status, p.IsActive, p.Description, p.Neighborhood, p.Features, p.MarketData,
		p.Latitude, p.Longitude, p.AssignedAgentID, p.SearchText, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if constraintViolated(err) {
			return fmt.Errorf("%w: property %s already exists", errs.ErrInvalidArgument, p.ID)
		}
		return storageErr(err)
	}
	return nil
}

// GetProperty returns a single row if the caller may read it. A denied
// read is indistinguishable from an absent row.
func (d *Database) GetProperty(ctx context.Context, caller *auth.Caller, id string) (*models.Property, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)

	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, storageErr(err)
	}
	if !auth.CanReadProperty(caller, p) {
		return nil, errs.ErrNotFound
	}
	return p, nil
}

// UpdateProperty overwrites the mutable attributes of a row. The
// identifier and created_at are immutable; updated_at is bumped and the
// search text is rebuilt in the same statement.
func (d *Database) UpdateProperty(ctx context.Context, caller *auth.Caller, p *models.Property) error {
	if !auth.CanWriteProperty(caller) {
		return errs.ErrForbidden
	}
	if err := validateProperty(p); err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()
	p.SearchText = p.ComputeSearchText()

	res, err := d.db.ExecContext(ctx, `
		UPDATE properties SET
			address = ?, city = ?, state = ?, zip_code = ?,
			property_type = ?, property_subtype = ?,
			bedrooms = ?, bathrooms = ?, square_feet = ?, lot_size = ?, year_built = ?,
			list_price = ?, estimated_value = ?, last_sold_price = ?, last_sold_date = ?, tax_assessment = ?,
			status = ?, is_active = ?, description = ?, neighborhood = ?,
			features = ?, market_data = ?,
			latitude = ?, longitude = ?, assigned_agent_id = ?,
			search_text = ?, updated_at = ?
		WHERE id = ?`,
		p.Address, p.City, p.State, p.ZipCode,
		p.PropertyType, p.PropertySubtype,
		p.Bedrooms, p.Bathrooms, p.SquareFeet, p.LotSize, p.YearBuilt,
		p.ListPrice, p.EstimatedValue, p.LastSoldPrice, p.LastSoldDate, p.TaxAssessment,
		p.Status, p.IsActive, p.Description, p.Neighborhood,
		p.Features, p.MarketData,
		p.Latitude, p.Longitude, p.AssignedAgentID,
		p.SearchText, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SoftDeleteProperty retires a row. History is preserved for audit and
// for insight backreferences; nothing is physically removed.
func (d *Database) SoftDeleteProperty(ctx context.Context, caller *auth.Caller, id string) error {
	if !auth.CanWriteProperty(caller) {
		return errs.ErrForbidden
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE properties
		SET is_active = 0, status = ?, updated_at = ?
		WHERE id = ?`,
		models.StatusOffMarket, time.Now().UTC(), id,
	)
	if err != nil {
		return storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DestroyProperty physically removes a row and, through the cascade,
// its insights. Reserved for admin cleanup; normal retirement is the
// soft delete above.
func (d *Database) DestroyProperty(ctx context.Context, caller *auth.Caller, id string) error {
	if !auth.CanWriteProperty(caller) {
		return errs.ErrForbidden
	}

	res, err := d.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CandidateProperties implements search.Store. It pushes the structured
// filters, the is_active scope and a search_text prefilter down onto the
// indexes and orders by recency; the exact relevance gate, scoring and
// access control happen in the search engine.
func (d *Database) CandidateProperties(ctx context.Context, params search.Params) ([]*models.Property, error) {
	var conditions []string
	var args []interface{}

	conditions = append(conditions, "is_active = 1")

	if params.PropertyType != "" {
		conditions = append(conditions, "LOWER(property_type) = LOWER(?)")
		args = append(args, params.PropertyType)
	}
	if params.State != "" {
		conditions = append(conditions, "LOWER(state) = LOWER(?)")
		args = append(args, params.State)
	}
	if params.City != "" {
		conditions = append(conditions, "INSTR(LOWER(city), LOWER(?)) > 0")
		args = append(args, params.City)
	}
	if params.MinPrice != nil {
		conditions = append(conditions, "list_price IS NOT NULL AND list_price >= ?")
		args = append(args, *params.MinPrice)
	}
	if params.MaxPrice != nil {
		conditions = append(conditions, "list_price IS NOT NULL AND list_price <= ?")
		args = append(args, *params.MaxPrice)
	}
	if params.MinBedrooms != nil {
		conditions = append(conditions, "bedrooms IS NOT NULL AND bedrooms >= ?")
		args = append(args, *params.MinBedrooms)
	}
	if params.MaxBedrooms != nil {
		conditions = append(conditions, "bedrooms IS NOT NULL AND bedrooms <= ?")
		args = append(args, *params.MaxBedrooms)
	}
	// Term searches prefilter on the synchronously maintained search_text
	// column. This is a superset of the engine's gate (search_text also
	// covers description and neighborhood); the exact field gate and the
	// scoring stay in the engine. The term is lowered here because the
	// column is lowered on write.
	if term := strings.ToLower(strings.TrimSpace(params.SearchTerm)); term != "" {
		conditions = append(conditions, "INSTR(search_text, ?) > 0")
		args = append(args, term)
	}

	query := `SELECT ` + propertyColumns + `
		FROM properties
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return properties, nil
}

// PropertiesWithCoordinates returns active rows inside a coarse lat/lng
// window. The map view refines and authorizes the result.
func (d *Database) PropertiesWithCoordinates(ctx context.Context, minLat, minLng, maxLat, maxLng float64) ([]*models.Property, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE is_active = 1
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?
		ORDER BY created_at DESC, id ASC`,
		minLat, maxLat, minLng, maxLng,
	)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return properties, nil
}
