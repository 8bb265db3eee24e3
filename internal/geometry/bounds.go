package geometry

import (
	"github.com/paulmach/orb"

	"janusprop/server/internal/models"
)

// Viewport is a lat/lng window for the map view. Bounds follow the
// permissive-filter policy: an inverted window matches nothing rather
// than erroring.
type Viewport struct {
	bound orb.Bound
}

// NewViewport builds a viewport from the south-west and north-east
// corners.
func NewViewport(minLat, minLng, maxLat, maxLng float64) Viewport {
	return Viewport{
		bound: orb.Bound{
			Min: orb.Point{minLng, minLat},
			Max: orb.Point{maxLng, maxLat},
		},
	}
}

// ViewportAround builds a square window of the given half-span in
// degrees around a focus point, such as a market center.
func ViewportAround(lat, lng, span float64) Viewport {
	return NewViewport(lat-span, lng-span, lat+span, lng+span)
}

// Contains reports whether the property has coordinates inside the
// window.
func (v Viewport) Contains(p *models.Property) bool {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return false
	}
	if v.bound.Min[0] > v.bound.Max[0] || v.bound.Min[1] > v.bound.Max[1] {
		return false
	}
	return v.bound.Contains(orb.Point{*p.Longitude, *p.Latitude})
}

// Corners returns the window corners as (minLat, minLng, maxLat, maxLng),
// the order the storage range scan expects.
func (v Viewport) Corners() (float64, float64, float64, float64) {
	return v.bound.Min[1], v.bound.Min[0], v.bound.Max[1], v.bound.Max[0]
}

// Center is the midpoint of the window, used as the default map focus.
func (v Viewport) Center() (lat, lng float64) {
	c := v.bound.Center()
	return c[1], c[0]
}
