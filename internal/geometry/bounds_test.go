package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"janusprop/server/internal/models"
)

func coord(v float64) *float64 { return &v }

func TestViewport_Contains(t *testing.T) {
	// Window around central Austin.
	vp := NewViewport(30.1, -97.9, 30.5, -97.5)

	inside := &models.Property{Latitude: coord(30.2672), Longitude: coord(-97.7431)}
	assert.True(t, vp.Contains(inside))

	north := &models.Property{Latitude: coord(32.7767), Longitude: coord(-96.7970)}
	assert.False(t, vp.Contains(north))

	noCoords := &models.Property{}
	assert.False(t, vp.Contains(noCoords))

	assert.False(t, vp.Contains(nil))
}

func TestViewport_InvertedWindowMatchesNothing(t *testing.T) {
	vp := NewViewport(30.5, -97.5, 30.1, -97.9)
	p := &models.Property{Latitude: coord(30.2672), Longitude: coord(-97.7431)}
	assert.False(t, vp.Contains(p))
}

func TestViewport_Corners(t *testing.T) {
	vp := NewViewport(30.1, -97.9, 30.5, -97.5)
	minLat, minLng, maxLat, maxLng := vp.Corners()
	assert.Equal(t, 30.1, minLat)
	assert.Equal(t, -97.9, minLng)
	assert.Equal(t, 30.5, maxLat)
	assert.Equal(t, -97.5, maxLng)
}

func TestViewportAround(t *testing.T) {
	vp := ViewportAround(30.2672, -97.7431, 0.25)

	minLat, minLng, maxLat, maxLng := vp.Corners()
	assert.InDelta(t, 30.0172, minLat, 1e-9)
	assert.InDelta(t, -97.9931, minLng, 1e-9)
	assert.InDelta(t, 30.5172, maxLat, 1e-9)
	assert.InDelta(t, -97.4931, maxLng, 1e-9)

	center := &models.Property{Latitude: coord(30.2672), Longitude: coord(-97.7431)}
	assert.True(t, vp.Contains(center))

	far := &models.Property{Latitude: coord(32.7767), Longitude: coord(-96.7970)}
	assert.False(t, vp.Contains(far))
}

func TestViewport_Center(t *testing.T) {
	vp := NewViewport(30.0, -98.0, 31.0, -97.0)
	lat, lng := vp.Center()
	assert.InDelta(t, 30.5, lat, 1e-9)
	assert.InDelta(t, -97.5, lng, 1e-9)
}
