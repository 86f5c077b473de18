package geospatial

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/isoview/internal/core/domain"
)

// square returns a closed ring centered on (lng, lat) with half-width d.
func square(lng, lat, d float64) domain.Ring {
	return domain.Ring{
		{lng - d, lat - d}, {lng + d, lat - d}, {lng + d, lat + d}, {lng - d, lat + d}, {lng - d, lat - d},
	}
}

func polygonFeature(t *testing.T, time float64, p domain.Polygon) domain.Feature {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return domain.Feature{
		Type:       "Feature",
		Geometry:   domain.Geometry{Type: "Polygon", Coordinates: raw},
		Properties: map[string]any{"time": time},
	}
}

func nestedCollection(t *testing.T) *domain.FeatureCollection {
	fc := domain.NewFeatureCollection()
	// Abando, Bilbao
	fc.Features = append(fc.Features,
		polygonFeature(t, 2700, domain.Polygon{square(-2.935, 43.263, 0.3)}),
		polygonFeature(t, 900, domain.Polygon{square(-2.935, 43.263, 0.05)}),
		polygonFeature(t, 1800, domain.Polygon{square(-2.935, 43.263, 0.15)}),
	)
	return fc
}

func TestReachIndex_SmallestContainingTime(t *testing.T) {
	idx, err := NewReachIndex(nestedCollection(t))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	got, ok := idx.Lookup(domain.Coordinate{Lng: -2.935, Lat: 43.263})
	require.True(t, ok)
	assert.Equal(t, 900.0, got)

	got, ok = idx.Lookup(domain.Coordinate{Lng: -2.835, Lat: 43.263})
	require.True(t, ok)
	assert.Equal(t, 1800.0, got)

	got, ok = idx.Lookup(domain.Coordinate{Lng: -2.935, Lat: 43.5})
	require.True(t, ok)
	assert.Equal(t, 2700.0, got)
}

func TestReachIndex_Outside(t *testing.T) {
	idx, err := NewReachIndex(nestedCollection(t))
	require.NoError(t, err)

	_, ok := idx.Lookup(domain.Coordinate{Lng: 3.0, Lat: 40.0})
	assert.False(t, ok)
}

func TestReachIndex_RespectsHoles(t *testing.T) {
	fc := domain.NewFeatureCollection()
	fc.Features = append(fc.Features, polygonFeature(t, 600, domain.Polygon{
		square(0, 0, 1),
		square(0, 0, 0.2),
	}))
	idx, err := NewReachIndex(fc)
	require.NoError(t, err)

	_, ok := idx.Lookup(domain.Coordinate{Lng: 0, Lat: 0})
	assert.False(t, ok, "point in hole must not be reachable")

	got, ok := idx.Lookup(domain.Coordinate{Lng: 0.5, Lat: 0.5})
	assert.True(t, ok)
	assert.Equal(t, 600.0, got)
}

func TestReachIndex_SkipsFeaturesWithoutTime(t *testing.T) {
	f := polygonFeature(t, 0, domain.Polygon{square(0, 0, 1)})
	delete(f.Properties, "time")
	fc := domain.NewFeatureCollection()
	fc.Features = append(fc.Features, f)

	idx, err := NewReachIndex(fc)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestReachIndex_MalformedPolygon(t *testing.T) {
	fc := domain.NewFeatureCollection()
	fc.Features = append(fc.Features, domain.Feature{
		Type:       "Feature",
		Geometry:   domain.Geometry{Type: "Polygon", Coordinates: json.RawMessage(`"nope"`)},
		Properties: map[string]any{"time": 900.0},
	})
	_, err := NewReachIndex(fc)
	assert.Error(t, err)
}

func TestReachIndex_Nil(t *testing.T) {
	idx, err := NewReachIndex(nil)
	require.NoError(t, err)
	_, ok := idx.Lookup(domain.Coordinate{})
	assert.False(t, ok)
}

func TestHaversine(t *testing.T) {
	// Abando to Moyua, roughly 140m apart.
	d := Distance(domain.Coordinate{Lng: -2.935, Lat: 43.263}, domain.Coordinate{Lng: -2.934, Lat: 43.264})
	assert.InDelta(t, 137, d, 10)
}
