package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ISOTimeLayout is the ISO-8601 form sent as the time query parameter:
// UTC with millisecond precision.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z"

// ErrNotFeatureCollection is returned when a payload is not a GeoJSON FeatureCollection.
var ErrNotFeatureCollection = errors.New("not a GeoJSON FeatureCollection")

// IsochroneQuery is the fetch key: origin, departure time and ordered cutoffs.
type IsochroneQuery struct {
	Location Coordinate `json:"location"`
	Time     time.Time  `json:"time"`
	Cutoffs  []string   `json:"cutoffs"`
}

// FormattedTime returns Time in ISOTimeLayout.
func (q IsochroneQuery) FormattedTime() string {
	return q.Time.UTC().Format(ISOTimeLayout)
}

// Key returns a stable identifier for the query, suitable as a cache key.
func (q IsochroneQuery) Key() string {
	return "isochrone:" + q.Location.LatLng() + ":" + q.FormattedTime() + ":" + strings.Join(q.Cutoffs, "|")
}

// Geometry is a GeoJSON geometry. Coordinates are kept raw so any geometry
// type round-trips unchanged; Polygons decodes the areal types.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Ring is a closed linear ring of [lng, lat] positions.
type Ring [][2]float64

// Polygon is an outer ring followed by zero or more holes.
type Polygon []Ring

// Polygons decodes Polygon and MultiPolygon geometries. Other geometry types
// yield no polygons and no error.
func (g Geometry) Polygons() ([]Polygon, error) {
	switch g.Type {
	case "Polygon":
		var p Polygon
		if err := json.Unmarshal(g.Coordinates, &p); err != nil {
			return nil, fmt.Errorf("decode polygon: %w", err)
		}
		return []Polygon{p}, nil
	case "MultiPolygon":
		var mp []Polygon
		if err := json.Unmarshal(g.Coordinates, &mp); err != nil {
			return nil, fmt.Errorf("decode multipolygon: %w", err)
		}
		return mp, nil
	default:
		return nil, nil
	}
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Time returns the numeric "time" property an isochrone feature carries.
func (f Feature) Time() (float64, bool) {
	switch v := f.Properties["time"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// FeatureCollection is a GeoJSON FeatureCollection; for isochrones each
// member polygon carries the cutoff it represents in its "time" property.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection returns an empty collection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: []Feature{},
	}
}

// Validate checks the collection is a FeatureCollection.
func (fc *FeatureCollection) Validate() error {
	if fc == nil || fc.Type != "FeatureCollection" {
		return ErrNotFeatureCollection
	}
	return nil
}

// Times lists the time property of each feature, in feature order.
func (fc *FeatureCollection) Times() []float64 {
	if fc == nil {
		return nil
	}
	times := make([]float64, 0, len(fc.Features))
	for _, f := range fc.Features {
		if t, ok := f.Time(); ok {
			times = append(times, t)
		}
	}
	return times
}

// PlaceCandidate is one geocoding search result.
type PlaceCandidate struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Location Coordinate `json:"location"`
}
