package geospatial

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/samirrijal/isoview/internal/core/domain"
)

const (
	minChildren = 2
	maxChildren = 16
	dimensions  = 2
	// rtreego rejects zero-length sides.
	minSide = 1e-9
)

// reachItem is one polygon of an isochrone feature, indexed by its bounding box.
type reachItem struct {
	time    float64
	polygon domain.Polygon
	rect    *rtreego.Rect
}

func (r *reachItem) Bounds() *rtreego.Rect {
	return r.rect
}

// ReachIndex answers "which isochrone contains this point" for one
// isochrone collection. It is immutable after construction.
type ReachIndex struct {
	tree  *rtreego.Rtree
	count int
}

// NewReachIndex indexes every polygon of every feature that carries a time
// property. Features of other geometry types are ignored.
func NewReachIndex(fc *domain.FeatureCollection) (*ReachIndex, error) {
	idx := &ReachIndex{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
	if fc == nil {
		return idx, nil
	}

	for i, f := range fc.Features {
		t, ok := f.Time()
		if !ok {
			continue
		}
		polygons, err := f.Geometry.Polygons()
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		for _, p := range polygons {
			if len(p) == 0 || len(p[0]) < 3 {
				continue
			}
			b := ringBounds(p[0])
			rect, err := rtreego.NewRect(
				rtreego.Point{b.MinLat, b.MinLon},
				[]float64{math.Max(b.MaxLat-b.MinLat, minSide), math.Max(b.MaxLon-b.MinLon, minSide)},
			)
			if err != nil {
				return nil, fmt.Errorf("feature %d bounds: %w", i, err)
			}
			idx.tree.Insert(&reachItem{time: t, polygon: p, rect: rect})
			idx.count++
		}
	}
	return idx, nil
}

// Len returns the number of indexed polygons.
func (r *ReachIndex) Len() int {
	return r.count
}

// Lookup returns the smallest time among the polygons containing c.
func (r *ReachIndex) Lookup(c domain.Coordinate) (float64, bool) {
	if r.count == 0 {
		return 0, false
	}
	query := rtreego.Point{c.Lat, c.Lng}.ToRect(minSide)

	best, found := 0.0, false
	for _, s := range r.tree.SearchIntersect(query) {
		item, ok := s.(*reachItem)
		if !ok || (found && item.time >= best) {
			continue
		}
		if PolygonContains(item.polygon, c) {
			best, found = item.time, true
		}
	}
	return best, found
}

// PolygonContains reports whether c lies inside the outer ring and outside
// every hole.
func PolygonContains(p domain.Polygon, c domain.Coordinate) bool {
	if len(p) == 0 || !ringContains(p[0], c) {
		return false
	}
	for _, hole := range p[1:] {
		if ringContains(hole, c) {
			return false
		}
	}
	return true
}

// ringContains is the even-odd ray casting test on [lng, lat] positions.
func ringContains(ring domain.Ring, c domain.Coordinate) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > c.Lat) != (yj > c.Lat) &&
			c.Lng < (xj-xi)*(c.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func ringBounds(ring domain.Ring) domain.Bounds {
	b := domain.Bounds{
		MinLat: math.Inf(1), MinLon: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLon: math.Inf(-1),
	}
	for _, pos := range ring {
		b.MinLon = math.Min(b.MinLon, pos[0])
		b.MaxLon = math.Max(b.MaxLon, pos[0])
		b.MinLat = math.Min(b.MinLat, pos[1])
		b.MaxLat = math.Max(b.MaxLat, pos[1])
	}
	return b
}
