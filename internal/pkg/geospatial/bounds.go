package geospatial

import "github.com/paulmach/orb"

// Bounds is a lng/lat bounding box.
type Bounds struct {
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() orb.Point {
	return orb.Point{(b.MinLng + b.MaxLng) / 2, (b.MinLat + b.MaxLat) / 2}
}

// BoundingBox scans the ring once.
func BoundingBox(ring []orb.Point) (Bounds, error) {
	if len(ring) == 0 {
		return Bounds{}, ErrEmptyInput
	}
	b := Bounds{
		MinLng: ring[0][0], MaxLng: ring[0][0],
		MinLat: ring[0][1], MaxLat: ring[0][1],
	}
	for _, p := range ring[1:] {
		if p[0] < b.MinLng {
			b.MinLng = p[0]
		}
		if p[0] > b.MaxLng {
			b.MaxLng = p[0]
		}
		if p[1] < b.MinLat {
			b.MinLat = p[1]
		}
		if p[1] > b.MaxLat {
			b.MaxLat = p[1]
		}
	}
	return b, nil
}

// Rect returns a closed rectangular polygon spanning the box.
func (b Bounds) Rect() orb.Polygon {
	return orb.Polygon{{
		{b.MinLng, b.MinLat},
		{b.MaxLng, b.MinLat},
		{b.MaxLng, b.MaxLat},
		{b.MinLng, b.MaxLat},
		{b.MinLng, b.MinLat},
	}}
}
