package geospatial

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Area returns the geodesic area of a polygon in square meters, holes
// subtracted. Rings are measured on a sphere of orb.EarthRadius using the
// spherical-excess ring formula.
func Area(p orb.Polygon) (float64, error) {
	if err := ValidatePolygon(p); err != nil {
		return 0, err
	}
	a := geo.Area(p)
	if a < 0 {
		a = 0
	}
	return a, nil
}

// ValidatePolygon checks ring counts and sizes.
func ValidatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
	}
	for i, r := range p {
		if len(r) < 4 {
			return fmt.Errorf("%w: ring %d has %d points, need at least 4", ErrInvalidGeometry, i, len(r))
		}
		for _, pt := range r {
			if !ValidCoordinate(pt) {
				return fmt.Errorf("%w: coordinate %v out of range", ErrInvalidGeometry, pt)
			}
		}
	}
	return nil
}

// ValidCoordinate reports whether p is a finite lng/lat pair in range.
func ValidCoordinate(p orb.Point) bool {
	lng, lat := p[0], p[1]
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// CloseRing returns r with its first point appended when it is not closed.
func CloseRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r.Closed() {
		return r
	}
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}

// ClosePolygon closes every ring of p.
func ClosePolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = CloseRing(r)
	}
	return out
}

// Centroid returns the area centroid of the outer ring.
func Centroid(p orb.Polygon) orb.Point {
	c, _ := planar.CentroidArea(p)
	return c
}

// Contains reports whether pt lies inside p, honouring holes.
func Contains(p orb.Polygon, pt orb.Point) bool {
	return planar.PolygonContains(p, pt)
}
