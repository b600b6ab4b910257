package geospatial

import "github.com/paulmach/orb"

// Shift returns a copy of g with every coordinate translated by dLng, dLat.
// The input is never modified. Unsupported geometry types yield nil.
func Shift(g orb.Geometry, dLng, dLat float64) orb.Geometry {
	mv := func(p orb.Point) orb.Point { return orb.Point{p[0] + dLng, p[1] + dLat} }
	pts := func(in []orb.Point) []orb.Point {
		if in == nil {
			return nil
		}
		out := make([]orb.Point, len(in))
		for i, p := range in {
			out[i] = mv(p)
		}
		return out
	}

	switch g := g.(type) {
	case orb.Point:
		return mv(g)
	case orb.MultiPoint:
		return orb.MultiPoint(pts(g))
	case orb.LineString:
		return orb.LineString(pts(g))
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = orb.LineString(pts(ls))
		}
		return out
	case orb.Ring:
		return orb.Ring(pts(g))
	case orb.Polygon:
		return shiftPolygon(g, pts)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = shiftPolygon(p, pts)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, len(g))
		for i, c := range g {
			out[i] = Shift(c, dLng, dLat)
		}
		return out
	case orb.Bound:
		return orb.Bound{Min: mv(g.Min), Max: mv(g.Max)}
	}
	return nil
}

func shiftPolygon(p orb.Polygon, pts func([]orb.Point) []orb.Point) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = orb.Ring(pts(r))
	}
	return out
}

// ShiftPolygon is Shift specialised to polygons.
func ShiftPolygon(p orb.Polygon, dLng, dLat float64) orb.Polygon {
	return Shift(p, dLng, dLat).(orb.Polygon)
}
