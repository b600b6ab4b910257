package geospatial

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Unit selects the unit returned by Length.
type Unit int

const (
	Meters Unit = iota
	Kilometers
)

// Haversine returns the great-circle distance in meters between two points.
func Haversine(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// Length sums the great-circle distance of consecutive point pairs.
// Rings are measured as given, so a closed ring includes its closing segment.
func Length(points []orb.Point, unit Unit) (float64, error) {
	if len(points) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidGeometry, len(points))
	}
	total := pathLength(points)
	if unit == Kilometers {
		return total / 1000, nil
	}
	return total, nil
}

func pathLength(points []orb.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}

// Along returns the point distanceMeters from the start of line.
// Distances past the end clamp to the last point.
func Along(line orb.LineString, distanceMeters float64) (orb.Point, error) {
	if len(line) == 0 {
		return orb.Point{}, ErrEmptyInput
	}
	if distanceMeters < 0 {
		return orb.Point{}, fmt.Errorf("%w: negative distance %f", ErrOutOfRange, distanceMeters)
	}
	if distanceMeters == 0 || len(line) == 1 {
		return line[0], nil
	}
	if distanceMeters >= pathLength(line) {
		return line[len(line)-1], nil
	}

	var travelled float64
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		seg := Haversine(a, b)
		if seg > 0 && travelled+seg >= distanceMeters {
			f := (distanceMeters - travelled) / seg
			return interpolate(a, b, f), nil
		}
		travelled += seg
	}
	return line[len(line)-1], nil
}

// interpolate is linear in degrees, adequate at segment scale.
func interpolate(a, b orb.Point, f float64) orb.Point {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}
	return orb.Point{
		a[0] + (b[0]-a[0])*f,
		a[1] + (b[1]-a[1])*f,
	}
}
