package domain

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// ToolMode is the active interactive tool of one map instance.
type ToolMode int

const (
	ModeNone ToolMode = iota
	ModeMeasuring
	ModeRouting
)

func (m ToolMode) String() string {
	switch m {
	case ModeMeasuring:
		return "measuring"
	case ModeRouting:
		return "routing"
	default:
		return "none"
	}
}

func (m ToolMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ToolMode) UnmarshalText(b []byte) error {
	v, err := ParseToolMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseToolMode accepts the names produced by String.
func ParseToolMode(s string) (ToolMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "measuring", "measure":
		return ModeMeasuring, nil
	case "routing", "route":
		return ModeRouting, nil
	}
	return ModeNone, fmt.Errorf("%w: unknown tool mode %q", ErrValidation, s)
}

// MeasurementResult is derived from the drawn polygon.
type MeasurementResult struct {
	AreaSquareMeters float64 `json:"area_m2"`
	PerimeterMeters  float64 `json:"perimeter_m"`
}

// TravelMode is a way of covering a route distance.
type TravelMode string

const (
	TravelCar  TravelMode = "car"
	TravelBike TravelMode = "bike"
	TravelWalk TravelMode = "walk"
)

// AverageSpeedKmh is used for duration estimates.
var AverageSpeedKmh = map[TravelMode]float64{
	TravelCar:  40,
	TravelBike: 15,
	TravelWalk: 5,
}

// Route is what a routing provider returns.
type Route struct {
	Geometry        orb.LineString
	DistanceMeters  float64
	DurationSeconds float64
}

// RouteResult is the routing session's view of the last successful fetch.
type RouteResult struct {
	DistanceMeters float64            `json:"distance_m"`
	DistanceLabel  string             `json:"distance_label"`
	DurationByMode map[TravelMode]int `json:"duration_min"`
	Geometry       orb.LineString     `json:"-"`
	Midpoint       orb.Point          `json:"midpoint"`
}

// Address is a reverse-geocoded place.
type Address struct {
	DisplayName string `json:"display_name"`
	Road        string `json:"road,omitempty"`
	Village     string `json:"village,omitempty"`
}

// Label is the short text shown next to a picked point.
func (a Address) Label() string {
	if a.Road != "" && a.Village != "" {
		return a.Road + ", " + a.Village
	}
	if a.Road != "" {
		return a.Road
	}
	return a.DisplayName
}

// CoordinateLabel is the fallback "lat, lon" text for a point.
func CoordinateLabel(p orb.Point) string {
	return fmt.Sprintf("%.5f, %.5f", p.Lat(), p.Lon())
}

// Summary is the one-line text shown at the route midpoint.
func (r RouteResult) Summary() string {
	return fmt.Sprintf("%s | mobil %d mnt | sepeda %d mnt | jalan %d mnt",
		r.DistanceLabel, r.DurationByMode[TravelCar], r.DurationByMode[TravelBike], r.DurationByMode[TravelWalk])
}
