package domain

import (
	"errors"

	"github.com/samirrijal/villagemap/internal/pkg/geospatial"
)

var (
	// ErrNetworkUnavailable marks a failed region, route or geocode fetch.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrRouteNotFound is returned when the routing provider found no path.
	ErrRouteNotFound = errors.New("route not found")
	// ErrNoActiveMeasurement is returned when exporting with nothing drawn.
	ErrNoActiveMeasurement = errors.New("no active measurement")

	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// Geometry errors are defined next to the math that raises them.
var (
	ErrInvalidGeometry = geospatial.ErrInvalidGeometry
	ErrOutOfRange      = geospatial.ErrOutOfRange
	ErrEmptyInput      = geospatial.ErrEmptyInput
)
