package geospatial

import "errors"

var (
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrOutOfRange      = errors.New("out of range")
	ErrEmptyInput      = errors.New("empty input")
)
