package domain

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
)

// Region is a stored administrative boundary (village, district, ...).
type Region struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	Level     string          `json:"level"`
	AreaKm2   float64         `json:"area_km2"`
	Geometry  json.RawMessage `json:"geometry"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRegion is the payload accepted by the region service.
type NewRegion struct {
	Name     string          `json:"name"`
	Code     string          `json:"code"`
	Level    string          `json:"level"`
	Geometry json.RawMessage `json:"geometry"`
}

// BoundarySource tells where a loaded boundary came from.
type BoundarySource string

const (
	BoundaryPrimary   BoundarySource = "primary"
	BoundaryLocal     BoundarySource = "local"
	BoundarySynthetic BoundarySource = "synthetic"
)

// BoundaryProperties are the descriptive fields of a boundary feature.
type BoundaryProperties struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Level string `json:"level,omitempty"`
}

// BoundaryFeature is the polygon plus metadata of one region.
// It is never mutated after load; a reload replaces it.
type BoundaryFeature struct {
	Properties BoundaryProperties `json:"properties"`
	Geometry   orb.Polygon        `json:"-"`
	Source     BoundarySource     `json:"source"`
}

// Label is the human-readable location label used in reports.
func (f BoundaryFeature) Label() string {
	if f.Properties.Code == "" || f.Properties.Code == UnknownProperty {
		return f.Properties.Name
	}
	return f.Properties.Name + " (" + f.Properties.Code + ")"
}

// UnknownProperty fills missing boundary properties.
const UnknownProperty = "(unknown)"
