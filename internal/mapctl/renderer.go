package mapctl

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DrawMode is the state of the polygon drawing tool.
type DrawMode string

const (
	DrawPolygon DrawMode = "draw_polygon"
	DrawSelect  DrawMode = "simple_select"
)

// Layer is a vector-map style layer bound to a source.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
}

// Camera positions the map view.
type Camera struct {
	Center  orb.Point `json:"center"`
	Zoom    float64   `json:"zoom"`
	Pitch   float64   `json:"pitch"`
	Bearing float64   `json:"bearing"`
}

// Renderer is the map engine as seen by the controller. Calls are made
// from the controller's loop goroutine only.
type Renderer interface {
	// SetSource adds a GeoJSON source or replaces its data.
	SetSource(id string, data *geojson.FeatureCollection) error
	RemoveSource(id string) error
	AddLayer(layer Layer) error
	RemoveLayer(id string) error
	SetPaint(layerID, property string, value any) error
	// SetStyle swaps the basemap style. The engine drops every custom
	// source and layer and later reports StyleLoaded.
	SetStyle(url string) error
	// SetTerrain adds the raster-dem source and enables terrain on it.
	SetTerrain(t Terrain) error

	SetDrawMode(mode DrawMode) error
	ClearDrawing() error

	SetLoading(loading bool) error
	FlyTo(cam Camera) error
	Toast(message string) error
	Download(filename string, content []byte) error
	// State publishes the session state for UI cards.
	State(state State) error
}
