package mapctl

const (
	SourceTerrain = "terrain-dem"
	LayerSky      = "sky"
)

// Terrain is a raster-dem source the map is draped over.
type Terrain struct {
	Source       string  `json:"source"`
	URL          string  `json:"url"`
	TileSize     int     `json:"tile_size"`
	MaxZoom      int     `json:"max_zoom,omitempty"`
	Exaggeration float64 `json:"exaggeration"`
}

// DefaultTerrain uses the MapLibre demo elevation tiles at 1.5x relief.
func DefaultTerrain() Terrain {
	return Terrain{
		Source:       SourceTerrain,
		URL:          "https://demotiles.maplibre.org/terrain-tiles/tiles.json",
		TileSize:     256,
		MaxZoom:      14,
		Exaggeration: 1.5,
	}
}

// SkyLayer is the atmosphere drawn above the horizon when the map is
// pitched. It has no source.
func SkyLayer() Layer {
	return Layer{
		ID:   LayerSky,
		Type: "sky",
		Paint: map[string]any{
			"sky-type":                     "atmosphere",
			"sky-atmosphere-sun":           []float64{0, 0},
			"sky-atmosphere-sun-intensity": 15,
		},
	}
}
