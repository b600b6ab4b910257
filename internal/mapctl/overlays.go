package mapctl

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/pkg/geospatial"
)

// Source and layer ids of the boundary overlay set.
const (
	SourceBoundary   = "boundary"
	SourceMesh       = "boundary-mesh"
	SourceLabel      = "boundary-label"
	SourceLandmarks  = "landmarks"
	SourceDirections = "boundary-directions"

	LayerFill       = "boundary-fill"
	LayerOutline    = "boundary-outline"
	LayerMesh       = "boundary-mesh"
	LayerLabel      = "boundary-label"
	LayerPins       = "landmark-pins"
	LayerPinLabels  = "landmark-labels"
	LayerDirections = "boundary-directions"
)

// Landmark is a named point of interest searchable from the map.
type Landmark struct {
	Name     string          `yaml:"name"`
	Category string          `yaml:"category"`
	Location domain.GeoPoint `yaml:"location"`
}

// Neighbours are the regions bordering the boundary on each side.
type Neighbours struct {
	North string `yaml:"north"`
	South string `yaml:"south"`
	East  string `yaml:"east"`
	West  string `yaml:"west"`
}

// OverlayConfig describes the decorations drawn around a boundary.
type OverlayConfig struct {
	Landmarks  []Landmark `yaml:"landmarks"`
	Neighbours Neighbours `yaml:"neighbours"`
	// Offset repositions the boundary, as [dLng, dLat] degrees.
	Offset    [2]float64 `yaml:"offset"`
	MeshLines int        `yaml:"mesh_lines"`
	FillColor string     `yaml:"fill_color"`
	Height    float64    `yaml:"height"`
	Opacity   float64    `yaml:"opacity"`
}

// DefaultOverlayConfig is the Saribudolok decoration set.
func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{
		Landmarks: []Landmark{
			{Name: "Paropo", Category: "wisata", Location: domain.GeoPoint{Lat: 2.9978, Lon: 98.6021}},
			{Name: "Aek Nauli", Category: "wisata", Location: domain.GeoPoint{Lat: 2.9912, Lon: 98.6135}},
			{Name: "Taman Simalem", Category: "wisata", Location: domain.GeoPoint{Lat: 3.0019, Lon: 98.6158}},
		},
		Neighbours: Neighbours{
			North: "Silimakuta",
			South: "Dolok Panribuan",
			East:  "Purba Tua Etek",
			West:  "Saribu Janggali",
		},
		MeshLines: 12,
		FillColor: "#4A90E2",
		Height:    500,
		Opacity:   0.7,
	}
}

// LoadOverlayConfig reads overlay settings from a YAML file. Fields left
// out keep their defaults.
func LoadOverlayConfig(path string) (OverlayConfig, error) {
	cfg := DefaultOverlayConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read overlays: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse overlays %s: %w", path, err)
	}
	return cfg, nil
}

// Place applies the configured offset to a boundary polygon.
func (cfg OverlayConfig) Place(p orb.Polygon) orb.Polygon {
	if cfg.Offset == [2]float64{} {
		return p
	}
	return geospatial.ShiftPolygon(p, cfg.Offset[0], cfg.Offset[1])
}

// OverlaySource is one GeoJSON source of the overlay set.
type OverlaySource struct {
	ID   string
	Data *geojson.FeatureCollection
}

// Overlays is an ordered set of sources and the layers drawing them.
type Overlays struct {
	Sources []OverlaySource
	Layers  []Layer
}

// Apply declares every source and layer on the registry.
func (o Overlays) Apply(reg *LayerRegistry) error {
	for _, s := range o.Sources {
		if err := reg.SetSource(s.ID, s.Data); err != nil {
			return fmt.Errorf("source %s: %w", s.ID, err)
		}
	}
	for _, l := range o.Layers {
		if err := reg.Ensure(l); err != nil {
			return fmt.Errorf("layer %s: %w", l.ID, err)
		}
	}
	return nil
}

// BoundaryOverlays builds the fixed overlay set for a boundary feature.
func BoundaryOverlays(f domain.BoundaryFeature, cfg OverlayConfig) (Overlays, error) {
	poly := cfg.Place(f.Geometry)
	if err := geospatial.ValidatePolygon(poly); err != nil {
		return Overlays{}, err
	}
	bounds, err := geospatial.BoundingBox(poly[0])
	if err != nil {
		return Overlays{}, err
	}

	props := geojson.Properties{
		"name":   f.Properties.Name,
		"code":   f.Properties.Code,
		"level":  f.Properties.Level,
		"source": string(f.Source),
	}
	boundary := geojson.NewFeature(poly)
	boundary.Properties = props

	label := geojson.NewFeature(geospatial.Centroid(poly))
	label.Properties = geojson.Properties{"label": f.Properties.Name}

	mesh := geojson.NewFeature(meshLines(poly, bounds, cfg.MeshLines))

	height := cfg.Height
	if height == 0 {
		height = 500
	}
	opacity := cfg.Opacity
	if opacity == 0 {
		opacity = 0.7
	}
	color := cfg.FillColor
	if color == "" {
		color = "#4A90E2"
	}

	return Overlays{
		Sources: []OverlaySource{
			{ID: SourceBoundary, Data: collection(boundary)},
			{ID: SourceMesh, Data: collection(mesh)},
			{ID: SourceLabel, Data: collection(label)},
			{ID: SourceLandmarks, Data: landmarkCollection(cfg.Landmarks)},
			{ID: SourceDirections, Data: directionCollection(bounds, cfg.Neighbours)},
		},
		Layers: []Layer{
			{
				ID: LayerFill, Type: "fill-extrusion", Source: SourceBoundary,
				Paint: map[string]any{
					"fill-extrusion-color":   color,
					"fill-extrusion-height":  height,
					"fill-extrusion-base":    0,
					"fill-extrusion-opacity": opacity,
				},
			},
			{
				ID: LayerOutline, Type: "line", Source: SourceBoundary,
				Paint: map[string]any{"line-color": "#1F5FA8", "line-width": 3, "line-opacity": 1.0},
			},
			{
				ID: LayerMesh, Type: "line", Source: SourceMesh,
				Paint: map[string]any{"line-color": "#FFFFFF", "line-width": 0.5, "line-opacity": 0.35},
			},
			{
				ID: LayerLabel, Type: "symbol", Source: SourceLabel,
				Layout: map[string]any{"text-field": []any{"get", "label"}, "text-size": 16},
				Paint:  map[string]any{"text-color": "#0B2545", "text-halo-color": "#FFFFFF", "text-halo-width": 2},
			},
			{
				ID: LayerPins, Type: "circle", Source: SourceLandmarks,
				Paint: map[string]any{"circle-radius": 6, "circle-color": "#E8553E", "circle-stroke-color": "#FFFFFF", "circle-stroke-width": 2},
			},
			{
				ID: LayerPinLabels, Type: "symbol", Source: SourceLandmarks,
				Layout: map[string]any{"text-field": []any{"get", "name"}, "text-offset": []any{0, 1.4}, "text-size": 12},
				Paint:  map[string]any{"text-color": "#333333", "text-halo-color": "#FFFFFF", "text-halo-width": 1},
			},
			{
				ID: LayerDirections, Type: "symbol", Source: SourceDirections,
				Layout: map[string]any{"text-field": []any{"get", "label"}, "text-size": 13},
				Paint:  map[string]any{"text-color": "#555555", "text-halo-color": "#FFFFFF", "text-halo-width": 1},
			},
		},
	}, nil
}

func collection(fs ...*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, fs...)
	return fc
}

func landmarkCollection(landmarks []Landmark) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range landmarks {
		f := geojson.NewFeature(l.Location.Point())
		f.Properties = geojson.Properties{"name": l.Name, "category": l.Category}
		fc.Append(f)
	}
	return fc
}

// directionCollection places neighbour labels just outside each side of
// the bounding box.
func directionCollection(b geospatial.Bounds, n Neighbours) *geojson.FeatureCollection {
	padLng := (b.MaxLng - b.MinLng) * 0.08
	padLat := (b.MaxLat - b.MinLat) * 0.08
	c := b.Center()

	sides := []struct {
		dir, word, name string
		at              orb.Point
	}{
		{"north", "Utara", n.North, orb.Point{c.Lon(), b.MaxLat + padLat}},
		{"south", "Selatan", n.South, orb.Point{c.Lon(), b.MinLat - padLat}},
		{"east", "Timur", n.East, orb.Point{b.MaxLng + padLng, c.Lat()}},
		{"west", "Barat", n.West, orb.Point{b.MinLng - padLng, c.Lat()}},
	}

	fc := geojson.NewFeatureCollection()
	for _, s := range sides {
		if s.name == "" {
			continue
		}
		f := geojson.NewFeature(s.at)
		f.Properties = geojson.Properties{
			"direction": s.dir,
			"name":      s.name,
			"label":     s.word + ": " + s.name,
		}
		fc.Append(f)
	}
	return fc
}

// meshLines draws an n×n grid over the bounding box and keeps only the
// parts that fall inside the polygon.
func meshLines(poly orb.Polygon, b geospatial.Bounds, n int) orb.MultiLineString {
	if n <= 0 {
		n = 12
	}
	const steps = 64
	var out orb.MultiLineString
	for i := 1; i < n; i++ {
		f := float64(i) / float64(n)
		lat := b.MinLat + f*(b.MaxLat-b.MinLat)
		out = append(out, clipToPolygon(poly, orb.Point{b.MinLng, lat}, orb.Point{b.MaxLng, lat}, steps)...)
		lng := b.MinLng + f*(b.MaxLng-b.MinLng)
		out = append(out, clipToPolygon(poly, orb.Point{lng, b.MinLat}, orb.Point{lng, b.MaxLat}, steps)...)
	}
	return out
}

// clipToPolygon samples the segment a→b and returns the runs lying inside
// the polygon.
func clipToPolygon(poly orb.Polygon, a, b orb.Point, steps int) []orb.LineString {
	var (
		runs []orb.LineString
		cur  orb.LineString
	)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p := orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
		if geospatial.Contains(poly, p) {
			cur = append(cur, p)
			continue
		}
		if len(cur) >= 2 {
			runs = append(runs, cur)
		}
		cur = nil
	}
	if len(cur) >= 2 {
		runs = append(runs, cur)
	}
	return runs
}
