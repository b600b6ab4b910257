package mapctl_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/mapctl"
	"github.com/samirrijal/villagemap/internal/pkg/geospatial"
)

func villageFeature(t *testing.T) domain.BoundaryFeature {
	t.Helper()
	f, err := mapctl.FeatureFromCollection(villageCollection(), domain.BoundaryPrimary)
	if err != nil {
		t.Fatalf("FeatureFromCollection: %v", err)
	}
	return f
}

func TestBoundaryOverlays_LayerSet(t *testing.T) {
	ov, err := mapctl.BoundaryOverlays(villageFeature(t), mapctl.DefaultOverlayConfig())
	if err != nil {
		t.Fatalf("BoundaryOverlays: %v", err)
	}
	want := []string{"boundary-fill", "boundary-outline", "boundary-mesh", "boundary-label", "landmark-pins", "landmark-labels", "boundary-directions"}
	if len(ov.Layers) != len(want) {
		t.Fatalf("got %d layers, want %d", len(ov.Layers), len(want))
	}
	for i, id := range want {
		if ov.Layers[i].ID != id {
			t.Errorf("layer %d = %s, want %s", i, ov.Layers[i].ID, id)
		}
	}

	fill := ov.Layers[0]
	if fill.Type != "fill-extrusion" {
		t.Errorf("fill type = %s", fill.Type)
	}
	if fill.Paint["fill-extrusion-color"] != "#4A90E2" || fill.Paint["fill-extrusion-height"] != 500.0 || fill.Paint["fill-extrusion-opacity"] != 0.7 {
		t.Errorf("fill paint = %v", fill.Paint)
	}
}

func TestBoundaryOverlays_Geometry(t *testing.T) {
	f := villageFeature(t)
	ov, err := mapctl.BoundaryOverlays(f, mapctl.DefaultOverlayConfig())
	if err != nil {
		t.Fatalf("BoundaryOverlays: %v", err)
	}
	sources := map[string]int{}
	for i, s := range ov.Sources {
		sources[s.ID] = i
	}

	mesh := ov.Sources[sources[mapctl.SourceMesh]].Data.Features[0].Geometry.(orb.MultiLineString)
	if len(mesh) == 0 {
		t.Fatal("empty mesh")
	}
	for _, ls := range mesh {
		for _, p := range ls {
			if !geospatial.Contains(f.Geometry, p) {
				t.Fatalf("mesh point %v outside boundary", p)
			}
		}
	}

	bounds, _ := geospatial.BoundingBox(f.Geometry[0])
	dirs := ov.Sources[sources[mapctl.SourceDirections]].Data.Features
	if len(dirs) != 4 {
		t.Fatalf("direction labels = %d", len(dirs))
	}
	for _, d := range dirs {
		p := d.Geometry.(orb.Point)
		inside := p.Lon() >= bounds.MinLng && p.Lon() <= bounds.MaxLng && p.Lat() >= bounds.MinLat && p.Lat() <= bounds.MaxLat
		if inside {
			t.Errorf("%s label %v inside bounding box", d.Properties["direction"], p)
		}
	}
	if dirs[0].Properties["name"] != "Silimakuta" {
		t.Errorf("north neighbour = %v", dirs[0].Properties["name"])
	}

	if n := len(ov.Sources[sources[mapctl.SourceLandmarks]].Data.Features); n != 3 {
		t.Errorf("landmarks = %d", n)
	}
}

func TestBoundaryOverlays_Offset(t *testing.T) {
	f := villageFeature(t)
	cfg := mapctl.DefaultOverlayConfig()
	cfg.Offset = [2]float64{0.01, 0}
	ov, err := mapctl.BoundaryOverlays(f, cfg)
	if err != nil {
		t.Fatalf("BoundaryOverlays: %v", err)
	}
	got := ov.Sources[0].Data.Features[0].Geometry.(orb.Polygon)
	if d := got[0][0][0] - f.Geometry[0][0][0]; d < 0.0099 || d > 0.0101 {
		t.Errorf("offset applied = %v", d)
	}
	if f.Geometry[0][0] != (orb.Point{98.600, 2.990}) {
		t.Error("input boundary mutated")
	}
}

func TestLoadOverlayConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlays.yaml")
	doc := `
neighbours:
  north: Utara Baru
landmarks:
  - name: Menara
    category: umum
    location: {lat: 2.99, lon: 98.6}
mesh_lines: 4
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := mapctl.LoadOverlayConfig(path)
	if err != nil {
		t.Fatalf("LoadOverlayConfig: %v", err)
	}
	if cfg.Neighbours.North != "Utara Baru" || cfg.MeshLines != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Landmarks) != 1 || cfg.Landmarks[0].Location.Lon != 98.6 {
		t.Errorf("landmarks = %+v", cfg.Landmarks)
	}
	if cfg.FillColor != "#4A90E2" {
		t.Errorf("unset fields should keep defaults, fill = %q", cfg.FillColor)
	}

	if _, err := mapctl.LoadOverlayConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
