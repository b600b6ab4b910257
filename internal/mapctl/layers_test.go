package mapctl_test

import (
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/mapctl"
)

func pointCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{98.6, 2.99}))
	return fc
}

func TestLayerRegistry_EnsureIsIdempotent(t *testing.T) {
	r := newFakeRenderer()
	reg := mapctl.NewLayerRegistry(r, testLogger)
	if err := reg.SetSource("pins", pointCollection()); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	l := mapctl.Layer{ID: "pins", Type: "circle", Source: "pins"}
	for i := 0; i < 3; i++ {
		if err := reg.Ensure(l); err != nil {
			t.Fatalf("Ensure #%d: %v", i, err)
		}
	}
	if r.addCalls["pins"] != 1 {
		t.Errorf("AddLayer called %d times", r.addCalls["pins"])
	}
	if len(reg.Layers()) != 1 {
		t.Errorf("declared layers = %d", len(reg.Layers()))
	}
}

func TestLayerRegistry_RemoveSourceTakesLayers(t *testing.T) {
	r := newFakeRenderer()
	reg := mapctl.NewLayerRegistry(r, testLogger)
	_ = reg.SetSource("a", pointCollection())
	_ = reg.SetSource("b", pointCollection())
	_ = reg.Ensure(mapctl.Layer{ID: "a-1", Type: "circle", Source: "a"})
	_ = reg.Ensure(mapctl.Layer{ID: "b-1", Type: "circle", Source: "b"})
	_ = reg.Ensure(mapctl.Layer{ID: "a-2", Type: "symbol", Source: "a"})

	reg.RemoveSource("a")
	if got := r.layerIDs(); !slices.Equal(got, []string{"b-1"}) {
		t.Errorf("renderer layers = %v", got)
	}
	if r.hasSource("a") {
		t.Error("source a still on renderer")
	}
	if reg.Has("a-1") || reg.Has("a-2") || !reg.Has("b-1") {
		t.Errorf("declared = %v", reg.Layers())
	}
	if !slices.Equal(reg.Sources(), []string{"b"}) {
		t.Errorf("sources = %v", reg.Sources())
	}

	// removing twice is harmless
	reg.RemoveSource("a")
	reg.RemoveLayer("missing")
}

func TestLayerRegistry_ReapplyAfterReset(t *testing.T) {
	r := newFakeRenderer()
	reg := mapctl.NewLayerRegistry(r, testLogger)
	_ = reg.SetSource("a", pointCollection())
	_ = reg.Ensure(mapctl.Layer{ID: "one", Type: "circle", Source: "a"})
	_ = reg.Ensure(mapctl.Layer{ID: "two", Type: "symbol", Source: "a"})

	// Reapply without a reset changes nothing.
	reg.Reapply()
	if r.addCalls["one"] != 1 {
		t.Errorf("layer re-added without reset")
	}

	r.wipe()
	reg.Reset()
	reg.Reapply()
	if got := r.layerIDs(); !slices.Equal(got, []string{"one", "two"}) {
		t.Errorf("layers = %v", got)
	}
	if !r.hasSource("a") {
		t.Error("source not restored")
	}
}

func TestLayerRegistry_TerrainSurvivesReset(t *testing.T) {
	r := newFakeRenderer()
	reg := mapctl.NewLayerRegistry(r, testLogger)
	if _, ok := reg.Terrain(); ok {
		t.Fatal("fresh registry reports terrain")
	}
	if err := reg.SetTerrain(mapctl.DefaultTerrain()); err != nil {
		t.Fatalf("SetTerrain: %v", err)
	}
	if err := reg.Ensure(mapctl.SkyLayer()); err != nil {
		t.Fatalf("Ensure sky: %v", err)
	}

	r.wipe()
	reg.Reset()
	reg.Reapply()
	if tr := r.currentTerrain(); tr == nil || tr.URL == "" {
		t.Errorf("terrain not restored: %+v", tr)
	}
	if got := r.layerIDs(); !slices.Equal(got, []string{mapctl.LayerSky}) {
		t.Errorf("layers = %v", got)
	}
}
