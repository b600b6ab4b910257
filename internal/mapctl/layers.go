package mapctl

import (
	"log/slog"

	"github.com/paulmach/orb/geojson"
)

// LayerRegistry is the declarative set of sources and layers a session
// wants on the map. It remembers what the renderer currently holds, so
// Ensure is add-if-absent and Reapply restores everything after a style
// swap.
type LayerRegistry struct {
	r      Renderer
	logger *slog.Logger

	sources  map[string]*geojson.FeatureCollection
	srcOrder []string
	layers   []Layer
	terrain  *Terrain

	present map[string]bool
}

// NewLayerRegistry creates an empty registry.
func NewLayerRegistry(r Renderer, logger *slog.Logger) *LayerRegistry {
	return &LayerRegistry{
		r:       r,
		logger:  logger,
		sources: make(map[string]*geojson.FeatureCollection),
		present: make(map[string]bool),
	}
}

func sourceKey(id string) string { return "source:" + id }
func layerKey(id string) string  { return "layer:" + id }

const terrainKey = "terrain"

// SetTerrain declares the elevation source. Reapply restores it ahead of
// every other source.
func (g *LayerRegistry) SetTerrain(t Terrain) error {
	g.terrain = &t
	if err := g.r.SetTerrain(t); err != nil {
		return err
	}
	g.present[terrainKey] = true
	return nil
}

// Terrain returns the declared terrain, if any.
func (g *LayerRegistry) Terrain() (Terrain, bool) {
	if g.terrain == nil {
		return Terrain{}, false
	}
	return *g.terrain, true
}

// SetSource declares a source or replaces its data.
func (g *LayerRegistry) SetSource(id string, data *geojson.FeatureCollection) error {
	if _, ok := g.sources[id]; !ok {
		g.srcOrder = append(g.srcOrder, id)
	}
	g.sources[id] = data
	if err := g.r.SetSource(id, data); err != nil {
		return err
	}
	g.present[sourceKey(id)] = true
	return nil
}

// Ensure declares a layer and adds it to the renderer unless already there.
func (g *LayerRegistry) Ensure(layer Layer) error {
	if g.indexOf(layer.ID) < 0 {
		g.layers = append(g.layers, layer)
	}
	if g.present[layerKey(layer.ID)] {
		return nil
	}
	if err := g.r.AddLayer(layer); err != nil {
		return err
	}
	g.present[layerKey(layer.ID)] = true
	return nil
}

// RemoveLayer forgets a layer and removes it from the renderer.
func (g *LayerRegistry) RemoveLayer(id string) {
	if i := g.indexOf(id); i >= 0 {
		g.layers = append(g.layers[:i], g.layers[i+1:]...)
	}
	if g.present[layerKey(id)] {
		if err := g.r.RemoveLayer(id); err != nil {
			g.logger.Debug("remove layer failed", "layer", id, "error", err)
		}
		delete(g.present, layerKey(id))
	}
}

// RemoveSource removes a source together with the layers drawing it.
func (g *LayerRegistry) RemoveSource(id string) {
	for _, l := range g.Layers() {
		if l.Source == id {
			g.RemoveLayer(l.ID)
		}
	}
	if _, ok := g.sources[id]; ok {
		delete(g.sources, id)
		for i, s := range g.srcOrder {
			if s == id {
				g.srcOrder = append(g.srcOrder[:i], g.srcOrder[i+1:]...)
				break
			}
		}
	}
	if g.present[sourceKey(id)] {
		if err := g.r.RemoveSource(id); err != nil {
			g.logger.Debug("remove source failed", "source", id, "error", err)
		}
		delete(g.present, sourceKey(id))
	}
}

// Reset forgets what the renderer holds, as after a style swap.
func (g *LayerRegistry) Reset() {
	g.present = make(map[string]bool)
}

// Reapply re-adds every declared source, then every layer, in declaration
// order. Failures are logged and the rest still applied.
func (g *LayerRegistry) Reapply() {
	if g.terrain != nil && !g.present[terrainKey] {
		if err := g.r.SetTerrain(*g.terrain); err != nil {
			g.logger.Warn("reapply terrain failed", "error", err)
		} else {
			g.present[terrainKey] = true
		}
	}
	for _, id := range g.srcOrder {
		if g.present[sourceKey(id)] {
			continue
		}
		if err := g.r.SetSource(id, g.sources[id]); err != nil {
			g.logger.Warn("reapply source failed", "source", id, "error", err)
			continue
		}
		g.present[sourceKey(id)] = true
	}
	for _, l := range g.layers {
		if err := g.Ensure(l); err != nil {
			g.logger.Warn("reapply layer failed", "layer", l.ID, "error", err)
		}
	}
}

// Has reports whether a layer is declared.
func (g *LayerRegistry) Has(id string) bool {
	return g.indexOf(id) >= 0
}

// Layers returns the declared layers in order.
func (g *LayerRegistry) Layers() []Layer {
	out := make([]Layer, len(g.layers))
	copy(out, g.layers)
	return out
}

// Sources returns the declared source ids in order.
func (g *LayerRegistry) Sources() []string {
	out := make([]string, len(g.srcOrder))
	copy(out, g.srcOrder)
	return out
}

func (g *LayerRegistry) indexOf(id string) int {
	for i, l := range g.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}
