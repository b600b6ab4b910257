package mapctl_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/mapctl"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// --- fake renderer ---

type paintCall struct {
	layer, property string
	value           any
}

type download struct {
	filename string
	content  []byte
}

// fakeRenderer keeps a scene the way a map engine would: layers need
// their source, sources cannot be removed while drawn.
type fakeRenderer struct {
	mu sync.Mutex

	sources  map[string]*geojson.FeatureCollection
	layers   []mapctl.Layer
	paints   []paintCall
	drawMode mapctl.DrawMode
	clears   int
	loading  []bool
	cameras  []mapctl.Camera
	toasts   []string
	files    []download
	styles   []string
	states   []mapctl.State
	terrain  *mapctl.Terrain
	addCalls map[string]int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		sources:  make(map[string]*geojson.FeatureCollection),
		addCalls: make(map[string]int),
	}
}

func (f *fakeRenderer) SetSource(id string, data *geojson.FeatureCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[id] = data
	return nil
}

func (f *fakeRenderer) RemoveSource(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.layers {
		if l.Source == id {
			return fmt.Errorf("source %s in use by %s", id, l.ID)
		}
	}
	if _, ok := f.sources[id]; !ok {
		return fmt.Errorf("no source %s", id)
	}
	delete(f.sources, id)
	return nil
}

func (f *fakeRenderer) AddLayer(l mapctl.Layer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sources[l.Source]; !ok && l.Type != "sky" {
		return fmt.Errorf("layer %s: no source %s", l.ID, l.Source)
	}
	for _, have := range f.layers {
		if have.ID == l.ID {
			return fmt.Errorf("layer %s already exists", l.ID)
		}
	}
	f.layers = append(f.layers, l)
	f.addCalls[l.ID]++
	return nil
}

func (f *fakeRenderer) RemoveLayer(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.layers {
		if l.ID == id {
			f.layers = append(f.layers[:i], f.layers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no layer %s", id)
}

func (f *fakeRenderer) SetPaint(layer, property string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paints = append(f.paints, paintCall{layer, property, value})
	return nil
}

func (f *fakeRenderer) SetStyle(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.styles = append(f.styles, url)
	return nil
}

func (f *fakeRenderer) SetTerrain(t mapctl.Terrain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terrain = &t
	return nil
}

func (f *fakeRenderer) SetDrawMode(m mapctl.DrawMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drawMode = m
	return nil
}

func (f *fakeRenderer) ClearDrawing() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeRenderer) SetLoading(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = append(f.loading, v)
	return nil
}

func (f *fakeRenderer) FlyTo(c mapctl.Camera) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cameras = append(f.cameras, c)
	return nil
}

func (f *fakeRenderer) Toast(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, msg)
	return nil
}

func (f *fakeRenderer) Download(name string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, download{name, content})
	return nil
}

func (f *fakeRenderer) State(s mapctl.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, s)
	return nil
}

// wipe drops every source and layer, as a basemap style swap does.
func (f *fakeRenderer) wipe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = make(map[string]*geojson.FeatureCollection)
	f.layers = nil
	f.terrain = nil
}

func (f *fakeRenderer) currentTerrain() *mapctl.Terrain {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terrain
}

func (f *fakeRenderer) layerIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.layers))
	for i, l := range f.layers {
		ids[i] = l.ID
	}
	return ids
}

func (f *fakeRenderer) hasSource(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sources[id]
	return ok
}

func (f *fakeRenderer) source(id string) *geojson.FeatureCollection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources[id]
}

func (f *fakeRenderer) lastDrawMode() mapctl.DrawMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drawMode
}

func (f *fakeRenderer) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

func (f *fakeRenderer) lastLoading() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loading) == 0 {
		return false, false
	}
	return f.loading[len(f.loading)-1], true
}

func (f *fakeRenderer) lastCamera() mapctl.Camera {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cameras) == 0 {
		return mapctl.Camera{}
	}
	return f.cameras[len(f.cameras)-1]
}

func (f *fakeRenderer) cameraCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cameras)
}

func (f *fakeRenderer) toastList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.toasts...)
}

func (f *fakeRenderer) downloads() []download {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]download(nil), f.files...)
}

func (f *fakeRenderer) outlinePaints() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.paints {
		if p.layer == mapctl.LayerOutline && p.property == "line-opacity" {
			n++
		}
	}
	return n
}

// --- mocks ---

type mockSource struct {
	name    string
	fetchFn func(ctx context.Context) (*geojson.FeatureCollection, error)
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	return m.fetchFn(ctx)
}

func staticSource(name string, fc *geojson.FeatureCollection) *mockSource {
	return &mockSource{name: name, fetchFn: func(context.Context) (*geojson.FeatureCollection, error) {
		return fc, nil
	}}
}

type mockRouting struct {
	mu      sync.Mutex
	calls   [][2]orb.Point
	routeFn func(ctx context.Context, origin, destination orb.Point) (*domain.Route, error)
}

func (m *mockRouting) Route(ctx context.Context, origin, destination orb.Point) (*domain.Route, error) {
	m.mu.Lock()
	m.calls = append(m.calls, [2]orb.Point{origin, destination})
	m.mu.Unlock()
	return m.routeFn(ctx, origin, destination)
}

func (m *mockRouting) callList() [][2]orb.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]orb.Point(nil), m.calls...)
}

// straightRoute answers with the direct line between the two points.
func straightRoute() *mockRouting {
	return &mockRouting{routeFn: func(_ context.Context, o, d orb.Point) (*domain.Route, error) {
		return &domain.Route{Geometry: orb.LineString{o, d}}, nil
	}}
}

type mockGeocoder struct {
	reverseFn func(ctx context.Context, p orb.Point) (*domain.Address, error)
}

func (m *mockGeocoder) Reverse(ctx context.Context, p orb.Point) (*domain.Address, error) {
	return m.reverseFn(ctx, p)
}

// --- fixtures ---

const metersPerDegree = 2 * math.Pi * 6378137.0 / 360

// squarePolygon returns a closed square with the given side length whose
// south-west corner is at origin.
func squarePolygon(origin orb.Point, side float64) orb.Polygon {
	dLat := side / metersPerDegree
	dLng := dLat / math.Cos(origin.Lat()*math.Pi/180)
	return orb.Polygon{{
		origin,
		{origin.Lon() + dLng, origin.Lat()},
		{origin.Lon() + dLng, origin.Lat() + dLat},
		{origin.Lon(), origin.Lat() + dLat},
		origin,
	}}
}

func villageCollection() *geojson.FeatureCollection {
	f := geojson.NewFeature(orb.Polygon{{
		{98.600, 2.990}, {98.618, 2.990}, {98.618, 3.004}, {98.600, 3.004}, {98.600, 2.990},
	}})
	f.Properties = geojson.Properties{"name": "Saribudolok", "code": "12.08.25.1012", "level": "Desa (Village)"}
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func newTestController(t *testing.T, mutate ...func(*mapctl.Options)) (*mapctl.Controller, *fakeRenderer) {
	t.Helper()
	r := newFakeRenderer()
	opts := mapctl.Options{
		ID:       t.Name(),
		Renderer: r,
		Loader:   mapctl.NewBoundaryLoader(staticSource("primary", villageCollection()), nil, time.Second, orb.Point{}, testLogger),
		Routing:  straightRoute(),
		Styles:   mapctl.Styles{Light: "light.json", Dark: "dark.json"},
		Logger:   testLogger,
		Now:      func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	c := mapctl.New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c, r
}

func settle(t *testing.T, c *mapctl.Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

func snapshot(t *testing.T, c *mapctl.Controller) mapctl.State {
	t.Helper()
	s, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return s
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
