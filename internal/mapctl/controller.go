package mapctl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/pkg/geospatial"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
)

// ErrClosed is returned by controller methods once Run has returned.
var ErrClosed = errors.New("map session closed")

// NotFoundMessage is the toast shown for an unmatched search.
const NotFoundMessage = "Lokasi tidak ditemukan"

// Styles are the basemap style URLs per theme.
type Styles struct {
	Light string
	Dark  string
}

// Options configure a Controller. Only Renderer is required.
type Options struct {
	ID       string
	Renderer Renderer
	Loader   *BoundaryLoader
	Routing  ports.RoutingProvider
	Geocoder ports.ReverseGeocoder
	Overlays *OverlayConfig
	// Terrain drapes the map over elevation data. Nil keeps it flat.
	Terrain *Terrain

	Camera         Camera
	FocusZoom      float64
	Styles         Styles
	LoadingTimeout time.Duration
	PulseFPS       int
	PulsePeriod    time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// State is the session state published to the client after every event.
type State struct {
	Mode        domain.ToolMode           `json:"mode"`
	Loading     bool                      `json:"loading"`
	Dark        bool                      `json:"dark"`
	Boundary    *domain.BoundaryFeature   `json:"boundary,omitempty"`
	Measurement *domain.MeasurementResult `json:"measurement,omitempty"`
	Polygon     orb.Polygon               `json:"-"`
	RoutePoints []orb.Point               `json:"route_points,omitempty"`
	Addresses   []string                  `json:"addresses,omitempty"`
	Route       *domain.RouteResult       `json:"route,omitempty"`
}

// Controller owns every piece of mutable state of one map session. All
// events run one at a time on the goroutine executing Run; network work
// runs elsewhere and posts its result back.
type Controller struct {
	opts     Options
	r        Renderer
	logger   *slog.Logger
	overlays OverlayConfig

	queue     chan func()
	done      chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
	started   atomic.Bool
	pending   atomic.Int64

	// Loop-owned from here on.
	ctx         context.Context
	layers      *LayerRegistry
	modes       *ToolModes
	measure     *MeasurementSession
	route       *RoutingSession
	loading     bool
	ready       bool
	focused     bool
	dark        bool
	boundary    *domain.BoundaryFeature
	boundarySeq uint64
	watchdog    *time.Timer
	pulse       *pulse
}

// New builds a controller. Call Run to start it.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ID != "" {
		logger = logger.With("session", opts.ID)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoadingTimeout <= 0 {
		opts.LoadingTimeout = 8 * time.Second
	}
	if opts.FocusZoom == 0 {
		opts.FocusZoom = 15.5
	}
	if opts.PulsePeriod <= 0 {
		opts.PulsePeriod = 2 * time.Second
	}
	if opts.Camera.Center == (orb.Point{}) {
		opts.Camera = Camera{Center: DefaultCenter, Zoom: 14, Pitch: 60, Bearing: -17}
	}
	if opts.Loader == nil {
		opts.Loader = NewBoundaryLoader(nil, nil, 0, opts.Camera.Center, logger)
	}
	overlays := DefaultOverlayConfig()
	if opts.Overlays != nil {
		overlays = *opts.Overlays
	}

	c := &Controller{
		opts:     opts,
		r:        opts.Renderer,
		logger:   logger,
		overlays: overlays,
		queue:    make(chan func()),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
		ctx:      context.Background(),
	}
	c.layers = NewLayerRegistry(c.r, logger)
	c.measure = newMeasurementSession(c.r, logger)
	c.route = newRoutingSession(c.layers, opts.Routing, opts.Geocoder, c.spawn, logger)
	c.modes = NewToolModes(c.measure, c.route)
	return c
}

// Run processes events until ctx is cancelled or Close is called.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("controller already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	defer close(c.done)
	c.start()
	defer c.teardown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stop:
			return nil
		case fn := <-c.queue:
			fn()
		}
	}
}

// Close stops Run. It is safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Settle waits until every spawned request has returned and its result
// has been applied on the loop.
func (c *Controller) Settle(ctx context.Context) error {
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
	return nil
}

func (c *Controller) start() {
	c.loading = true
	c.warn(c.r.SetLoading(true), "show loading")
	c.warn(c.r.FlyTo(c.opts.Camera), "initial camera")
	c.watchdog = time.AfterFunc(c.opts.LoadingTimeout, func() {
		c.post(func() {
			if c.loading {
				c.logger.Warn("map not ready in time, hiding loading overlay", "timeout", c.opts.LoadingTimeout)
				c.clearLoading()
				c.publishState()
			}
		})
	})
	c.publishState()
}

func (c *Controller) teardown() {
	if c.watchdog != nil {
		c.watchdog.Stop()
	}
	if c.pulse != nil {
		c.pulse.stop()
		c.pulse = nil
	}
	c.logger.Debug("map session stopped")
}

func (c *Controller) post(fn func()) bool {
	select {
	case c.queue <- fn:
		return true
	case <-c.done:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(fn func()) error {
	finished := make(chan struct{})
	if !c.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	<-finished
	return nil
}

// do is call followed by a state publication.
func (c *Controller) do(fn func()) error {
	return c.call(func() {
		fn()
		c.publishState()
	})
}

func (c *Controller) spawn(kind string, work func(ctx context.Context) func()) {
	c.pending.Add(1)
	ctx := c.ctx
	go func() {
		apply := work(ctx)
		posted := c.post(func() {
			defer c.pending.Add(-1)
			if apply != nil {
				apply()
			}
			c.publishState()
		})
		if !posted {
			c.pending.Add(-1)
		}
	}()
}

func (c *Controller) warn(err error, op string) {
	if err != nil {
		c.logger.Warn("renderer call failed", "op", op, "error", err)
	}
}

// Ready reports that the map engine finished its first load. The boundary
// is fetched once, on the first call.
func (c *Controller) Ready() error {
	return c.do(func() {
		c.clearLoading()
		if c.ready {
			return
		}
		c.ready = true
		c.applyTerrain()
		c.loadBoundary()
	})
}

// ReloadBoundary fetches the boundary again, as after a regions update.
func (c *Controller) ReloadBoundary() error {
	return c.do(func() {
		if c.ready {
			c.loadBoundary()
		}
	})
}

func (c *Controller) clearLoading() {
	if !c.loading {
		return
	}
	c.loading = false
	if c.watchdog != nil {
		c.watchdog.Stop()
	}
	c.warn(c.r.SetLoading(false), "hide loading")
}

// applyTerrain declares the elevation source and the sky layer. Both live
// in the registry, so a style swap restores them with the overlays.
func (c *Controller) applyTerrain() {
	t := c.opts.Terrain
	if t == nil {
		return
	}
	if err := c.layers.SetTerrain(*t); err != nil {
		c.warn(err, "set terrain")
		return
	}
	c.warn(c.layers.Ensure(SkyLayer()), "add sky")
}

func (c *Controller) loadBoundary() {
	c.boundarySeq++
	seq := c.boundarySeq
	loader := c.opts.Loader
	c.spawn("boundary", func(ctx context.Context) func() {
		f := loader.Load(ctx)
		return func() {
			if seq != c.boundarySeq {
				metrics.StaleResults.WithLabelValues("boundary").Inc()
				return
			}
			c.applyBoundary(f)
		}
	})
}

func (c *Controller) applyBoundary(f domain.BoundaryFeature) {
	ov, err := BoundaryOverlays(f, c.overlays)
	if err != nil {
		c.logger.Error("boundary overlays rejected", "error", err)
		return
	}
	c.boundary = &f
	if err := ov.Apply(c.layers); err != nil {
		c.logger.Warn("apply boundary overlays", "error", err)
	}
	if !c.focused {
		c.focused = true
		cam := c.opts.Camera
		cam.Center = geospatial.Centroid(c.overlays.Place(f.Geometry))
		cam.Zoom = c.opts.FocusZoom
		c.warn(c.r.FlyTo(cam), "focus boundary")
	}
	if c.pulse == nil && c.opts.PulseFPS > 0 {
		var p *pulse
		p = startPulse(c.opts.PulseFPS, c.post, func(elapsed time.Duration) {
			if c.pulse != p || !c.layers.Has(LayerOutline) {
				return
			}
			if err := c.r.SetPaint(LayerOutline, "line-opacity", pulseOpacity(elapsed, c.opts.PulsePeriod)); err != nil {
				c.logger.Debug("pulse frame dropped", "error", err)
			}
		})
		c.pulse = p
	}
}

// StyleLoaded re-declares every overlay after a basemap style swap.
func (c *Controller) StyleLoaded() error {
	return c.do(func() {
		c.layers.Reset()
		c.layers.Reapply()
	})
}

// SetTheme swaps between the light and dark basemap.
func (c *Controller) SetTheme(dark bool) error {
	return c.do(func() {
		if dark == c.dark {
			return
		}
		c.dark = dark
		url := c.opts.Styles.Light
		if dark {
			url = c.opts.Styles.Dark
		}
		if url == "" {
			return
		}
		c.warn(c.r.SetStyle(url), "set style")
	})
}

// SetMode switches the active tool.
func (c *Controller) SetMode(m domain.ToolMode) error {
	return c.do(func() {
		if c.modes.Set(m) {
			c.logger.Debug("tool mode changed", "mode", m.String())
		}
	})
}

// Click handles a map click. Only routing mode reacts to it.
func (c *Controller) Click(p orb.Point) error {
	if !geospatial.ValidCoordinate(p) {
		return domain.ErrInvalidGeometry
	}
	return c.do(func() {
		if c.modes.Current() == domain.ModeRouting {
			c.route.Pick(p)
		}
	})
}

// PolygonEdited forwards a draw-tool change. A nil polygon means the
// drawing was deleted.
func (c *Controller) PolygonEdited(p *orb.Polygon) error {
	var err error
	if cerr := c.do(func() { err = c.measure.Edited(p) }); cerr != nil {
		return cerr
	}
	return err
}

// ExportReport builds the measurement report and hands it to the renderer
// as a download.
func (c *Controller) ExportReport() (*Report, error) {
	var (
		rep *Report
		err error
	)
	cerr := c.call(func() {
		label := domain.UnknownProperty
		if c.boundary != nil {
			label = c.boundary.Label()
		}
		rep, err = c.measure.Export(label, c.opts.Now())
		if err != nil {
			c.logger.Info("nothing to export", "error", err)
			return
		}
		metrics.MeasurementExports.Inc()
		c.warn(c.r.Download(rep.Filename, rep.Content), "download report")
	})
	if cerr != nil {
		return nil, cerr
	}
	return rep, err
}

// Search flies to the first landmark, or the boundary itself, whose name
// contains q. It reports whether anything matched.
func (c *Controller) Search(q string) (bool, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return false, nil
	}
	var found bool
	err := c.call(func() {
		needle := strings.ToLower(q)
		cam := c.opts.Camera
		cam.Zoom = c.opts.FocusZoom
		for _, lm := range c.overlays.Landmarks {
			if strings.Contains(strings.ToLower(lm.Name), needle) {
				cam.Center = lm.Location.Point()
				found = true
				break
			}
		}
		if !found && c.boundary != nil && strings.Contains(strings.ToLower(c.boundary.Properties.Name), needle) {
			cam.Center = geospatial.Centroid(c.overlays.Place(c.boundary.Geometry))
			found = true
		}
		if found {
			c.warn(c.r.FlyTo(cam), "search")
			return
		}
		c.warn(c.r.Toast(NotFoundMessage), "toast")
	})
	return found, err
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() (State, error) {
	var s State
	err := c.call(func() { s = c.snapshot() })
	return s, err
}

func (c *Controller) snapshot() State {
	s := State{
		Mode:        c.modes.Current(),
		Loading:     c.loading,
		Dark:        c.dark,
		Measurement: c.measure.Result(),
		Polygon:     c.measure.Polygon(),
		RoutePoints: c.route.Points(),
		Addresses:   c.route.Addresses(),
		Route:       c.route.Result(),
	}
	if c.boundary != nil {
		b := *c.boundary
		s.Boundary = &b
	}
	return s
}

func (c *Controller) publishState() {
	c.warn(c.r.State(c.snapshot()), "publish state")
}
