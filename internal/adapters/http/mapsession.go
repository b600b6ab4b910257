package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/mapctl"
	"github.com/samirrijal/villagemap/internal/pkg/eventbus"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
)

// MapSessionConfig is shared by every map session served over /v1/map/ws.
type MapSessionConfig struct {
	Loader   *mapctl.BoundaryLoader
	Routing  ports.RoutingProvider
	Geocoder ports.ReverseGeocoder
	Overlays *mapctl.OverlayConfig
	Terrain  *mapctl.Terrain

	Camera         mapctl.Camera
	FocusZoom      float64
	Styles         mapctl.Styles
	LoadingTimeout time.Duration
	PulseFPS       int
	PulsePeriod    time.Duration

	// Updates triggers a boundary reload in every open session.
	Updates *eventbus.Bus[domain.RegionsUpdated]
	Logger  *slog.Logger
}

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// command is one instruction for the browser map engine.
type command struct {
	Op       string                     `json:"op"`
	ID       string                     `json:"id,omitempty"`
	Data     *geojson.FeatureCollection `json:"data,omitempty"`
	Layer    *mapctl.Layer              `json:"layer,omitempty"`
	Terrain  *mapctl.Terrain            `json:"terrain,omitempty"`
	Property string                     `json:"property,omitempty"`
	Value    any                        `json:"value,omitempty"`
	URL      string                     `json:"url,omitempty"`
	Mode     mapctl.DrawMode            `json:"mode,omitempty"`
	Loading  *bool                      `json:"loading,omitempty"`
	Camera   *mapctl.Camera             `json:"camera,omitempty"`
	Message  string                     `json:"message,omitempty"`
	Filename string                     `json:"filename,omitempty"`
	Content  string                     `json:"content,omitempty"`
	State    *mapctl.State              `json:"state,omitempty"`
	Found    *bool                      `json:"found,omitempty"`
}

// wsRenderer forwards renderer calls to the browser as JSON commands.
type wsRenderer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsRenderer) send(cmd command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Op, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsRenderer) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsRenderer) SetSource(id string, data *geojson.FeatureCollection) error {
	return w.send(command{Op: "set_source", ID: id, Data: data})
}

func (w *wsRenderer) RemoveSource(id string) error {
	return w.send(command{Op: "remove_source", ID: id})
}

func (w *wsRenderer) AddLayer(layer mapctl.Layer) error {
	return w.send(command{Op: "add_layer", Layer: &layer})
}

func (w *wsRenderer) RemoveLayer(id string) error {
	return w.send(command{Op: "remove_layer", ID: id})
}

func (w *wsRenderer) SetPaint(layerID, property string, value any) error {
	return w.send(command{Op: "set_paint", ID: layerID, Property: property, Value: value})
}

func (w *wsRenderer) SetStyle(url string) error {
	return w.send(command{Op: "set_style", URL: url})
}

func (w *wsRenderer) SetTerrain(t mapctl.Terrain) error {
	return w.send(command{Op: "set_terrain", Terrain: &t})
}

func (w *wsRenderer) SetDrawMode(mode mapctl.DrawMode) error {
	return w.send(command{Op: "draw_mode", Mode: mode})
}

func (w *wsRenderer) ClearDrawing() error {
	return w.send(command{Op: "clear_drawing"})
}

func (w *wsRenderer) SetLoading(loading bool) error {
	return w.send(command{Op: "loading", Loading: &loading})
}

func (w *wsRenderer) FlyTo(cam mapctl.Camera) error {
	return w.send(command{Op: "fly_to", Camera: &cam})
}

func (w *wsRenderer) Toast(message string) error {
	return w.send(command{Op: "toast", Message: message})
}

func (w *wsRenderer) Download(filename string, content []byte) error {
	return w.send(command{Op: "download", Filename: filename, Content: string(content)})
}

func (w *wsRenderer) State(state mapctl.State) error {
	return w.send(command{Op: "state", State: &state})
}

// clientMessage is an event reported by the browser.
//
//	{"type":"ready"}
//	{"type":"click","point":[98.61,2.99]}
//	{"type":"mode","mode":"routing"}
//	{"type":"polygon","geometry":{...}}   geometry may be null
//	{"type":"style_loaded"}
//	{"type":"export"}
//	{"type":"search","query":"paropo"}
//	{"type":"theme","dark":true}
type clientMessage struct {
	Type     string          `json:"type"`
	Point    []float64       `json:"point,omitempty"`
	Mode     string          `json:"mode,omitempty"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
	Query    string          `json:"query,omitempty"`
	Dark     bool            `json:"dark,omitempty"`
}

// MapSessionHandler runs one map controller per WebSocket connection.
func MapSessionHandler(cfg *MapSessionConfig) func(*websocket.Conn) {
	if cfg == nil {
		cfg = &MapSessionConfig{}
	}
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}

	return func(conn *websocket.Conn) {
		defer conn.Close()

		id := utils.UUIDv4()
		logger := base.With("remote", conn.RemoteAddr().String())
		r := &wsRenderer{conn: conn}

		// init goes out before the controller starts writing
		if err := r.send(command{Op: "init", ID: id, URL: cfg.Styles.Light, Camera: &cfg.Camera}); err != nil {
			logger.Warn("map session init failed", "error", err)
			return
		}

		ctrl := mapctl.New(mapctl.Options{
			ID:             id,
			Renderer:       r,
			Loader:         cfg.Loader,
			Routing:        cfg.Routing,
			Geocoder:       cfg.Geocoder,
			Overlays:       cfg.Overlays,
			Terrain:        cfg.Terrain,
			Camera:         cfg.Camera,
			FocusZoom:      cfg.FocusZoom,
			Styles:         cfg.Styles,
			LoadingTimeout: cfg.LoadingTimeout,
			PulseFPS:       cfg.PulseFPS,
			PulsePeriod:    cfg.PulsePeriod,
			Logger:         logger,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := ctrl.Run(ctx); err != nil {
				logger.Error("map session stopped", "error", err)
			}
		}()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Info("map session opened", "session", id)

		if cfg.Updates != nil {
			updates := cfg.Updates.Subscribe()
			defer cfg.Updates.Unsubscribe(updates)
			go func() {
				for {
					select {
					case ev, ok := <-updates:
						if !ok {
							return
						}
						logger.Debug("regions updated, reloading boundary", "source", ev.Source, "codes", len(ev.Codes))
						if err := ctrl.ReloadBoundary(); err != nil {
							return
						}
					case <-ctrl.Done():
						return
					}
				}
			}()
		}

		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := r.ping(); err != nil {
						return
					}
				case <-ctrl.Done():
					return
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := dispatch(ctrl, msg); err != nil {
				if errors.Is(err, mapctl.ErrClosed) {
					break
				}
				_ = r.send(command{Op: "error", Message: err.Error()})
			}
		}

		ctrl.Close()
		<-ctrl.Done()
		logger.Info("map session closed", "session", id)
	}
}

// dispatch applies one client message to the controller.
func dispatch(ctrl *mapctl.Controller, raw []byte) error {
	var m clientMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.New("invalid JSON")
	}

	switch m.Type {
	case "ready":
		return ctrl.Ready()
	case "style_loaded":
		return ctrl.StyleLoaded()
	case "theme":
		return ctrl.SetTheme(m.Dark)
	case "mode":
		mode, err := domain.ParseToolMode(m.Mode)
		if err != nil {
			return err
		}
		return ctrl.SetMode(mode)
	case "click":
		if len(m.Point) != 2 {
			return fmt.Errorf("%w: point must be [lng, lat]", domain.ErrInvalidGeometry)
		}
		return ctrl.Click(orb.Point{m.Point[0], m.Point[1]})
	case "polygon":
		poly, err := parseDrawnPolygon(m.Geometry)
		if err != nil {
			return err
		}
		return ctrl.PolygonEdited(poly)
	case "export":
		_, err := ctrl.ExportReport()
		if errors.Is(err, domain.ErrNoActiveMeasurement) {
			return nil
		}
		return err
	case "search":
		_, err := ctrl.Search(m.Query)
		return err
	}
	return fmt.Errorf("unknown message type %q", m.Type)
}

// parseDrawnPolygon accepts a GeoJSON Polygon geometry or a Feature
// wrapping one. Null means the drawing was deleted.
func parseDrawnPolygon(raw json.RawMessage) (*orb.Polygon, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
	}

	var g orb.Geometry
	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
		}
		g = f.Geometry
	default:
		geom, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
		}
		g = geom.Geometry()
	}

	poly, ok := g.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("%w: expected Polygon, got %T", domain.ErrInvalidGeometry, g)
	}
	return &poly, nil
}
