package mapctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/pkg/geospatial"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
)

// Route overlay ids.
const (
	SourceRouteLine     = "route-line"
	SourceRoutePoints   = "route-points"
	SourceRouteMidpoint = "route-midpoint"

	LayerRouteLine     = "route-line"
	LayerRoutePoints   = "route-points"
	LayerRoutePtLabels = "route-point-labels"
	LayerRouteMidpoint = "route-midpoint-label"
)

// spawnFunc runs work off the loop and applies the returned closure on it.
type spawnFunc func(kind string, work func(ctx context.Context) func())

// RoutingSession collects an origin and a destination from map clicks and
// shows the driving route between them.
type RoutingSession struct {
	layers   *LayerRegistry
	provider ports.RoutingProvider
	geocoder ports.ReverseGeocoder
	spawn    spawnFunc
	logger   *slog.Logger

	armed     bool
	points    []orb.Point
	addresses []string
	result    *domain.RouteResult
	// epoch identifies the current point set. Async results captured
	// under an older epoch are dropped.
	epoch uint64
}

func newRoutingSession(layers *LayerRegistry, provider ports.RoutingProvider, geocoder ports.ReverseGeocoder, spawn spawnFunc, logger *slog.Logger) *RoutingSession {
	return &RoutingSession{
		layers:   layers,
		provider: provider,
		geocoder: geocoder,
		spawn:    spawn,
		logger:   logger.With("tool", "route"),
	}
}

func (s *RoutingSession) Enter() { s.armed = true }

func (s *RoutingSession) Leave() {
	s.armed = false
	s.clear()
}

func (s *RoutingSession) clear() {
	s.epoch++
	hadOverlays := len(s.points) > 0 || s.result != nil
	s.points = nil
	s.addresses = nil
	s.result = nil
	if hadOverlays {
		s.layers.RemoveSource(SourceRouteLine)
		s.layers.RemoveSource(SourceRouteMidpoint)
		s.layers.RemoveSource(SourceRoutePoints)
	}
}

// Pick adds a point. A third pick starts over with the new point as origin.
func (s *RoutingSession) Pick(p orb.Point) {
	if !s.armed {
		return
	}
	if len(s.points) == 2 {
		s.clear()
	}
	s.points = append(s.points, p)
	s.addresses = append(s.addresses, domain.CoordinateLabel(p))
	s.render()

	s.resolveAddress(len(s.points)-1, p)
	if len(s.points) == 2 {
		s.requestRoute(s.points[0], s.points[1])
	}
}

func (s *RoutingSession) resolveAddress(idx int, p orb.Point) {
	if s.geocoder == nil {
		return
	}
	epoch := s.epoch
	s.spawn("geocode", func(ctx context.Context) func() {
		addr, err := s.geocoder.Reverse(ctx, p)
		return func() {
			if epoch != s.epoch || !s.armed || idx >= len(s.points) {
				metrics.StaleResults.WithLabelValues("geocode").Inc()
				return
			}
			if err != nil {
				s.logger.Debug("reverse geocode failed, keeping coordinates", "error", err)
				return
			}
			if label := addr.Label(); label != "" {
				s.addresses[idx] = label
				s.render()
			}
		}
	})
}

func (s *RoutingSession) requestRoute(origin, destination orb.Point) {
	if s.provider == nil {
		return
	}
	epoch := s.epoch
	s.spawn("route", func(ctx context.Context) func() {
		route, err := s.provider.Route(ctx, origin, destination)
		return func() {
			if epoch != s.epoch || !s.armed || len(s.points) != 2 {
				metrics.StaleResults.WithLabelValues("route").Inc()
				return
			}
			if err != nil {
				if errors.Is(err, domain.ErrRouteNotFound) {
					s.logger.Info("no route between points", "error", err)
				} else {
					s.logger.Warn("routing unavailable", "error", err)
				}
				return
			}
			res, err := BuildRouteResult(route)
			if err != nil {
				s.logger.Warn("route rejected", "error", err)
				return
			}
			s.result = res
			s.render()
		}
	})
}

// Points returns the picked points.
func (s *RoutingSession) Points() []orb.Point {
	return append([]orb.Point(nil), s.points...)
}

// Addresses returns the labels of the picked points.
func (s *RoutingSession) Addresses() []string {
	return append([]string(nil), s.addresses...)
}

// Result returns the last route, or nil.
func (s *RoutingSession) Result() *domain.RouteResult {
	if s.result == nil {
		return nil
	}
	r := *s.result
	r.DurationByMode = make(map[domain.TravelMode]int, len(s.result.DurationByMode))
	for k, v := range s.result.DurationByMode {
		r.DurationByMode[k] = v
	}
	r.Geometry = s.result.Geometry.Clone()
	return &r
}

func (s *RoutingSession) render() {
	pts := geojson.NewFeatureCollection()
	for i, p := range s.points {
		f := geojson.NewFeature(p)
		role := "origin"
		if i == 1 {
			role = "destination"
		}
		f.Properties = geojson.Properties{"role": role, "label": s.addresses[i]}
		pts.Append(f)
	}
	if err := s.layers.SetSource(SourceRoutePoints, pts); err != nil {
		s.logger.Warn("render route points failed", "error", err)
		return
	}

	if s.result != nil {
		line := geojson.NewFeature(s.result.Geometry)
		mid := geojson.NewFeature(s.result.Midpoint)
		mid.Properties = geojson.Properties{"label": s.result.Summary()}
		if err := s.layers.SetSource(SourceRouteLine, collection(line)); err != nil {
			s.logger.Warn("render route line failed", "error", err)
		}
		if err := s.layers.SetSource(SourceRouteMidpoint, collection(mid)); err != nil {
			s.logger.Warn("render route label failed", "error", err)
		}
		s.ensure(Layer{
			ID: LayerRouteLine, Type: "line", Source: SourceRouteLine,
			Layout: map[string]any{"line-join": "round", "line-cap": "round"},
			Paint:  map[string]any{"line-color": "#FF5722", "line-width": 5, "line-opacity": 0.85},
		})
		s.ensure(Layer{
			ID: LayerRouteMidpoint, Type: "symbol", Source: SourceRouteMidpoint,
			Layout: map[string]any{"text-field": []any{"get", "label"}, "text-size": 12},
			Paint:  map[string]any{"text-color": "#BF360C", "text-halo-color": "#FFFFFF", "text-halo-width": 2},
		})
	}

	s.ensure(Layer{
		ID: LayerRoutePoints, Type: "circle", Source: SourceRoutePoints,
		Paint: map[string]any{
			"circle-radius": 7,
			"circle-color":  []any{"match", []any{"get", "role"}, "origin", "#2E7D32", "#C62828"},
		},
	})
	s.ensure(Layer{
		ID: LayerRoutePtLabels, Type: "symbol", Source: SourceRoutePoints,
		Layout: map[string]any{"text-field": []any{"get", "label"}, "text-offset": []any{0, 1.5}, "text-size": 11},
	})
}

func (s *RoutingSession) ensure(l Layer) {
	if err := s.layers.Ensure(l); err != nil {
		s.logger.Warn("add route layer failed", "layer", l.ID, "error", err)
	}
}

// BuildRouteResult derives labels, durations and the label anchor from a
// provider route.
func BuildRouteResult(route *domain.Route) (*domain.RouteResult, error) {
	if route == nil || len(route.Geometry) < 2 {
		return nil, fmt.Errorf("%w: route needs at least two points", domain.ErrInvalidGeometry)
	}
	length, err := geospatial.Length(route.Geometry, geospatial.Meters)
	if err != nil {
		return nil, err
	}
	mid, err := geospatial.Along(route.Geometry, length/2)
	if err != nil {
		return nil, err
	}
	distance := route.DistanceMeters
	if distance <= 0 {
		distance = length
	}
	return &domain.RouteResult{
		DistanceMeters: distance,
		DistanceLabel:  FormatDistance(distance),
		DurationByMode: EstimateDurations(distance),
		Geometry:       route.Geometry.Clone(),
		Midpoint:       mid,
	}, nil
}

// FormatDistance gives "850 m" below one kilometre and "1.2 km" above.
func FormatDistance(meters float64) string {
	if m := int(math.Round(meters)); m < 1000 {
		return fmt.Sprintf("%d m", m)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// EstimateDurations returns minutes per travel mode, never below one.
func EstimateDurations(meters float64) map[domain.TravelMode]int {
	km := meters / 1000
	out := make(map[domain.TravelMode]int, len(domain.AverageSpeedKmh))
	for mode, speed := range domain.AverageSpeedKmh {
		out[mode] = max(1, int(math.Round(km/speed*60)))
	}
	return out
}
