package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/villagemap/internal/adapters/httpclient"
	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
	"github.com/samirrijal/villagemap/internal/pkg/obs"
	"github.com/samirrijal/villagemap/internal/pkg/telemetry"
)

// OSRMProvider implements ports.RoutingProvider against an OSRM-compatible
// /route/v1 endpoint.
type OSRMProvider struct {
	baseURL string
	profile string
	client  *httpclient.Client
	logger  *slog.Logger
}

// NewOSRMProvider creates a provider. profile defaults to "driving".
func NewOSRMProvider(baseURL, profile string, timeout time.Duration, logger *slog.Logger, opts ...httpclient.Option) *OSRMProvider {
	if profile == "" {
		profile = "driving"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OSRMProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		client:  httpclient.New(timeout, opts...),
		logger:  logger,
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry geojson.Geometry `json:"geometry"`
		Distance float64          `json:"distance"`
		Duration float64          `json:"duration"`
	} `json:"routes"`
}

// Route requests a route between origin and destination.
func (o *OSRMProvider) Route(ctx context.Context, origin, destination orb.Point) (route *domain.Route, err error) {
	ctx, span := telemetry.Tracer("routing").Start(ctx, "osrm.Route")
	defer span.End()
	defer obs.Time(ctx, o.logger, "osrm.route")(&err)

	start := time.Now()
	defer func() {
		metrics.ProviderDuration.WithLabelValues("osrm").Observe(time.Since(start).Seconds())
		metrics.ProviderRequests.WithLabelValues("osrm", outcome(err)).Inc()
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.baseURL, o.profile, origin.Lon(), origin.Lat(), destination.Lon(), destination.Lat())
	span.SetAttributes(attribute.String("routing.profile", o.profile))

	var resp osrmResponse
	if err := o.client.GetJSON(ctx, url, &resp); err != nil {
		var se *httpclient.StatusError
		// OSRM answers 400 with code NoRoute/NoSegment for unroutable points.
		if errors.As(err, &se) && se.Code == 400 && (strings.Contains(se.Body, "NoRoute") || strings.Contains(se.Body, "NoSegment")) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRouteNotFound, se.Body)
		}
		return nil, fmt.Errorf("%w: osrm: %v", domain.ErrNetworkUnavailable, err)
	}

	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return nil, fmt.Errorf("%w: osrm code %q %s", domain.ErrRouteNotFound, resp.Code, resp.Message)
	}

	r := resp.Routes[0]
	line, ok := r.Geometry.Coordinates.(orb.LineString)
	if !ok || len(line) < 2 {
		return nil, fmt.Errorf("%w: osrm returned no line geometry", domain.ErrRouteNotFound)
	}

	span.SetAttributes(attribute.Float64("routing.distance_m", r.Distance))
	return &domain.Route{
		Geometry:        line,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
	}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrRouteNotFound):
		return "not_found"
	default:
		return "error"
	}
}
