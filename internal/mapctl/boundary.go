package mapctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/pkg/geospatial"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
)

// DefaultCenter is the Saribudolok village center.
var DefaultCenter = orb.Point{98.60877, 2.9956}

// fallbackHalfSpan is the half-width in degrees of the synthetic boundary.
const fallbackHalfSpan = 0.01

var errNoFeatures = errors.New("feature collection is empty")

// BoundaryLoader resolves the region boundary with a fallback chain:
// the region service, then a bundled file, then a rectangle around the
// configured center. Load never fails.
type BoundaryLoader struct {
	primary   ports.BoundarySource
	secondary ports.BoundarySource
	timeout   time.Duration
	center    orb.Point
	logger    *slog.Logger
}

// NewBoundaryLoader creates a loader. Either source may be nil.
func NewBoundaryLoader(primary, secondary ports.BoundarySource, timeout time.Duration, center orb.Point, logger *slog.Logger) *BoundaryLoader {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if center == (orb.Point{}) {
		center = DefaultCenter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BoundaryLoader{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		center:    center,
		logger:    logger,
	}
}

// Load returns the best boundary available right now.
func (l *BoundaryLoader) Load(ctx context.Context) domain.BoundaryFeature {
	if f, err := l.try(ctx, l.primary, domain.BoundaryPrimary); err == nil {
		return f
	} else if l.primary != nil {
		l.logger.Warn("region service unavailable, using bundled boundary", "error", err)
	}

	if f, err := l.try(ctx, l.secondary, domain.BoundaryLocal); err == nil {
		return f
	} else if l.secondary != nil {
		l.logger.Warn("bundled boundary unavailable, using synthetic rectangle", "error", err)
	}

	metrics.BoundaryLoads.WithLabelValues(string(domain.BoundarySynthetic)).Inc()
	return SyntheticBoundary(l.center)
}

func (l *BoundaryLoader) try(ctx context.Context, src ports.BoundarySource, kind domain.BoundarySource) (domain.BoundaryFeature, error) {
	if src == nil {
		return domain.BoundaryFeature{}, errors.New("no source configured")
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	fc, err := src.Fetch(ctx)
	if err != nil {
		return domain.BoundaryFeature{}, fmt.Errorf("%s: %w", src.Name(), err)
	}
	f, err := FeatureFromCollection(fc, kind)
	if err != nil {
		return domain.BoundaryFeature{}, fmt.Errorf("%s: %w", src.Name(), err)
	}
	metrics.BoundaryLoads.WithLabelValues(string(kind)).Inc()
	l.logger.Info("boundary loaded", "source", src.Name(), "name", f.Properties.Name, "code", f.Properties.Code)
	return f, nil
}

// FeatureFromCollection takes the first feature of fc as the boundary.
// Multi-polygons resolve to their largest part and missing properties
// default to "(unknown)".
func FeatureFromCollection(fc *geojson.FeatureCollection, kind domain.BoundarySource) (domain.BoundaryFeature, error) {
	if fc == nil || len(fc.Features) == 0 {
		return domain.BoundaryFeature{}, errNoFeatures
	}
	first := fc.Features[0]

	var poly orb.Polygon
	switch g := first.Geometry.(type) {
	case orb.Polygon:
		poly = g
	case orb.MultiPolygon:
		poly = largestPolygon(g)
	default:
		return domain.BoundaryFeature{}, fmt.Errorf("%w: boundary must be a polygon, got %T", domain.ErrInvalidGeometry, first.Geometry)
	}
	poly = geospatial.ClosePolygon(poly)
	if err := geospatial.ValidatePolygon(poly); err != nil {
		return domain.BoundaryFeature{}, err
	}

	return domain.BoundaryFeature{
		Properties: domain.BoundaryProperties{
			Name:  first.Properties.MustString("name", domain.UnknownProperty),
			Code:  first.Properties.MustString("code", domain.UnknownProperty),
			Level: first.Properties.MustString("level", ""),
		},
		Geometry: poly,
		Source:   kind,
	}, nil
}

func largestPolygon(mp orb.MultiPolygon) orb.Polygon {
	var (
		best     orb.Polygon
		bestArea = -1.0
	)
	for _, p := range mp {
		if a := geo.Area(p); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best
}

// SyntheticBoundary is the last-resort rectangle around center.
func SyntheticBoundary(center orb.Point) domain.BoundaryFeature {
	b := geospatial.Bounds{
		MinLng: center.Lon() - fallbackHalfSpan,
		MaxLng: center.Lon() + fallbackHalfSpan,
		MinLat: center.Lat() - fallbackHalfSpan,
		MaxLat: center.Lat() + fallbackHalfSpan,
	}
	return domain.BoundaryFeature{
		Properties: domain.BoundaryProperties{
			Name: domain.UnknownProperty,
			Code: domain.UnknownProperty,
		},
		Geometry: b.Rect(),
		Source:   domain.BoundarySynthetic,
	}
}
