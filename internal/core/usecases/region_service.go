package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/pkg/geospatial"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
)

const regionListCacheKey = "regions:list"

// RegionService handles region storage and change notification.
type RegionService struct {
	regions ports.RegionRepository
	cache   ports.CacheService
	events  ports.EventPublisher
}

// NewRegionService creates a new RegionService. cache and events may be nil.
func NewRegionService(regions ports.RegionRepository, cache ports.CacheService, events ports.EventPublisher) *RegionService {
	return &RegionService{regions: regions, cache: cache, events: events}
}

// Create validates and stores one region. A duplicate code is not an
// error; it affects zero rows.
func (s *RegionService) Create(ctx context.Context, reg *domain.NewRegion) (int64, error) {
	if err := ValidateNewRegion(reg); err != nil {
		return 0, err
	}
	n, err := s.regions.Create(ctx, reg)
	if err != nil {
		return 0, fmt.Errorf("create region: %w", err)
	}
	if n > 0 {
		s.changed(ctx, "api", []string{reg.Code}, n)
	}
	return n, nil
}

// Import stores a batch of regions, as loaded by the seed command or the
// import workflow.
func (s *RegionService) Import(ctx context.Context, regs []domain.NewRegion, source string) (int64, error) {
	codes := make([]string, 0, len(regs))
	for i := range regs {
		if err := ValidateNewRegion(&regs[i]); err != nil {
			return 0, fmt.Errorf("region %d: %w", i, err)
		}
		codes = append(codes, regs[i].Code)
	}
	if len(regs) == 0 {
		return 0, nil
	}
	n, err := s.regions.CreateBatch(ctx, regs)
	if err != nil {
		return n, fmt.Errorf("import regions: %w", err)
	}
	if n > 0 {
		s.changed(ctx, source, codes, n)
	}
	return n, nil
}

func (s *RegionService) changed(ctx context.Context, source string, codes []string, n int64) {
	metrics.RegionsCreated.Add(float64(n))
	if s.cache != nil {
		_ = s.cache.Delete(ctx, regionListCacheKey)
	}
	if s.events != nil {
		ev := &domain.RegionsUpdated{Codes: codes, Source: source, OccurredAt: time.Now().UTC()}
		if err := s.events.PublishRegionsUpdated(ctx, ev); err != nil {
			slog.Warn("publish regions.updated failed", "error", err, "codes", codes)
		}
	}
}

// List returns every stored region.
func (s *RegionService) List(ctx context.Context) ([]domain.Region, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, regionListCacheKey); err == nil {
			var regions []domain.Region
			if err := json.Unmarshal(data, &regions); err == nil {
				metrics.CacheHits.WithLabelValues("regions_list").Inc()
				return regions, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("regions_list").Inc()
	}

	regions, err := s.regions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}

	// Regions change rarely and every write invalidates the key.
	if s.cache != nil {
		if data, err := json.Marshal(regions); err == nil {
			_ = s.cache.Set(ctx, regionListCacheKey, data, 300)
		}
	}
	return regions, nil
}

// FeatureCollection returns the regions as GeoJSON features with
// properties {id, name, code, level, area_km2}.
func (s *RegionService) FeatureCollection(ctx context.Context) (*geojson.FeatureCollection, error) {
	regions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, r := range regions {
		g, err := geojson.UnmarshalGeometry(r.Geometry)
		if err != nil {
			return nil, fmt.Errorf("region %s geometry: %w", r.Code, err)
		}
		f := geojson.NewFeature(g.Geometry())
		f.Properties = geojson.Properties{
			"id":       r.ID,
			"name":     r.Name,
			"code":     r.Code,
			"level":    r.Level,
			"area_km2": r.AreaKm2,
		}
		fc.Append(f)
	}
	return fc, nil
}

// GetByCode returns one region, or nil when the code is unknown.
func (s *RegionService) GetByCode(ctx context.Context, code string) (*domain.Region, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: code must not be empty", domain.ErrValidation)
	}
	return s.regions.GetByCode(ctx, code)
}

// ValidateNewRegion checks the required fields and that the geometry is a
// valid polygon or multi-polygon.
func ValidateNewRegion(r *domain.NewRegion) error {
	if r == nil {
		return fmt.Errorf("%w: empty region", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("%w: code is required", domain.ErrValidation)
	}
	if len(r.Geometry) == 0 {
		return fmt.Errorf("%w: geometry is required", domain.ErrValidation)
	}
	g, err := geojson.UnmarshalGeometry(r.Geometry)
	if err != nil {
		return fmt.Errorf("%w: geometry: %v", domain.ErrValidation, err)
	}
	var polys []orb.Polygon
	switch v := g.Geometry().(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return fmt.Errorf("%w: geometry must be Polygon or MultiPolygon, got %s", domain.ErrValidation, g.Type)
	}
	if len(polys) == 0 {
		return fmt.Errorf("%w: empty multipolygon", domain.ErrValidation)
	}
	for _, p := range polys {
		if err := geospatial.ValidatePolygon(p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}
	return nil
}

// RegionsFromFeatures converts boundary features into insertable regions.
// Features without a code are skipped.
func RegionsFromFeatures(fc *geojson.FeatureCollection, defaultLevel string) ([]domain.NewRegion, error) {
	if fc == nil {
		return nil, nil
	}
	out := make([]domain.NewRegion, 0, len(fc.Features))
	for i, f := range fc.Features {
		code := f.Properties.MustString("code", "")
		if code == "" {
			continue
		}
		geom, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("feature %d geometry: %w", i, err)
		}
		out = append(out, domain.NewRegion{
			Name:     f.Properties.MustString("name", code),
			Code:     code,
			Level:    f.Properties.MustString("level", defaultLevel),
			Geometry: geom,
		})
	}
	return out, nil
}
