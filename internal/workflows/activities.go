package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/villagemap/internal/adapters/regionapi"
	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/usecases"
)

// ImportActivities holds the activity implementations for the region
// import workflow.
type ImportActivities struct {
	Regions      *usecases.RegionService
	FetchTimeout time.Duration
}

// FetchRegions reads a GeoJSON document from a path or URL and returns
// the features that carry a code.
func (a *ImportActivities) FetchRegions(ctx context.Context, location, level string) ([]domain.NewRegion, error) {
	timeout := a.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fc, err := regionapi.NewFileSource(location, timeout).Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	regions, err := usecases.RegionsFromFeatures(fc, level)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	activity.GetLogger(ctx).Info("regions parsed", "location", location, "features", len(fc.Features), "regions", len(regions))
	return regions, nil
}

// ImportRegions inserts the regions and announces the change. Codes that
// already exist are skipped by the store.
func (a *ImportActivities) ImportRegions(ctx context.Context, regions []domain.NewRegion, origin string) (int64, error) {
	n, err := a.Regions.Import(ctx, regions, origin)
	if err != nil {
		return n, err
	}
	activity.GetLogger(ctx).Info("regions imported", "origin", origin, "inserted", n, "submitted", len(regions))
	return n, nil
}
