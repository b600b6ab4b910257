package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/villagemap/internal/core/domain"
)

// RegionImportInput is the input for the region import workflow.
type RegionImportInput struct {
	// Location is a file path or http(s) URL of a GeoJSON document.
	Location string
	// Level is used for features without a level property.
	Level string
	// Origin is recorded as the source of the regions.updated event.
	Origin string
}

// RegionImportResult summarises one import run.
type RegionImportResult struct {
	Parsed   int
	Inserted int64
}

// RegionImportWorkflow fetches a boundary document, inserts every region
// it contains and lets live map sessions know through regions.updated.
func RegionImportWorkflow(ctx workflow.Context, input RegionImportInput) (RegionImportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting region import", "location", input.Location)

	if input.Origin == "" {
		input.Origin = "import"
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var result RegionImportResult

	var regions []domain.NewRegion
	if err := workflow.ExecuteActivity(ctx, "FetchRegions", input.Location, input.Level).Get(ctx, &regions); err != nil {
		return result, err
	}
	result.Parsed = len(regions)
	if len(regions) == 0 {
		return result, temporal.NewNonRetryableApplicationError("document has no features with a code", "EmptyImport", nil)
	}

	if err := workflow.ExecuteActivity(ctx, "ImportRegions", regions, input.Origin).Get(ctx, &result.Inserted); err != nil {
		return result, err
	}

	logger.Info("Region import finished", "parsed", result.Parsed, "inserted", result.Inserted)
	return result, nil
}
