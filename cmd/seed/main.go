package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	natsadapter "github.com/samirrijal/villagemap/internal/adapters/nats"
	"github.com/samirrijal/villagemap/internal/adapters/postgres"
	"github.com/samirrijal/villagemap/internal/adapters/regionapi"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/core/usecases"
	"github.com/samirrijal/villagemap/internal/pkg/config"
	"github.com/samirrijal/villagemap/internal/pkg/logging"
	"github.com/samirrijal/villagemap/internal/workflows"
)

type options struct {
	File     string
	Level    string
	Workflow bool
	Timeout  time.Duration
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "seed",
		Short: "Load region boundaries from a GeoJSON document into PostGIS",
		Long: `seed inserts every feature that carries a "code" property. Codes that
are already stored are skipped. Live map sessions reload their boundary
once the import is announced on regions.updated.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.FromEnv()
			cfg, err := config.Load("villagemap-seed")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			if opts.Workflow {
				return seedViaWorkflow(ctx, cfg, opts)
			}
			return seedDirect(ctx, cfg, opts)
		},
	}
	root.Flags().StringVarP(&opts.File, "file", "f", "data/saribudolok.geojson", "GeoJSON file path or http(s) URL")
	root.Flags().StringVarP(&opts.Level, "level", "l", "Desa (Village)", "level for features without one")
	root.Flags().BoolVar(&opts.Workflow, "workflow", false, "run the import as a Temporal workflow")
	root.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "overall deadline")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func seedDirect(ctx context.Context, cfg *config.Config, opts *options) error {
	db, err := postgres.New(ctx, cfg.Database.DSN(), "villagemap-seed")
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, map sessions will not be notified", "error", err)
	} else {
		events = pub
		defer pub.Close()
	}

	fc, err := regionapi.NewFileSource(opts.File, 30*time.Second).Fetch(ctx)
	if err != nil {
		return err
	}
	regions, err := usecases.RegionsFromFeatures(fc, opts.Level)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		return fmt.Errorf("%s has no features with a code", opts.File)
	}
	for _, r := range regions {
		fmt.Printf("Seeding %s (%s)\n", r.Name, r.Code)
	}

	svc := usecases.NewRegionService(postgres.NewRegionRepo(db), nil, events)
	n, err := svc.Import(ctx, regions, "seed")
	if err != nil {
		return err
	}
	fmt.Printf("Seeding complete: %d inserted, %d already present\n", n, int64(len(regions))-n)
	return nil
}

func seedViaWorkflow(ctx context.Context, cfg *config.Config, opts *options) error {
	c, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("region-import-%d", time.Now().Unix()),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.RegionImportWorkflow, workflows.RegionImportInput{
		Location: opts.File,
		Level:    opts.Level,
		Origin:   "seed",
	})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	slog.Info("region import started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var res workflows.RegionImportResult
	if err := run.Get(ctx, &res); err != nil {
		return fmt.Errorf("region import: %w", err)
	}
	fmt.Printf("Seeding complete: %d parsed, %d inserted\n", res.Parsed, res.Inserted)
	return nil
}
