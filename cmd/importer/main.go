package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/villagemap/internal/adapters/nats"
	"github.com/samirrijal/villagemap/internal/adapters/postgres"
	"github.com/samirrijal/villagemap/internal/adapters/valkey"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/core/usecases"
	"github.com/samirrijal/villagemap/internal/pkg/config"
	"github.com/samirrijal/villagemap/internal/pkg/logging"
	"github.com/samirrijal/villagemap/internal/workflows"
)

func main() {
	cfg, err := config.Load("villagemap-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.FromEnv()

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), "villagemap-importer")
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr, "villagemap:"); err != nil {
		slog.Warn("valkey unavailable, region list cache will expire on its own", "error", err)
	} else {
		cache = c
		defer c.Close()
	}

	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, imports will not notify map sessions", "error", err)
	} else {
		events = pub
		defer pub.Close()
	}

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RegionImportWorkflow)
	w.RegisterActivity(&workflows.ImportActivities{
		Regions: usecases.NewRegionService(postgres.NewRegionRepo(db), cache, events),
	})

	slog.Info("region import worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
