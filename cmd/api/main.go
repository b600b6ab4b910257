package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/paulmach/orb"

	"github.com/samirrijal/villagemap/internal/adapters/geocode"
	"github.com/samirrijal/villagemap/internal/adapters/http"
	natsadapter "github.com/samirrijal/villagemap/internal/adapters/nats"
	"github.com/samirrijal/villagemap/internal/adapters/postgres"
	"github.com/samirrijal/villagemap/internal/adapters/regionapi"
	"github.com/samirrijal/villagemap/internal/adapters/routing"
	"github.com/samirrijal/villagemap/internal/adapters/valkey"
	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/core/usecases"
	"github.com/samirrijal/villagemap/internal/mapctl"
	"github.com/samirrijal/villagemap/internal/pkg/config"
	"github.com/samirrijal/villagemap/internal/pkg/eventbus"
	"github.com/samirrijal/villagemap/internal/pkg/logging"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
	"github.com/samirrijal/villagemap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("villagemap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), "villagemap-api")
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Cache (optional)
	var cache *valkey.Cache
	var cacheSvc ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr, "villagemap:"); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cache, cacheSvc = c, c
		defer c.Close()
	}

	// NATS (optional)
	var events ports.EventPublisher
	deps := &http.Dependencies{DB: db, Cache: cache, CORSOrigins: cfg.Server.CORSOrigins}
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		events = pub
		deps.NATS = pub.Conn()
		defer pub.Close()
	}

	// Region updates fan out to every open map session.
	updates := eventbus.New[domain.RegionsUpdated]()
	if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL); err != nil {
		slog.Warn("nats subscriber unavailable, map sessions will not reload", "error", err)
	} else {
		defer sub.Close()
		err := sub.SubscribeRegionsUpdated(ctx, func(ctx context.Context, ev *domain.RegionsUpdated) error {
			updates.Publish(*ev)
			return nil
		})
		if err != nil {
			slog.Warn("subscribe regions.updated failed", "error", err)
		}
	}

	deps.Regions = usecases.NewRegionService(postgres.NewRegionRepo(db), cacheSvc, events)
	deps.Map = mapSessionConfig(cfg, cacheSvc, updates, logger)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    8 * 1024 * 1024, // boundary geometries can be large
		AppName:      "VillageMap API",
	})
	app.Use(recover.New())

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// mapSessionConfig builds what every map session shares: the boundary
// fallback chain, the routing and geocoding providers and the overlays.
func mapSessionConfig(cfg *config.Config, cache ports.CacheService, updates *eventbus.Bus[domain.RegionsUpdated], logger *slog.Logger) *http.MapSessionConfig {
	m := cfg.Map
	center := orb.Point{m.Center[0], m.Center[1]}
	boundaryTimeout := time.Duration(m.BoundaryTimeout) * time.Second

	loader := mapctl.NewBoundaryLoader(
		regionapi.NewHTTPSource(m.RegionsURL, boundaryTimeout),
		regionapi.NewFileSource(m.FallbackFile, boundaryTimeout),
		boundaryTimeout, center, logger,
	)

	var geocoder ports.ReverseGeocoder = geocode.NewNominatim(
		cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent,
		time.Duration(cfg.Geocoder.Timeout)*time.Second, logger,
	)
	if cache != nil {
		geocoder = geocode.NewCached(geocoder, cache, cfg.Geocoder.CacheTTL)
	}

	var overlays *mapctl.OverlayConfig
	if m.OverlaysFile != "" {
		ov, err := mapctl.LoadOverlayConfig(m.OverlaysFile)
		if err != nil {
			slog.Warn("overlay config unreadable, using defaults", "file", m.OverlaysFile, "error", err)
		} else {
			overlays = &ov
		}
	}

	var terrain *mapctl.Terrain
	if t := m.Terrain; t.Enabled {
		terrain = &mapctl.Terrain{
			Source:       mapctl.SourceTerrain,
			URL:          t.DEMURL,
			TileSize:     t.TileSize,
			MaxZoom:      t.MaxZoom,
			Exaggeration: t.Exaggeration,
		}
	}

	return &http.MapSessionConfig{
		Loader: loader,
		Routing: routing.NewOSRMProvider(
			cfg.Routing.BaseURL, cfg.Routing.Profile,
			time.Duration(cfg.Routing.Timeout)*time.Second, logger,
		),
		Geocoder:       geocoder,
		Overlays:       overlays,
		Terrain:        terrain,
		Camera:         mapctl.Camera{Center: center, Zoom: m.Zoom, Pitch: m.Pitch, Bearing: m.Bearing},
		FocusZoom:      m.FocusZoom,
		Styles:         mapctl.Styles{Light: m.Style, Dark: m.DarkStyle},
		LoadingTimeout: time.Duration(m.LoadingTimeout) * time.Second,
		PulseFPS:       m.PulseFPS,
		Updates:        updates,
		Logger:         logger,
	}
}
