package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/villagemap/internal/adapters/valkey"
)

const readyTimeout = 3 * time.Second

// HealthHandler reports liveness. It never touches a dependency.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "healthy",
			"started_at": startedAt.UTC().Format(time.RFC3339),
			"uptime":     time.Since(startedAt).Truncate(time.Second).String(),
			"version":    "dev",
		})
	}
}

// readinessCheck tests one dependency. A nil run means the dependency is
// not configured, which only fails readiness when it is required.
type readinessCheck struct {
	name     string
	required bool
	run      func(ctx context.Context) (string, error)
}

func readinessChecks(deps *Dependencies) []readinessCheck {
	database := readinessCheck{name: "database", required: true}
	regions := readinessCheck{name: "regions", required: true}
	if deps.DB != nil {
		database.run = func(ctx context.Context) (string, error) {
			return "ok", deps.DB.Ping(ctx)
		}
		regions.run = func(ctx context.Context) (string, error) {
			n, err := deps.DB.CheckSchema(ctx)
			return fmt.Sprintf("ok: %d stored", n), err
		}
	}

	broker := readinessCheck{name: "nats"}
	if deps.NATS != nil {
		broker.run = func(context.Context) (string, error) {
			if !deps.NATS.IsConnected() {
				return "", errors.New("disconnected")
			}
			return "ok", nil
		}
	}

	cache := readinessCheck{name: "cache"}
	if deps.Cache != nil {
		cache.run = func(ctx context.Context) (string, error) {
			if _, err := deps.Cache.Get(ctx, "__ready__"); err != nil && !valkey.IsMiss(err) {
				return "", err
			}
			return "ok", nil
		}
	}

	return []readinessCheck{database, regions, broker, cache}
}

// ReadyHandler reports whether the region API can serve traffic: the
// database answers, PostGIS and the regions table are migrated, and the
// optional broker and cache are healthy when configured.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readyTimeout)
		defer cancel()

		checks := make(map[string]string)
		ready := true
		for _, chk := range readinessChecks(deps) {
			if chk.run == nil {
				checks[chk.name] = "not configured"
				ready = ready && !chk.required
				continue
			}
			detail, err := chk.run(ctx)
			if err != nil {
				checks[chk.name] = "error: " + err.Error()
				ready = false
				continue
			}
			checks[chk.name] = detail
		}

		if !ready {
			LoggerFromCtx(c.UserContext()).Warn("not ready", "checks", checks)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"checks": checks,
			})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
