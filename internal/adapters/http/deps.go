package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/villagemap/internal/adapters/valkey"
	"github.com/samirrijal/villagemap/internal/core/usecases"
)

// RegionStore is the database as seen by the readiness check.
// *postgres.DB satisfies it.
type RegionStore interface {
	Ping(ctx context.Context) error
	CheckSchema(ctx context.Context) (int64, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Regions     *usecases.RegionService
	Map         *MapSessionConfig
	CORSOrigins string
	NATS        *nats.Conn
	DB          RegionStore
	Cache       *valkey.Cache
}
