package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps pgxpool.Pool and provides a shared connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new DB connection pool tagged with the given application name.
func New(ctx context.Context, dsn, appName string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 20
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// ErrSchemaMissing means the migrations have not been applied.
var ErrSchemaMissing = errors.New("schema not migrated")

// CheckSchema verifies that PostGIS and the regions table exist and
// returns how many regions are stored.
func (db *DB) CheckSchema(ctx context.Context) (int64, error) {
	var postgis, regions *string
	err := db.Pool.QueryRow(ctx, `
		SELECT (SELECT extversion FROM pg_extension WHERE extname = 'postgis'),
		       to_regclass('public.regions')::text`).Scan(&postgis, &regions)
	if err != nil {
		return 0, fmt.Errorf("inspect schema: %w", err)
	}
	if postgis == nil {
		return 0, fmt.Errorf("%w: postgis extension missing", ErrSchemaMissing)
	}
	if regions == nil {
		return 0, fmt.Errorf("%w: regions table missing", ErrSchemaMissing)
	}

	var n int64
	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM regions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count regions: %w", err)
	}
	return n, nil
}

// Close releases pool resources.
func (db *DB) Close() {
	db.Pool.Close()
}
