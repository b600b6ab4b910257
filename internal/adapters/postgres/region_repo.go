package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/villagemap/internal/core/domain"
)

const insertRegionSQL = `
	INSERT INTO regions (name, code, level, geom, area_km2)
	SELECT $1, $2, $3, g.geom, ST_Area(g.geom::geography) / 1e6
	FROM (SELECT ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($4), 4326)) AS geom) g
	ON CONFLICT (code) DO NOTHING
`

const selectRegionSQL = `
	SELECT id, name, code, COALESCE(level, ''), COALESCE(area_km2, 0),
	       ST_AsGeoJSON(geom)::text, created_at
	FROM regions
`

// RegionRepo implements ports.RegionRepository with pgx.
type RegionRepo struct {
	db *DB
}

// NewRegionRepo creates a new RegionRepo.
func NewRegionRepo(db *DB) *RegionRepo {
	return &RegionRepo{db: db}
}

// Create inserts one region. A duplicate code affects zero rows.
func (r *RegionRepo) Create(ctx context.Context, reg *domain.NewRegion) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, insertRegionSQL, reg.Name, reg.Code, reg.Level, string(reg.Geometry))
	if err != nil {
		return 0, fmt.Errorf("insert region %s: %w", reg.Code, err)
	}
	return tag.RowsAffected(), nil
}

// CreateBatch inserts many regions in one round trip and returns the
// total rows affected.
func (r *RegionRepo) CreateBatch(ctx context.Context, regions []domain.NewRegion) (int64, error) {
	batch := &pgx.Batch{}
	for _, reg := range regions {
		batch.Queue(insertRegionSQL, reg.Name, reg.Code, reg.Level, string(reg.Geometry))
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var total int64
	for _, reg := range regions {
		tag, err := br.Exec()
		if err != nil {
			return total, fmt.Errorf("batch insert region %s: %w", reg.Code, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// List returns every stored region ordered by id.
func (r *RegionRepo) List(ctx context.Context) ([]domain.Region, error) {
	rows, err := r.db.Pool.Query(ctx, selectRegionSQL+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Region
	for rows.Next() {
		reg, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reg)
	}
	return out, rows.Err()
}

// GetByCode returns nil, nil when the code is unknown.
func (r *RegionRepo) GetByCode(ctx context.Context, code string) (*domain.Region, error) {
	row := r.db.Pool.QueryRow(ctx, selectRegionSQL+` WHERE code = $1 LIMIT 1`, code)
	reg, err := scanRegion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func scanRegion(row pgx.Row) (*domain.Region, error) {
	var (
		reg  domain.Region
		geom string
	)
	if err := row.Scan(&reg.ID, &reg.Name, &reg.Code, &reg.Level, &reg.AreaKm2, &geom, &reg.CreatedAt); err != nil {
		return nil, err
	}
	reg.Geometry = []byte(geom)
	return &reg, nil
}
