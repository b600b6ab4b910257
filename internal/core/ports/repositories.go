package ports

import (
	"context"

	"github.com/samirrijal/villagemap/internal/core/domain"
)

// RegionRepository persists region boundaries.
// Implementations must bind every value as a query parameter.
type RegionRepository interface {
	// Create inserts a region and returns the number of rows affected.
	// A duplicate code affects zero rows.
	Create(ctx context.Context, region *domain.NewRegion) (int64, error)
	// CreateBatch inserts many regions and returns the total rows affected.
	CreateBatch(ctx context.Context, regions []domain.NewRegion) (int64, error)
	List(ctx context.Context) ([]domain.Region, error)
	// GetByCode returns nil, nil when no region has the code.
	GetByCode(ctx context.Context, code string) (*domain.Region, error)
}
