package geocode

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/ports"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
)

// Cached wraps a ReverseGeocoder with a read-through cache keyed on the
// coordinate rounded to ~11 m.
type Cached struct {
	next  ports.ReverseGeocoder
	cache ports.CacheService
	ttl   int
}

// NewCached returns next unchanged when cache is nil.
func NewCached(next ports.ReverseGeocoder, cache ports.CacheService, ttlSeconds int) ports.ReverseGeocoder {
	if cache == nil {
		return next
	}
	return &Cached{next: next, cache: cache, ttl: ttlSeconds}
}

func cacheKey(p orb.Point) string {
	return fmt.Sprintf("revgeo:%.4f:%.4f", p.Lat(), p.Lon())
}

// Reverse serves from cache when possible.
func (c *Cached) Reverse(ctx context.Context, p orb.Point) (*domain.Address, error) {
	key := cacheKey(p)
	if data, err := c.cache.Get(ctx, key); err == nil {
		var addr domain.Address
		if err := json.Unmarshal(data, &addr); err == nil {
			metrics.CacheHits.WithLabelValues("revgeo").Inc()
			return &addr, nil
		}
	}
	metrics.CacheMisses.WithLabelValues("revgeo").Inc()

	addr, err := c.next.Reverse(ctx, p)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(addr); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return addr, nil
}
