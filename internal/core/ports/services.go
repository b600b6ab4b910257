package ports

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRegionsUpdated(ctx context.Context, event *domain.RegionsUpdated) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRegionsUpdated(ctx context.Context, handler func(ctx context.Context, event *domain.RegionsUpdated) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// RoutingProvider computes a driving route between two points.
// It returns domain.ErrRouteNotFound when no path exists.
type RoutingProvider interface {
	Route(ctx context.Context, origin, destination orb.Point) (*domain.Route, error)
}

// ReverseGeocoder resolves a coordinate to a place name.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, p orb.Point) (*domain.Address, error)
}

// BoundarySource fetches a boundary FeatureCollection.
type BoundarySource interface {
	Name() string
	Fetch(ctx context.Context) (*geojson.FeatureCollection, error)
}
