package ports

import (
	"context"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// RoutingClient computes a single route for one travel mode.
type RoutingClient interface {
	ComputeRoute(ctx context.Context, origin, destination domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAlert(ctx context.Context, p *domain.Point) error
	PublishClusterSnapshot(ctx context.Context, snap *domain.ClusterSnapshot) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeAlerts(ctx context.Context, handler func(ctx context.Context, p *domain.Point) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
