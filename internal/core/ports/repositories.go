package ports

import (
	"context"
	"time"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// AlertRepository persists alert points and serves them back as a point source.
type AlertRepository interface {
	Insert(ctx context.Context, p *domain.Point) error
	InsertBatch(ctx context.Context, points []domain.Point) error
	// FindInBounds returns the newest limit points inside b that occurred at
	// or after since, ordered by occurrence time then id so clustering is
	// reproducible.
	FindInBounds(ctx context.Context, b domain.Bounds, since time.Time, limit int) ([]domain.Point, error)
}
