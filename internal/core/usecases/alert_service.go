package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/core/ports"
	"github.com/samirrijal/geoengine/internal/pkg/geospatial"
	"github.com/samirrijal/geoengine/internal/pkg/metrics"
)

// ErrMissingCategory is returned by Report for an alert without a category.
var ErrMissingCategory = errors.New("category is required")

// ErrInvalidRadius is returned when a nearby query has no positive search radius.
var ErrInvalidRadius = errors.New("search radius must be positive")

// Aggregate clusters points around origin and sorts the clusters by distance
// from origin to their center. When since is set, points that occurred
// before it (or carry no timestamp) are dropped before clustering so stale
// reports never count toward a cluster's size or dominant category.
func Aggregate(points []domain.Point, origin domain.GeoPoint, radiusMeters float64, since *time.Time) []domain.Cluster {
	if since != nil {
		recent := make([]domain.Point, 0, len(points))
		for _, p := range points {
			if p.OccurredAt != nil && !p.OccurredAt.Before(*since) {
				recent = append(recent, p)
			}
		}
		points = recent
	}

	clusters := ClusterPoints(points, radiusMeters)
	for i := range clusters {
		clusters[i].DistanceMeters = geospatial.Distance(origin, clusters[i].Center)
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].DistanceMeters < clusters[j].DistanceMeters
	})
	return clusters
}

// FilterByCategory narrows aggregated clusters to the members of one
// category. Clusters keep their id, center and distance; clusters without a
// matching member are dropped. An empty category returns clusters unchanged.
func FilterByCategory(clusters []domain.Cluster, category string) []domain.Cluster {
	if category == "" {
		return clusters
	}
	out := make([]domain.Cluster, 0, len(clusters))
	for _, c := range clusters {
		var members []domain.Point
		for _, m := range c.Members {
			if m.Category == category {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			continue
		}
		c.Members = members
		c.Size = len(members)
		c.DominantCategory = category
		c.MarkerScale = domain.MarkerScale(len(members))
		c.Style = domain.StyleFor(category)
		out = append(out, c)
	}
	return out
}

// NearbyQuery selects stored alerts around an origin.
type NearbyQuery struct {
	Origin              domain.GeoPoint
	SearchRadiusMeters  float64
	ClusterRadiusMeters float64
	Window              time.Duration
	Category            string
	Limit               int
}

// AlertService stores reported alerts and aggregates them into clusters.
type AlertService struct {
	alerts    ports.AlertRepository
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewAlertService creates a new AlertService. publisher may be nil.
func NewAlertService(alerts ports.AlertRepository, publisher ports.EventPublisher) *AlertService {
	return &AlertService{alerts: alerts, publisher: publisher, now: time.Now}
}

// WithClock replaces the service clock. Used by tests and workflow replays.
func (s *AlertService) WithClock(now func() time.Time) *AlertService {
	s.now = now
	return s
}

// Report validates and stores a single alert, then publishes it.
func (s *AlertService) Report(ctx context.Context, p *domain.Point) error {
	if err := p.Validate(); err != nil {
		metrics.AlertsRejected.WithLabelValues("api").Inc()
		return err
	}
	if p.Category == "" {
		metrics.AlertsRejected.WithLabelValues("api").Inc()
		return ErrMissingCategory
	}
	if p.OccurredAt == nil {
		t := s.now().UTC()
		p.OccurredAt = &t
	}

	if err := s.alerts.Insert(ctx, p); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	metrics.AlertsIngested.WithLabelValues("api").Inc()
	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, p); err != nil {
			slog.WarnContext(ctx, "publish alert failed", "id", p.ID, "error", err)
		}
	}
	return nil
}

// Ingest stores a batch of points, skipping the ones with invalid coordinates.
// It returns how many points were stored and how many were skipped.
func (s *AlertService) Ingest(ctx context.Context, points []domain.Point) (stored, skipped int, err error) {
	valid := make([]domain.Point, 0, len(points))
	for _, p := range points {
		if err := p.Validate(); err != nil {
			slog.WarnContext(ctx, "skipping alert", "id", p.ID, "error", err)
			skipped++
			continue
		}
		valid = append(valid, p)
	}
	metrics.AlertsRejected.WithLabelValues("batch").Add(float64(skipped))
	if len(valid) == 0 {
		return 0, skipped, nil
	}
	if err := s.alerts.InsertBatch(ctx, valid); err != nil {
		return 0, skipped, fmt.Errorf("insert batch: %w", err)
	}
	metrics.AlertsIngested.WithLabelValues("batch").Add(float64(len(valid)))
	return len(valid), skipped, nil
}

// NearbyClusters loads recent alerts around the origin and aggregates them.
func (s *AlertService) NearbyClusters(ctx context.Context, q NearbyQuery) ([]domain.Cluster, error) {
	return s.nearbyClusters(ctx, q, s.now().Add(-q.Window))
}

func (s *AlertService) nearbyClusters(ctx context.Context, q NearbyQuery, since time.Time) ([]domain.Cluster, error) {
	if err := q.Origin.Validate(); err != nil {
		return nil, err
	}
	if q.SearchRadiusMeters <= 0 {
		return nil, ErrInvalidRadius
	}
	if q.Limit <= 0 || q.Limit > 2000 {
		q.Limit = 500
	}

	bounds := geospatial.BoundingBox(q.Origin, q.SearchRadiusMeters)

	points, err := s.alerts.FindInBounds(ctx, bounds, since, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("find alerts: %w", err)
	}

	start := time.Now()
	clusters := Aggregate(points, q.Origin, q.ClusterRadiusMeters, &since)
	metrics.ObserveClustering(len(points), len(clusters), time.Since(start))

	return FilterByCategory(clusters, q.Category), nil
}

// Snapshot aggregates the alerts around q.Origin and publishes the result.
func (s *AlertService) Snapshot(ctx context.Context, q NearbyQuery) (*domain.ClusterSnapshot, error) {
	now := s.now().UTC()
	since := now.Add(-q.Window)

	clusters, err := s.nearbyClusters(ctx, q, since)
	if err != nil {
		return nil, err
	}

	snap := &domain.ClusterSnapshot{
		Region:       geospatial.CellToken(q.Origin, geospatial.RegionCellLevel),
		Origin:       q.Origin,
		RadiusMeters: q.ClusterRadiusMeters,
		Since:        since,
		Clusters:     clusters,
		GeneratedAt:  now,
	}

	if s.publisher != nil {
		if err := s.publisher.PublishClusterSnapshot(ctx, snap); err != nil {
			return snap, fmt.Errorf("publish snapshot: %w", err)
		}
	}
	return snap, nil
}
