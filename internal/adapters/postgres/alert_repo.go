package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

const insertAlertSQL = `
	INSERT INTO alerts (alert_id, category, location, occurred_at)
	VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
	ON CONFLICT (alert_id) DO UPDATE
	SET category = EXCLUDED.category, location = EXCLUDED.location,
	    occurred_at = EXCLUDED.occurred_at`

// AlertRepo implements ports.AlertRepository with pgx and PostGIS.
type AlertRepo struct {
	db *DB
}

// NewAlertRepo creates a new AlertRepo.
func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

// Insert upserts a single alert. Alerts without an id get one from the database.
func (r *AlertRepo) Insert(ctx context.Context, p *domain.Point) error {
	if p.ID == "" {
		return r.db.Pool.QueryRow(ctx, `
			INSERT INTO alerts (category, location, occurred_at)
			VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
			RETURNING alert_id
		`, p.Category, p.Lng, p.Lat, occurredAt(p)).Scan(&p.ID)
	}
	_, err := r.db.Pool.Exec(ctx, insertAlertSQL, p.ID, p.Category, p.Lng, p.Lat, occurredAt(p))
	return err
}

// InsertBatch upserts many alerts using pgx.Batch.
func (r *AlertRepo) InsertBatch(ctx context.Context, points []domain.Point) error {
	batch := &pgx.Batch{}
	for i := range points {
		p := &points[i]
		if p.ID == "" {
			batch.Queue(`
				INSERT INTO alerts (category, location, occurred_at)
				VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
			`, p.Category, p.Lng, p.Lat, occurredAt(p))
			continue
		}
		batch.Queue(insertAlertSQL, p.ID, p.Category, p.Lng, p.Lat, occurredAt(p))
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// FindInBounds returns the newest limit alerts inside b that occurred at or
// after since, oldest first.
func (r *AlertRepo) FindInBounds(ctx context.Context, b domain.Bounds, since time.Time, limit int) ([]domain.Point, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT alert_id, category, lat, lng, occurred_at
		FROM (
			SELECT alert_id, category,
			       ST_Y(location::geometry) AS lat,
			       ST_X(location::geometry) AS lng,
			       occurred_at
			FROM alerts
			WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)
			  AND occurred_at >= $5
			ORDER BY occurred_at DESC, alert_id DESC
			LIMIT $6
		) newest
		ORDER BY occurred_at, alert_id
	`, b.MinLng, b.MinLat, b.MaxLng, b.MaxLat, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]domain.Point, 0)
	for rows.Next() {
		var p domain.Point
		var at time.Time
		if err := rows.Scan(&p.ID, &p.Category, &p.Lat, &p.Lng, &at); err != nil {
			return nil, err
		}
		p.OccurredAt = &at
		points = append(points, p)
	}
	return points, rows.Err()
}

func occurredAt(p *domain.Point) time.Time {
	if p.OccurredAt != nil {
		return p.OccurredAt.UTC()
	}
	return time.Now().UTC()
}
