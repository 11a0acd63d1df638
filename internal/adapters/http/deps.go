package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoengine/internal/adapters/postgres"
	"github.com/samirrijal/geoengine/internal/adapters/valkey"
	"github.com/samirrijal/geoengine/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Alerts   *usecases.AlertService
	Routes   *usecases.RouteService
	Defaults Defaults
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}

// Defaults are applied when a request leaves a tuning parameter out.
type Defaults struct {
	ClusterRadiusMeters float64
	SearchRadiusMeters  float64
	Window              time.Duration
	MaxPoints           int
}

func (d Defaults) withFallbacks() Defaults {
	if d.ClusterRadiusMeters <= 0 {
		d.ClusterRadiusMeters = 200
	}
	if d.SearchRadiusMeters <= 0 {
		d.SearchRadiusMeters = 5000
	}
	if d.Window <= 0 {
		d.Window = 24 * time.Hour
	}
	if d.MaxPoints <= 0 {
		d.MaxPoints = 5000
	}
	return d
}
