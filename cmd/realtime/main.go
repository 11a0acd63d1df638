package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/geoengine/internal/adapters/nats"
	"github.com/samirrijal/geoengine/internal/adapters/postgres"
	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/core/ports"
	"github.com/samirrijal/geoengine/internal/pkg/config"
	"github.com/samirrijal/geoengine/internal/pkg/logging"
	"github.com/samirrijal/geoengine/internal/pkg/metrics"
	"github.com/samirrijal/geoengine/internal/pkg/report"
)

func main() {
	cfg, err := config.Load("geoengine-realtime")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "geoengine-realtime")

	if err := report.Setup(cfg.Sentry.DSN, cfg.Sentry.Environment, "geoengine-realtime"); err != nil {
		slog.Warn("sentry init failed", "error", err)
	}
	defer report.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// NATS
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Durable)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	if err := sub.SubscribeAlerts(ctx, storeAlert(postgres.NewAlertRepo(db))); err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	slog.Info("GeoEngine alert feed consumer started", "durable", cfg.NATS.Durable)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down", "signal", sig.String())
}

// storeAlert persists each feed alert. The subscriber only delivers alerts
// that carry an id and inserts upsert on it, so a redelivered message does
// not create a duplicate row.
func storeAlert(repo ports.AlertRepository) func(ctx context.Context, p *domain.Point) error {
	return func(ctx context.Context, p *domain.Point) error {
		if err := repo.Insert(ctx, p); err != nil {
			slog.ErrorContext(ctx, "store alert failed", "id", p.ID, "error", err)
			report.ErrorWithOptions(err, report.Options{Tags: map[string]string{"alert_id": p.ID}})
			return err
		}
		metrics.AlertsIngested.WithLabelValues("feed").Inc()
		slog.DebugContext(ctx, "alert stored", "id", p.ID, "category", p.Category)
		return nil
	}
}
