package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/geoengine/internal/adapters/google"
	"github.com/samirrijal/geoengine/internal/adapters/http"
	natsadapter "github.com/samirrijal/geoengine/internal/adapters/nats"
	"github.com/samirrijal/geoengine/internal/adapters/postgres"
	"github.com/samirrijal/geoengine/internal/adapters/valkey"
	"github.com/samirrijal/geoengine/internal/core/ports"
	"github.com/samirrijal/geoengine/internal/core/usecases"
	"github.com/samirrijal/geoengine/internal/pkg/config"
	"github.com/samirrijal/geoengine/internal/pkg/logging"
	"github.com/samirrijal/geoengine/internal/pkg/metrics"
	"github.com/samirrijal/geoengine/internal/pkg/report"
	"github.com/samirrijal/geoengine/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geoengine-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, "geoengine-api")

	if err := report.Setup(cfg.Sentry.DSN, cfg.Sentry.Environment, "geoengine-api"); err != nil {
		slog.Warn("sentry init failed", "error", err)
	}
	defer report.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Cache. A nil *valkey.Cache must not leak into the interface.
	var routeCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, route caching disabled", "error", err)
	} else {
		defer cache.Close()
		routeCache = cache
	}

	// NATS
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, alerts will not be published", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	if cfg.Routing.APIKey == "" {
		slog.Warn("routing.api_key not set, route requests will fail")
	}
	routingClient := google.NewClient(cfg.Routing.APIKey, cfg.Routing.BaseURL)

	alertSvc := usecases.NewAlertService(postgres.NewAlertRepo(db), publisher)
	routeSvc := usecases.NewRouteService(routingClient, routeCache, usecases.RouteOptions{
		ModeTimeout:     cfg.Routing.ModeTimeout(),
		CacheTTLSeconds: cfg.Routing.CacheTTL,
	})

	deps := &http.Dependencies{
		Alerts: alertSvc,
		Routes: routeSvc,
		Defaults: http.Defaults{
			ClusterRadiusMeters: cfg.Cluster.DefaultRadius,
			SearchRadiusMeters:  cfg.Alerts.SearchRadiusMeters,
			Window:              cfg.Alerts.Window(),
			MaxPoints:           cfg.Cluster.MaxPoints,
		},
		NATS:  natsConn,
		DB:    db,
		Cache: cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // cluster requests carry up to max_points points
		AppName:      "GeoEngine API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		ExposeHeaders:    "Link, ETag, X-Request-ID, Deprecation, Sunset",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
