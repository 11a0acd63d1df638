package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/samirrijal/geoengine/internal/adapters/postgres"
	"github.com/samirrijal/geoengine/internal/pkg/config"
	"github.com/samirrijal/geoengine/internal/pkg/logging"
	"github.com/samirrijal/geoengine/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|list>")
	}

	cfg, err := config.Load("geoengine-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text", "geoengine-migrate")

	files, err := migrations.Files()
	if err != nil {
		log.Fatalf("migrations: %v", err)
	}

	switch os.Args[1] {
	case "list":
		for _, f := range files {
			slog.Info("migration", "file", f)
		}
	case "up":
		ctx := context.Background()
		db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		runMigrations(ctx, db, files)
		v, err := db.PostGISVersion(ctx)
		if err != nil {
			log.Fatalf("%v", err)
		}
		slog.Info("postgis ready", "version", v)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// runMigrations applies every file in order. The SQL is idempotent
// (IF NOT EXISTS everywhere), so reruns are safe.
func runMigrations(ctx context.Context, db *postgres.DB, files []string) {
	for _, f := range files {
		data, err := migrations.Read(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		slog.Info("OK", "file", f)
	}

	slog.Info("all migrations applied", "count", len(files))
}
