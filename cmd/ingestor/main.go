package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/samirrijal/geoengine/internal/adapters/postgres"
	"github.com/samirrijal/geoengine/internal/core/usecases"
	"github.com/samirrijal/geoengine/internal/pkg/config"
	"github.com/samirrijal/geoengine/internal/pkg/logging"
)

func main() {
	path := flag.String("file", "alerts.json", "path to the alerts export")
	url := flag.String("url", "", "fetch the export over HTTP instead of reading -file")
	batchSize := flag.Int("batch", 500, "rows per insert batch")
	flag.Parse()

	cfg, err := config.Load("geoengine-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "geoengine-ingestor")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	src, name, err := openExport(ctx, *path, *url)
	if err != nil {
		log.Fatalf("open export: %v", err)
	}
	defer src.Close()

	points, err := decodeExport(src)
	if err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	slog.Info("GeoEngine alert ingestor", "source", name, "records", len(points))

	// No publisher: historical imports must not fan out as live alerts.
	svc := usecases.NewAlertService(postgres.NewAlertRepo(db), nil)

	var stored, skipped int
	for i, batch := range batches(points, *batchSize) {
		n, s, err := svc.Ingest(ctx, batch)
		if err != nil {
			log.Fatalf("batch %d: %v", i, err)
		}
		stored += n
		skipped += s
	}

	slog.Info("ingestion complete", "stored", stored, "skipped", skipped)
}

func openExport(ctx context.Context, path, url string) (io.ReadCloser, string, error) {
	if url == "" {
		f, err := os.Open(path)
		return f, path, err
	}

	client := &http.Client{Timeout: 120 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, url, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, url, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, url, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}
	return resp.Body, url, nil
}
