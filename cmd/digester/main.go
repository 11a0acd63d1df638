package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/geoengine/internal/adapters/nats"
	"github.com/samirrijal/geoengine/internal/adapters/postgres"
	"github.com/samirrijal/geoengine/internal/core/usecases"
	"github.com/samirrijal/geoengine/internal/pkg/config"
	"github.com/samirrijal/geoengine/internal/pkg/logging"
	"github.com/samirrijal/geoengine/internal/pkg/report"
	"github.com/samirrijal/geoengine/internal/workflows"
)

const workflowID = "geoengine-cluster-digest"

func main() {
	schedule := flag.Bool("schedule", true, "start the cron digest workflow if it is not already running")
	flag.Parse()

	cfg, err := config.Load("geoengine-digester")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "geoengine-digester")

	if err := report.Setup(cfg.Sentry.DSN, cfg.Sentry.Environment, "geoengine-digester"); err != nil {
		slog.Warn("sentry init failed", "error", err)
	}
	defer report.Flush()

	regions, err := cfg.Temporal.ParseRegions()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if *schedule {
		startDigest(ctx, c, cfg, regions)
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ClusterDigestWorkflow)
	w.RegisterActivity(&workflows.DigestActivities{
		Alerts: usecases.NewAlertService(postgres.NewAlertRepo(db), pub),
	})

	slog.Info("digest worker started", "task_queue", cfg.Temporal.TaskQueue, "regions", len(regions))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// startDigest launches the cron workflow. An already running workflow with
// the same ID is left alone.
func startDigest(ctx context.Context, c client.Client, cfg *config.Config, regions []config.Region) {
	if len(regions) == 0 {
		slog.Warn("no digest regions configured, skipping schedule")
		return
	}

	input := workflows.DigestInput{
		SearchRadiusMeters:  cfg.Alerts.SearchRadiusMeters,
		ClusterRadiusMeters: cfg.Cluster.DefaultRadius,
		WindowMinutes:       cfg.Alerts.WindowMinutes,
	}
	for _, r := range regions {
		input.Regions = append(input.Regions, workflows.Region{Name: r.Name, Lat: r.Lat, Lng: r.Lng})
	}

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           workflowID,
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: cfg.Temporal.Cron,
	}, workflows.ClusterDigestWorkflow, input)
	if err != nil {
		slog.Warn("digest workflow not started", "error", err)
		return
	}
	slog.Info("digest workflow scheduled", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "cron", cfg.Temporal.Cron)
}
