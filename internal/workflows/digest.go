package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Region is a fixed area the digest keeps a cluster snapshot for.
type Region struct {
	Name string
	Lat  float64
	Lng  float64
}

// DigestInput configures one digest run.
type DigestInput struct {
	Regions             []Region
	SearchRadiusMeters  float64
	ClusterRadiusMeters float64
	WindowMinutes       int
}

// RegionSummary is what one region's snapshot activity reports back.
type RegionSummary struct {
	Region   string
	Token    string
	Clusters int
	Alerts   int
	Failed   bool
}

// ClusterDigestWorkflow aggregates the recent alerts of every region and
// publishes one cluster snapshot per region. Regions are processed in
// parallel; a region whose activity fails after retries is marked Failed
// and does not stop the others.
func ClusterDigestWorkflow(ctx workflow.Context, input DigestInput) ([]RegionSummary, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting cluster digest", "regions", len(input.Regions))

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 2 * time.Second,
			MaximumAttempts: 3,
		},
	})

	futures := make([]workflow.Future, len(input.Regions))
	for i, r := range input.Regions {
		futures[i] = workflow.ExecuteActivity(ctx, "SnapshotRegion", SnapshotRequest{
			Region:              r,
			SearchRadiusMeters:  input.SearchRadiusMeters,
			ClusterRadiusMeters: input.ClusterRadiusMeters,
			WindowMinutes:       input.WindowMinutes,
		})
	}

	summaries := make([]RegionSummary, 0, len(futures))
	failed := 0
	for i, f := range futures {
		var s RegionSummary
		if err := f.Get(ctx, &s); err != nil {
			logger.Warn("region snapshot failed", "region", input.Regions[i].Name, "error", err)
			s = RegionSummary{Region: input.Regions[i].Name, Failed: true}
			failed++
		}
		summaries = append(summaries, s)
	}

	logger.Info("Cluster digest finished", "regions", len(summaries), "failed", failed)
	return summaries, nil
}
