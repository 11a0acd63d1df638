package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/core/usecases"
	"github.com/samirrijal/geoengine/internal/pkg/report"
)

// SnapshotRequest is the input of the SnapshotRegion activity.
type SnapshotRequest struct {
	Region              Region
	SearchRadiusMeters  float64
	ClusterRadiusMeters float64
	WindowMinutes       int
}

// DigestActivities holds the activity implementations for the digest workflow.
type DigestActivities struct {
	Alerts *usecases.AlertService
}

// SnapshotRegion aggregates the region's recent alerts and publishes the
// resulting snapshot.
func (a *DigestActivities) SnapshotRegion(ctx context.Context, req SnapshotRequest) (RegionSummary, error) {
	snap, err := a.Alerts.Snapshot(ctx, usecases.NearbyQuery{
		Origin:              domain.GeoPoint{Lat: req.Region.Lat, Lng: req.Region.Lng},
		SearchRadiusMeters:  req.SearchRadiusMeters,
		ClusterRadiusMeters: req.ClusterRadiusMeters,
		Window:              time.Duration(req.WindowMinutes) * time.Minute,
	})
	if err != nil {
		err = fmt.Errorf("snapshot %s: %w", req.Region.Name, err)
		report.ErrorWithOptions(err, report.Options{Tags: map[string]string{"region": req.Region.Name}})
		return RegionSummary{}, err
	}

	alerts := 0
	for _, c := range snap.Clusters {
		alerts += c.Size
	}
	return RegionSummary{
		Region:   req.Region.Name,
		Token:    snap.Region,
		Clusters: len(snap.Clusters),
		Alerts:   alerts,
	}, nil
}
