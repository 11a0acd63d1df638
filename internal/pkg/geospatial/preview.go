package geospatial

import (
	"math"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// PreviewFor frames a static map showing both points. The zoom widens in
// four bands as the larger of the two coordinate deltas grows.
func PreviewFor(a, b domain.GeoPoint) domain.MapPreview {
	maxDelta := math.Max(math.Abs(a.Lat-b.Lat), math.Abs(a.Lng-b.Lng))

	zoom := 14
	switch {
	case maxDelta > 0.05:
		zoom = 11
	case maxDelta > 0.02:
		zoom = 12
	case maxDelta > 0.01:
		zoom = 13
	}

	return domain.MapPreview{
		Center: domain.GeoPoint{Lat: (a.Lat + b.Lat) / 2, Lng: (a.Lng + b.Lng) / 2},
		Zoom:   zoom,
	}
}
