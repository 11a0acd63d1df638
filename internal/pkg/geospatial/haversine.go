package geospatial

import (
	"math"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// EarthRadiusMeters is the mean Earth radius used by every distance in the engine.
const EarthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Distance is Haversine over GeoPoints. Inputs are assumed valid.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(center domain.GeoPoint, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	lngDelta := radiusMeters / (111320.0 * math.Cos(toRad(center.Lat)))

	return domain.Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MinLng: math.Max(center.Lng-lngDelta, -180),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MaxLng: math.Min(center.Lng+lngDelta, 180),
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
