package geospatial

import (
	"github.com/golang/geo/s2"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// Cell levels used for keys. Level 18 is roughly 40 m, level 10 roughly 10 km.
const (
	RouteCellLevel  = 18
	RegionCellLevel = 10
)

// CellToken returns the S2 cell token containing p at the given level.
// Nearby points share a token, which makes it usable as a cache key.
func CellToken(p domain.GeoPoint, level int) string {
	ll := s2.LatLngFromDegrees(p.Lat, p.Lng)
	return s2.CellIDFromLatLng(ll).Parent(level).ToToken()
}
