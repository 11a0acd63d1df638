package usecases

import (
	"strconv"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/pkg/geospatial"
)

// ClusterPoints groups points with single-link greedy clustering. Points are
// visited in input order; each unvisited point seeds a cluster and absorbs
// every later unvisited point within radiusMeters of the seed itself.
// Membership therefore depends on input order. A radius <= 0 makes every
// point its own cluster.
func ClusterPoints(points []domain.Point, radiusMeters float64) []domain.Cluster {
	clusters := make([]domain.Cluster, 0, len(points))
	visited := make([]bool, len(points))

	for i, seed := range points {
		if visited[i] {
			continue
		}
		visited[i] = true
		members := []domain.Point{seed}

		if radiusMeters > 0 {
			seedLoc := seed.Location()
			for j := i + 1; j < len(points); j++ {
				if visited[j] {
					continue
				}
				if geospatial.Distance(seedLoc, points[j].Location()) <= radiusMeters {
					visited[j] = true
					members = append(members, points[j])
				}
			}
		}

		clusters = append(clusters, newCluster(clusterID(seed, len(clusters)), members))
	}
	return clusters
}

func newCluster(id string, members []domain.Point) domain.Cluster {
	dominant := dominantCategory(members)
	return domain.Cluster{
		ID:               id,
		Center:           centerOf(members),
		Members:          members,
		DominantCategory: dominant,
		Size:             len(members),
		MarkerScale:      domain.MarkerScale(len(members)),
		Style:            domain.StyleFor(dominant),
	}
}

func clusterID(seed domain.Point, n int) string {
	if seed.ID != "" {
		return seed.ID
	}
	return "cluster-" + strconv.Itoa(n)
}

// centerOf is the arithmetic mean of member coordinates.
func centerOf(members []domain.Point) domain.GeoPoint {
	if len(members) == 0 {
		return domain.GeoPoint{}
	}
	var lat, lng float64
	for _, m := range members {
		lat += m.Lat
		lng += m.Lng
	}
	n := float64(len(members))
	return domain.GeoPoint{Lat: lat / n, Lng: lng / n}
}

// dominantCategory returns the most frequent category. Ties go to the
// category that appears first among members.
func dominantCategory(members []domain.Point) string {
	counts := make(map[string]int, 4)
	var order []string
	for _, m := range members {
		if _, seen := counts[m.Category]; !seen {
			order = append(order, m.Category)
		}
		counts[m.Category]++
	}

	best, bestCount := "", 0
	for _, c := range order {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}
