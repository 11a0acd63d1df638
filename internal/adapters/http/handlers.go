package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/core/usecases"
	"github.com/samirrijal/geoengine/internal/pkg/geospatial"
)

type clusterRequest struct {
	Points       []domain.Point   `json:"points"`
	Origin       *domain.GeoPoint `json:"origin"`
	RadiusMeters *float64         `json:"radius_meters"`
	Since        *time.Time       `json:"since"`
	Category     string           `json:"category"`
}

type clusterResponse struct {
	Clusters []domain.Cluster `json:"clusters"`
	Count    int              `json:"count"`
}

// ClusterHandler clusters the points in the request body around origin.
func ClusterHandler(deps *Dependencies) fiber.Handler {
	defaults := deps.Defaults.withFallbacks()

	return func(c *fiber.Ctx) error {
		var req clusterRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Origin == nil {
			return errBadRequest(c, "origin is required")
		}
		if err := req.Origin.Validate(); err != nil {
			return errBadRequest(c, "origin: "+err.Error())
		}
		if len(req.Points) > defaults.MaxPoints {
			return errBadRequest(c, fmt.Sprintf("too many points (max %d)", defaults.MaxPoints))
		}
		for i, p := range req.Points {
			if err := p.Validate(); err != nil {
				return errBadRequest(c, fmt.Sprintf("points[%d]: %v", i, err))
			}
		}

		radius := defaults.ClusterRadiusMeters
		if req.RadiusMeters != nil {
			radius = *req.RadiusMeters
		}

		clusters := usecases.FilterByCategory(
			usecases.Aggregate(req.Points, *req.Origin, radius, req.Since),
			req.Category,
		)
		return c.JSON(clusterResponse{Clusters: clusters, Count: len(clusters)})
	}
}

type routeRequest struct {
	Origin      *domain.GeoPoint `json:"origin"`
	Destination *domain.GeoPoint `json:"destination"`
	Modes       []string         `json:"modes"`
}

type routeResponse struct {
	Routes  map[domain.RouteMode]domain.RouteResult `json:"routes"`
	Failed  []domain.RouteMode                      `json:"failed"`
	Preview domain.MapPreview                       `json:"preview"`
}

// RouteHandler resolves every requested travel mode concurrently. Modes that
// fail are listed under "failed" rather than failing the request.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Origin == nil || req.Destination == nil {
			return errBadRequest(c, "origin and destination are required")
		}

		q := domain.RouteQuery{Origin: *req.Origin, Destination: *req.Destination}
		for _, m := range req.Modes {
			mode, err := domain.ParseRouteMode(strings.ToUpper(strings.TrimSpace(m)))
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			q.Modes = append(q.Modes, mode)
		}

		results, err := deps.Routes.Resolve(c.UserContext(), q)
		switch {
		case errors.Is(err, usecases.ErrInvalidQuery):
			return errBadRequest(c, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return errUnavailable(c, "route resolution did not finish in time")
		case err != nil:
			return errInternal(c, err)
		}

		requested := q.Modes
		if len(requested) == 0 {
			requested = domain.AllModes
		}
		failed := make([]domain.RouteMode, 0)
		seen := make(map[domain.RouteMode]bool, len(requested))
		for _, m := range requested {
			if _, ok := results[m]; !ok && !seen[m] {
				failed = append(failed, m)
			}
			seen[m] = true
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(routeResponse{
			Routes:  results,
			Failed:  failed,
			Preview: geospatial.PreviewFor(q.Origin, q.Destination),
		})
	}
}

// nearbyQuery reads the shared lat/lng/radius/window parameters of the
// alert cluster endpoints.
func nearbyQuery(c *fiber.Ctx, d Defaults) (usecases.NearbyQuery, error) {
	lat, err := requiredFloat(c, "lat")
	if err != nil {
		return usecases.NearbyQuery{}, err
	}
	lng, err := requiredFloat(c, "lng")
	if err != nil {
		return usecases.NearbyQuery{}, err
	}
	q := usecases.NearbyQuery{
		Origin:              domain.GeoPoint{Lat: lat, Lng: lng},
		SearchRadiusMeters:  d.SearchRadiusMeters,
		ClusterRadiusMeters: c.QueryFloat("cluster_radius", d.ClusterRadiusMeters),
		Window:              d.Window,
		Category:            c.Query("category"),
		Limit:               d.MaxPoints,
	}
	if err := q.Origin.Validate(); err != nil {
		return q, err
	}
	if km := c.QueryFloat("radius_km", 0); km != 0 {
		if km < 0.1 || km > 50 {
			return q, fmt.Errorf("radius_km must be between 0.1 and 50")
		}
		q.SearchRadiusMeters = km * 1000
	}
	if mins := c.QueryInt("window_minutes", 0); mins != 0 {
		if mins < 0 {
			return q, fmt.Errorf("window_minutes must be positive")
		}
		q.Window = time.Duration(mins) * time.Minute
	}
	if q.ClusterRadiusMeters < 0 {
		return q, fmt.Errorf("cluster_radius must not be negative")
	}
	return q, nil
}

func requiredFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

// AlertClustersHandler clusters stored alerts near lat/lng.
func AlertClustersHandler(deps *Dependencies) fiber.Handler {
	return alertClusters(deps, "")
}

// PoliceReportsHandler is the legacy police-only view of AlertClustersHandler.
func PoliceReportsHandler(deps *Dependencies) fiber.Handler {
	return alertClusters(deps, domain.CategoryPolice)
}

func alertClusters(deps *Dependencies, category string) fiber.Handler {
	defaults := deps.Defaults.withFallbacks()

	return func(c *fiber.Ctx) error {
		q, err := nearbyQuery(c, defaults)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if category != "" {
			q.Category = category
		}

		clusters, err := deps.Alerts.NearbyClusters(c.UserContext(), q)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCoordinate) || errors.Is(err, usecases.ErrInvalidRadius) {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, err)
		}

		offset, limit := pageParams(c, 50, 200)
		page, pg := paginate(clusters, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// ReportAlertHandler stores a single reported alert.
func ReportAlertHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p domain.Point
		if err := c.BodyParser(&p); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p.Category = strings.ToLower(strings.TrimSpace(p.Category))

		err := deps.Alerts.Report(c.UserContext(), &p)
		switch {
		case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, usecases.ErrMissingCategory):
			return errBadRequest(c, err.Error())
		case err != nil:
			return errInternal(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

type categoryView struct {
	ID string `json:"id"`
	domain.Style
}

// CategoriesHandler lists the known alert categories with their marker styles.
func CategoriesHandler() fiber.Handler {
	cats := domain.Categories()
	views := make([]categoryView, len(cats))
	for i, id := range cats {
		views[i] = categoryView{ID: id, Style: domain.StyleFor(id)}
	}
	return func(c *fiber.Ctx) error {
		return c.JSON(views)
	}
}
