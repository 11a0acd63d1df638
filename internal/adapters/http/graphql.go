package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services. Object
// fields resolve through the domain types' json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	defaults := deps.Defaults.withFallbacks()

	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	geoPointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lng": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	pointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "AlertPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"id":       &graphql.InputObjectFieldConfig{Type: graphql.String},
			"lat":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lng":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"category": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	styleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Style",
		Fields: graphql.Fields{
			"label": &graphql.Field{Type: graphql.String},
			"color": &graphql.Field{Type: graphql.String},
			"icon":  &graphql.Field{Type: graphql.String},
		},
	})

	alertPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AlertPoint",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"lat":      &graphql.Field{Type: graphql.Float},
			"lng":      &graphql.Field{Type: graphql.Float},
			"category": &graphql.Field{Type: graphql.String},
			"occurred_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pt, ok := p.Source.(domain.Point); ok && pt.OccurredAt != nil {
						return pt.OccurredAt.UTC().Format(time.RFC3339), nil
					}
					return nil, nil
				},
			},
		},
	})

	clusterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Cluster",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"center":            &graphql.Field{Type: geoPointType},
			"members":           &graphql.Field{Type: graphql.NewList(alertPointType)},
			"dominant_category": &graphql.Field{Type: graphql.String},
			"size":              &graphql.Field{Type: graphql.Int},
			"distance_meters":   &graphql.Field{Type: graphql.Float},
			"marker_scale":      &graphql.Field{Type: graphql.Int},
			"style":             &graphql.Field{Type: styleType},
		},
	})

	routeResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteResult",
		Fields: graphql.Fields{
			"mode":             &graphql.Field{Type: graphql.String},
			"duration_seconds": &graphql.Field{Type: graphql.Int},
			"duration":         &graphql.Field{Type: graphql.String},
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"path":             &graphql.Field{Type: graphql.NewList(geoPointType)},
			"path_approximate": &graphql.Field{Type: graphql.Boolean},
		},
	})

	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.String},
			"label": &graphql.Field{Type: graphql.String},
			"color": &graphql.Field{Type: graphql.String},
			"icon":  &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"clusters": &graphql.Field{
				Type:        graphql.NewList(clusterType),
				Description: "Cluster the given points around an origin",
				Args: graphql.FieldConfigArgument{
					"points": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(pointInput)))},
					"origin": &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoPointInput)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: defaults.ClusterRadiusMeters},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin, err := geoPointArg(p.Args["origin"])
					if err != nil {
						return nil, err
					}
					raw, _ := p.Args["points"].([]interface{})
					points := make([]domain.Point, 0, len(raw))
					for i, r := range raw {
						m, _ := r.(map[string]interface{})
						pt := domain.Point{
							Lat:      toFloat(m["lat"]),
							Lng:      toFloat(m["lng"]),
							Category: fmt.Sprint(m["category"]),
						}
						if id, ok := m["id"].(string); ok {
							pt.ID = id
						}
						if err := pt.Validate(); err != nil {
							return nil, fmt.Errorf("points[%d]: %w", i, err)
						}
						points = append(points, pt)
					}
					return usecases.Aggregate(points, origin, p.Args["radius"].(float64), nil), nil
				},
			},
			"alertClusters": &graphql.Field{
				Type:        graphql.NewList(clusterType),
				Description: "Cluster stored alerts near a location",
				Args: graphql.FieldConfigArgument{
					"lat":            &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":            &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius_km":      &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: defaults.SearchRadiusMeters / 1000},
					"window_minutes": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: int(defaults.Window / time.Minute)},
					"cluster_radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: defaults.ClusterRadiusMeters},
					"category":       &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Alerts.NearbyClusters(p.Context, usecases.NearbyQuery{
						Origin:              domain.GeoPoint{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)},
						SearchRadiusMeters:  p.Args["radius_km"].(float64) * 1000,
						ClusterRadiusMeters: p.Args["cluster_radius"].(float64),
						Window:              time.Duration(p.Args["window_minutes"].(int)) * time.Minute,
						Category:            p.Args["category"].(string),
						Limit:               defaults.MaxPoints,
					})
				},
			},
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeResultType),
				Description: "Resolve routes between two points, one entry per mode that succeeded",
				Args: graphql.FieldConfigArgument{
					"origin":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoPointInput)},
					"destination": &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoPointInput)},
					"modes":       &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin, err := geoPointArg(p.Args["origin"])
					if err != nil {
						return nil, err
					}
					dest, err := geoPointArg(p.Args["destination"])
					if err != nil {
						return nil, err
					}
					q := domain.RouteQuery{Origin: origin, Destination: dest}
					if raw, ok := p.Args["modes"].([]interface{}); ok {
						for _, r := range raw {
							mode, err := domain.ParseRouteMode(strings.ToUpper(fmt.Sprint(r)))
							if err != nil {
								return nil, err
							}
							q.Modes = append(q.Modes, mode)
						}
					}
					results, err := deps.Routes.Resolve(p.Context, q)
					if err != nil {
						return nil, err
					}
					// Stable order for clients: the display order of the modes.
					out := make([]domain.RouteResult, 0, len(results))
					for _, m := range domain.AllModes {
						if r, ok := results[m]; ok {
							out = append(out, r)
						}
					}
					return out, nil
				},
			},
			"categories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "Known alert categories",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var out []map[string]interface{}
					for _, id := range domain.Categories() {
						s := domain.StyleFor(id)
						out = append(out, map[string]interface{}{
							"id": id, "label": s.Label, "color": s.Color, "icon": s.Icon,
						})
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func geoPointArg(v interface{}) (domain.GeoPoint, error) {
	m, _ := v.(map[string]interface{})
	p := domain.GeoPoint{Lat: toFloat(m["lat"]), Lng: toFloat(m["lng"])}
	return p, p.Validate()
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
