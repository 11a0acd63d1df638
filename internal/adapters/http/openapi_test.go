package http_test

import (
	"context"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoengine/api"
)

func loadSpec(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI spec: %v", err)
	}
	return spec
}

// TestOpenAPISpec validates the embedded document and checks it documents
// every public route.
func TestOpenAPISpec(t *testing.T) {
	spec := loadSpec(t)

	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI spec validation failed: %v", err)
	}

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/cluster",
		"/v1/route",
		"/v1/alerts",
		"/v1/alerts/clusters",
		"/v1/police-reports",
		"/v1/categories",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := spec.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found in spec", path)
		}
	}

	if op := spec.Paths.Find("/v1/police-reports").Get; op == nil || !op.Deprecated {
		t.Error("expected /v1/police-reports to be marked deprecated")
	}

	expectedSchemas := []string{
		"GeoPoint",
		"AlertPoint",
		"Cluster",
		"RouteResult",
		"RouteResponse",
		"MapPreview",
		"Category",
		"APIError",
		"Pagination",
	}
	for _, schema := range expectedSchemas {
		if spec.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}
}

// TestOpenAPIMatchesRouter fails when a /v1 route is registered without
// being documented.
func TestOpenAPIMatchesRouter(t *testing.T) {
	spec := loadSpec(t)
	app := setupApp(makeDeps())

	for _, r := range app.GetRoutes(true) {
		if !strings.HasPrefix(r.Path, "/v1/") || r.Method == fiber.MethodHead {
			continue
		}
		item := spec.Paths.Find(r.Path)
		if item == nil {
			t.Errorf("route %s %s is not documented", r.Method, r.Path)
			continue
		}
		if item.GetOperation(r.Method) == nil {
			t.Errorf("route %s %s has no documented operation", r.Method, r.Path)
		}
	}
}

func TestOpenAPIInfo(t *testing.T) {
	spec := loadSpec(t)

	if spec.Info.Title != "GeoEngine API" {
		t.Errorf("expected title 'GeoEngine API', got %q", spec.Info.Title)
	}
	if spec.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", spec.Info.Version)
	}
	if len(spec.Servers) == 0 {
		t.Error("expected at least one server")
	}
}
