// Package google implements ports.RoutingClient on top of the Google Routes API v2.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/pkg/telemetry"
)

// DefaultBaseURL is the public Routes API endpoint.
const DefaultBaseURL = "https://routes.googleapis.com"

const fieldMask = "routes.duration,routes.distanceMeters,routes.polyline.encodedPolyline"

var tracer = otel.Tracer("github.com/samirrijal/geoengine/internal/adapters/google")

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx answer from the Routes API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		return "routes api: rate limit exceeded"
	}
	return fmt.Sprintf("routes api: status %d: %s", e.StatusCode, e.Body)
}

// Client calls computeRoutes once per travel mode.
type Client struct {
	apiKey  string
	baseURL string
	http    HTTPDoer
}

// NewClient creates a Routes API client. Per-call deadlines come from the
// caller's context; the HTTP timeout is only a backstop.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPDoer swaps the transport, mainly for tests.
func (c *Client) WithHTTPDoer(d HTTPDoer) *Client {
	c.http = d
	return c
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type waypoint struct {
	Location struct {
		LatLng latLng `json:"latLng"`
	} `json:"location"`
}

func newWaypoint(p domain.GeoPoint) waypoint {
	var w waypoint
	w.Location.LatLng = latLng{Latitude: p.Lat, Longitude: p.Lng}
	return w
}

type computeRoutesRequest struct {
	Origin      waypoint `json:"origin"`
	Destination waypoint `json:"destination"`
	TravelMode  string   `json:"travelMode"`
}

type computeRoutesResponse struct {
	Routes []struct {
		Duration       string `json:"duration"`
		DistanceMeters *int   `json:"distanceMeters"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

// ComputeRoute implements ports.RoutingClient.
func (c *Client) ComputeRoute(ctx context.Context, origin, destination domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanComputeRoute)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrMode, string(mode)))

	body, err := json.Marshal(computeRoutesRequest{
		Origin:      newWaypoint(origin),
		Destination: newWaypoint(destination),
		TravelMode:  string(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/directions/v2:computeRoutes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compute routes %s: %w", mode, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, resp.StatusCode))

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var out computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Routes) == 0 {
		return nil, fmt.Errorf("no %s route found", mode)
	}

	r := out.Routes[0]
	raw := &domain.RawRoute{
		DurationString:  r.Duration,
		EncodedPolyline: r.Polyline.EncodedPolyline,
	}
	if r.DistanceMeters != nil {
		d := float64(*r.DistanceMeters)
		raw.DistanceMeters = &d
	}
	return raw, nil
}
