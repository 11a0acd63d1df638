package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// MockHTTPDoer is a mock implementation of HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func loadFixture(t *testing.T, name string) string {
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err, "load fixture %s", name)
	return string(data)
}

func mockResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

var (
	origin      = domain.GeoPoint{Lat: 32.7747, Lng: -117.0713}
	destination = domain.GeoPoint{Lat: 32.7694, Lng: -117.0495}
)

func TestComputeRoute_Success(t *testing.T) {
	doer := &MockHTTPDoer{}
	doer.On("Do", mock.AnythingOfType("*http.Request")).
		Return(mockResponse(200, loadFixture(t, "compute_routes_walk.json")), nil)

	client := NewClient("test-key", "").WithHTTPDoer(doer)
	raw, err := client.ComputeRoute(context.Background(), origin, destination, domain.ModeWalk)
	require.NoError(t, err)

	assert.Equal(t, "1851s", raw.DurationString)
	assert.Nil(t, raw.DurationSeconds)
	require.NotNil(t, raw.DistanceMeters)
	assert.Equal(t, 2534.0, *raw.DistanceMeters)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", raw.EncodedPolyline)
	doer.AssertExpectations(t)
}

func TestComputeRoute_RequestFormat(t *testing.T) {
	var captured *http.Request
	var body map[string]any
	doer := &MockHTTPDoer{}
	doer.On("Do", mock.AnythingOfType("*http.Request")).Run(func(args mock.Arguments) {
		captured = args.Get(0).(*http.Request)
		b, _ := io.ReadAll(captured.Body)
		_ = json.Unmarshal(b, &body)
	}).Return(mockResponse(200, loadFixture(t, "compute_routes_walk.json")), nil)

	client := NewClient("test-key", "https://routes.example.test").WithHTTPDoer(doer)
	_, err := client.ComputeRoute(context.Background(), origin, destination, domain.ModeTransit)
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "routes.example.test", captured.URL.Host)
	assert.Equal(t, "/directions/v2:computeRoutes", captured.URL.Path)
	assert.Equal(t, "test-key", captured.Header.Get("X-Goog-Api-Key"))
	assert.Equal(t, fieldMask, captured.Header.Get("X-Goog-FieldMask"))
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))

	assert.Equal(t, "TRANSIT", body["travelMode"])
	latLng := body["origin"].(map[string]any)["location"].(map[string]any)["latLng"].(map[string]any)
	assert.InDelta(t, 32.7747, latLng["latitude"], 1e-9)
	assert.InDelta(t, -117.0713, latLng["longitude"], 1e-9)
}

func TestComputeRoute_NoRoutes(t *testing.T) {
	doer := &MockHTTPDoer{}
	doer.On("Do", mock.Anything).Return(mockResponse(200, `{}`), nil)

	_, err := NewClient("k", "").WithHTTPDoer(doer).ComputeRoute(context.Background(), origin, destination, domain.ModeTransit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no TRANSIT route")
}

func TestComputeRoute_MissingDistance(t *testing.T) {
	doer := &MockHTTPDoer{}
	doer.On("Do", mock.Anything).Return(mockResponse(200, `{"routes":[{"duration":"60s"}]}`), nil)

	raw, err := NewClient("k", "").WithHTTPDoer(doer).ComputeRoute(context.Background(), origin, destination, domain.ModeWalk)
	require.NoError(t, err)
	assert.Nil(t, raw.DistanceMeters)
	assert.Empty(t, raw.EncodedPolyline)
}

func TestComputeRoute_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		msg    string
	}{
		{"rate limited", 429, `{"error":{"message":"Quota exceeded"}}`, "rate limit"},
		{"bad request", 400, `{"error":{"message":"Invalid coordinates"}}`, "Invalid coordinates"},
		{"server error", 503, `unavailable`, "status 503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &MockHTTPDoer{}
			doer.On("Do", mock.Anything).Return(mockResponse(tt.status, tt.body), nil)

			_, err := NewClient("k", "").WithHTTPDoer(doer).ComputeRoute(context.Background(), origin, destination, domain.ModeDrive)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestComputeRoute_TransportError(t *testing.T) {
	doer := &MockHTTPDoer{}
	doer.On("Do", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	_, err := NewClient("k", "").WithHTTPDoer(doer).ComputeRoute(context.Background(), origin, destination, domain.ModeDrive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestComputeRoute_MalformedJSON(t *testing.T) {
	doer := &MockHTTPDoer{}
	doer.On("Do", mock.Anything).Return(mockResponse(200, `{"routes": [`), nil)

	_, err := NewClient("k", "").WithHTTPDoer(doer).ComputeRoute(context.Background(), origin, destination, domain.ModeDrive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
