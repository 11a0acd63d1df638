package usecases_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/core/usecases"
	"github.com/samirrijal/geoengine/internal/pkg/geospatial"
)

// --- Mock RoutingClient ---

type mockRoutingClient struct {
	calls     atomic.Int32
	computeFn func(ctx context.Context, origin, dest domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error)
}

func (m *mockRoutingClient) ComputeRoute(ctx context.Context, origin, dest domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error) {
	m.calls.Add(1)
	if m.computeFn != nil {
		return m.computeFn(ctx, origin, dest, mode)
	}
	return nil, errors.New("not implemented")
}

// --- In-memory CacheService ---

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
	setErr  error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, key)
	delete(c.data, key)
	return nil
}

const examplePolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

var (
	testOrigin = domain.GeoPoint{Lat: 32.7747, Lng: -117.0713}
	testDest   = domain.GeoPoint{Lat: 32.7694, Lng: -117.0495}
)

func okRoute(ctx context.Context, origin, dest domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error) {
	return &domain.RawRoute{
		DurationString:  "600s",
		DistanceMeters:  floatPtr(2500),
		EncodedPolyline: examplePolyline,
	}, nil
}

func TestRouteService_PartialFailure(t *testing.T) {
	client := &mockRoutingClient{
		computeFn: func(ctx context.Context, o, d domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error) {
			if mode == domain.ModeTransit {
				return nil, errors.New("no transit route")
			}
			return okRoute(ctx, o, d, mode)
		},
	}
	svc := usecases.NewRouteService(client, nil, usecases.RouteOptions{})

	results, err := svc.Resolve(context.Background(), domain.RouteQuery{
		Origin:      testOrigin,
		Destination: testDest,
		Modes:       []domain.RouteMode{domain.ModeWalk, domain.ModeDrive, domain.ModeTransit},
	})
	if err != nil {
		t.Fatalf("partial failure must not be an error, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if _, ok := results[domain.ModeTransit]; ok {
		t.Error("failed mode must be absent")
	}
	walk := results[domain.ModeWalk]
	if walk.Mode != domain.ModeWalk || walk.DurationSeconds != 600 || walk.Duration != "10 min" {
		t.Errorf("unexpected walk result: %+v", walk)
	}
	if walk.DistanceMeters == nil || *walk.DistanceMeters != 2500 {
		t.Errorf("expected distance 2500, got %v", walk.DistanceMeters)
	}
	if len(walk.Path) != 3 || walk.PathApproximate {
		t.Errorf("expected decoded 3-point path, got %d points (approx=%v)", len(walk.Path), walk.PathApproximate)
	}
}

func TestRouteService_ModeTimeoutDoesNotBlockSiblings(t *testing.T) {
	client := &mockRoutingClient{
		computeFn: func(ctx context.Context, o, d domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error) {
			if mode == domain.ModeDrive {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return okRoute(ctx, o, d, mode)
		},
	}
	svc := usecases.NewRouteService(client, nil, usecases.RouteOptions{ModeTimeout: 50 * time.Millisecond})

	start := time.Now()
	results, err := svc.Resolve(context.Background(), domain.RouteQuery{Origin: testOrigin, Destination: testDest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("resolve took too long: %v", time.Since(start))
	}
	if len(results) != 2 {
		t.Fatalf("expected WALK and TRANSIT, got %d results", len(results))
	}
	if _, ok := results[domain.ModeDrive]; ok {
		t.Error("timed out mode must be absent")
	}
}

func TestRouteService_ParentCancelStopsAllModes(t *testing.T) {
	var started sync.WaitGroup
	started.Add(3)
	client := &mockRoutingClient{
		computeFn: func(ctx context.Context, o, d domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error) {
			started.Done()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := usecases.NewRouteService(client, nil, usecases.RouteOptions{ModeTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		started.Wait()
		cancel()
	}()

	done := make(chan struct{})
	var results map[domain.RouteMode]domain.RouteResult
	var err error
	go func() {
		results, err = svc.Resolve(ctx, domain.RouteQuery{Origin: testOrigin, Destination: testDest})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("resolve did not return after parent cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRouteService_MalformedPolylineFallsBackToStraightLine(t *testing.T) {
	client := &mockRoutingClient{
		computeFn: func(ctx context.Context, o, d domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error) {
			return &domain.RawRoute{DurationSeconds: intPtr(4000), EncodedPolyline: "_p~iF~ps|U_"}, nil
		},
	}
	svc := usecases.NewRouteService(client, nil, usecases.RouteOptions{})

	results, err := svc.Resolve(context.Background(), domain.RouteQuery{
		Origin: testOrigin, Destination: testDest, Modes: []domain.RouteMode{domain.ModeDrive},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := results[domain.ModeDrive]
	if !ok {
		t.Fatal("decode failure must not drop the route")
	}
	if !r.PathApproximate || len(r.Path) != 2 || r.Path[0] != testOrigin || r.Path[1] != testDest {
		t.Errorf("expected straight line origin->destination, got %+v", r.Path)
	}
	if r.DurationSeconds != 4000 || r.Duration != "1 h 6 min" {
		t.Errorf("unexpected duration: %d / %q", r.DurationSeconds, r.Duration)
	}
	if r.DistanceMeters != nil {
		t.Errorf("expected nil distance, got %v", *r.DistanceMeters)
	}
}

func TestRouteService_UnparseableDurationIsZero(t *testing.T) {
	client := &mockRoutingClient{
		computeFn: func(ctx context.Context, o, d domain.GeoPoint, mode domain.RouteMode) (*domain.RawRoute, error) {
			return &domain.RawRoute{DurationString: "soon", EncodedPolyline: examplePolyline}, nil
		},
	}
	svc := usecases.NewRouteService(client, nil, usecases.RouteOptions{})

	results, err := svc.Resolve(context.Background(), domain.RouteQuery{
		Origin: testOrigin, Destination: testDest, Modes: []domain.RouteMode{domain.ModeWalk},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := results[domain.ModeWalk]
	if !ok {
		t.Fatal("route with bad duration must be kept")
	}
	if r.DurationSeconds != 0 || r.Duration != "0 min" {
		t.Errorf("expected 0 seconds, got %d (%q)", r.DurationSeconds, r.Duration)
	}
	if len(r.Path) != 3 {
		t.Errorf("expected polyline to still be decoded, got %d points", len(r.Path))
	}
}

func TestRouteService_EmptyModesMeansAll(t *testing.T) {
	client := &mockRoutingClient{computeFn: okRoute}
	svc := usecases.NewRouteService(client, nil, usecases.RouteOptions{})

	results, err := svc.Resolve(context.Background(), domain.RouteQuery{Origin: testOrigin, Destination: testDest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 || client.calls.Load() != 3 {
		t.Errorf("expected all 3 modes, got %d results / %d calls", len(results), client.calls.Load())
	}
}

func TestRouteService_DuplicateModesQueriedOnce(t *testing.T) {
	client := &mockRoutingClient{computeFn: okRoute}
	svc := usecases.NewRouteService(client, nil, usecases.RouteOptions{})

	_, err := svc.Resolve(context.Background(), domain.RouteQuery{
		Origin: testOrigin, Destination: testDest,
		Modes: []domain.RouteMode{domain.ModeWalk, domain.ModeWalk},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", client.calls.Load())
	}
}

func TestRouteService_InvalidQuery(t *testing.T) {
	svc := usecases.NewRouteService(&mockRoutingClient{computeFn: okRoute}, nil, usecases.RouteOptions{})

	tests := []struct {
		name string
		q    domain.RouteQuery
	}{
		{"unknown mode", domain.RouteQuery{Origin: testOrigin, Destination: testDest, Modes: []domain.RouteMode{"BICYCLE"}}},
		{"bad origin", domain.RouteQuery{Origin: domain.GeoPoint{Lat: 100}, Destination: testDest}},
		{"bad destination", domain.RouteQuery{Origin: testOrigin, Destination: domain.GeoPoint{Lng: -200}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Resolve(context.Background(), tt.q)
			if !errors.Is(err, usecases.ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestRouteService_UsesCache(t *testing.T) {
	client := &mockRoutingClient{computeFn: okRoute}
	svc := usecases.NewRouteService(client, newMemCache(), usecases.RouteOptions{})
	q := domain.RouteQuery{Origin: testOrigin, Destination: testDest, Modes: []domain.RouteMode{domain.ModeDrive}}

	first, err := svc.Resolve(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Resolve(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls.Load() != 1 {
		t.Errorf("expected second resolve to hit the cache, got %d client calls", client.calls.Load())
	}
	if second[domain.ModeDrive].DurationSeconds != first[domain.ModeDrive].DurationSeconds {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0 min"},
		{59, "0 min"},
		{600, "10 min"},
		{3599, "59 min"},
		{3600, "1 h 0 min"},
		{5430, "1 h 30 min"},
		{90061, "25 h 1 min"},
	}
	for _, tt := range tests {
		if got := usecases.FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"450s", 450, false},
		{"450", 450, false},
		{"450.9s", 450, false},
		{" 12s ", 12, false},
		{"", 0, true},
		{"s", 0, true},
		{"-5s", 0, true},
	}
	for _, tt := range tests {
		got, err := usecases.ParseDurationSeconds(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDurationSeconds(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseDurationSeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func driveCacheKey() string {
	return fmt.Sprintf("routes:%s:%s:%s",
		geospatial.CellToken(testOrigin, geospatial.RouteCellLevel),
		geospatial.CellToken(testDest, geospatial.RouteCellLevel),
		domain.ModeDrive,
	)
}

func TestRouteService_EvictsUndecodableCacheEntry(t *testing.T) {
	cache := newMemCache()
	key := driveCacheKey()
	cache.data[key] = []byte("{not json")

	client := &mockRoutingClient{computeFn: okRoute}
	svc := usecases.NewRouteService(client, cache, usecases.RouteOptions{})
	q := domain.RouteQuery{Origin: testOrigin, Destination: testDest, Modes: []domain.RouteMode{domain.ModeDrive}}

	results, err := svc.Resolve(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := results[domain.ModeDrive]; !ok {
		t.Fatal("expected a DRIVE result")
	}
	if client.calls.Load() != 1 {
		t.Errorf("expected the client to be called once, got %d", client.calls.Load())
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != key {
		t.Errorf("expected %s to be evicted, got %v", key, cache.deleted)
	}
	var cached domain.RouteResult
	if err := json.Unmarshal(cache.data[key], &cached); err != nil {
		t.Errorf("expected a fresh entry after eviction: %v", err)
	}
}

func TestRouteService_CacheWriteFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	cache := newMemCache()
	cache.setErr = errors.New("READONLY replica")

	client := &mockRoutingClient{computeFn: okRoute}
	svc := usecases.NewRouteService(client, cache, usecases.RouteOptions{})
	q := domain.RouteQuery{Origin: testOrigin, Destination: testDest, Modes: []domain.RouteMode{domain.ModeDrive}}

	results, err := svc.Resolve(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := results[domain.ModeDrive]; !ok {
		t.Fatal("a failed cache write must not drop the result")
	}
	if out := buf.String(); !strings.Contains(out, "route cache write failed") || !strings.Contains(out, "READONLY replica") {
		t.Errorf("expected cache write failure in logs, got %q", out)
	}
}
