package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/core/ports"
	"github.com/samirrijal/geoengine/internal/pkg/geospatial"
	"github.com/samirrijal/geoengine/internal/pkg/metrics"
	"github.com/samirrijal/geoengine/internal/pkg/polyline"
	"github.com/samirrijal/geoengine/internal/pkg/telemetry"
)

// ErrInvalidQuery is returned when a route query cannot be resolved at all.
var ErrInvalidQuery = errors.New("invalid route query")

var tracer = otel.Tracer("github.com/samirrijal/geoengine/internal/core/usecases")

// RouteOptions tunes route resolution.
type RouteOptions struct {
	ModeTimeout     time.Duration
	CacheTTLSeconds int
}

// RouteService resolves routes for several travel modes at once.
type RouteService struct {
	client ports.RoutingClient
	cache  ports.CacheService
	opts   RouteOptions
}

// NewRouteService creates a new RouteService. cache may be nil.
func NewRouteService(client ports.RoutingClient, cache ports.CacheService, opts RouteOptions) *RouteService {
	if opts.ModeTimeout <= 0 {
		opts.ModeTimeout = 10 * time.Second
	}
	if opts.CacheTTLSeconds <= 0 {
		opts.CacheTTLSeconds = 300
	}
	return &RouteService{client: client, cache: cache, opts: opts}
}

// Resolve queries the routing client once per requested mode, concurrently.
// Each mode runs under its own timeout; a mode that fails or times out is
// left out of the returned map and does not affect the others. An empty mode
// list means every mode. The error is non-nil only for an invalid query or
// when ctx itself is cancelled, in which case the modes that finished in
// time are still returned.
func (s *RouteService) Resolve(ctx context.Context, q domain.RouteQuery) (map[domain.RouteMode]domain.RouteResult, error) {
	modes, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, telemetry.SpanResolveRoutes)
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrModeCount, len(modes)))

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[domain.RouteMode]domain.RouteResult, len(modes))
	)

	for _, mode := range modes {
		wg.Add(1)
		go func(mode domain.RouteMode) {
			defer wg.Done()

			mctx, cancel := context.WithTimeout(ctx, s.opts.ModeTimeout)
			defer cancel()

			start := time.Now()
			res, err := s.resolveMode(mctx, q, mode)
			if err != nil {
				metrics.ObserveRoute(string(mode), "error", time.Since(start))
				slog.WarnContext(ctx, "route mode failed", "mode", mode, "error", err)
				return
			}
			metrics.ObserveRoute(string(mode), "ok", time.Since(start))

			mu.Lock()
			results[mode] = *res
			mu.Unlock()
		}(mode)
	}
	wg.Wait()

	span.SetAttributes(attribute.Int(telemetry.AttrModesResolved, len(results)))
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return results, err
	}
	return results, nil
}

func normalizeQuery(q domain.RouteQuery) ([]domain.RouteMode, error) {
	if err := q.Origin.Validate(); err != nil {
		return nil, fmt.Errorf("%w: origin: %v", ErrInvalidQuery, err)
	}
	if err := q.Destination.Validate(); err != nil {
		return nil, fmt.Errorf("%w: destination: %v", ErrInvalidQuery, err)
	}

	if len(q.Modes) == 0 {
		return domain.AllModes, nil
	}
	seen := make(map[domain.RouteMode]bool, len(q.Modes))
	modes := make([]domain.RouteMode, 0, len(q.Modes))
	for _, m := range q.Modes {
		if _, err := domain.ParseRouteMode(string(m)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		if !seen[m] {
			seen[m] = true
			modes = append(modes, m)
		}
	}
	return modes, nil
}

func (s *RouteService) resolveMode(ctx context.Context, q domain.RouteQuery, mode domain.RouteMode) (*domain.RouteResult, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanResolveMode)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrMode, string(mode)))

	cacheKey := routeCacheKey(q, mode)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var res domain.RouteResult
			decodeErr := json.Unmarshal(data, &res)
			if decodeErr == nil {
				metrics.CacheHits.WithLabelValues("route").Inc()
				span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
				return &res, nil
			}
			// Unreadable entry: drop it so it is not served again.
			slog.WarnContext(ctx, "evicting undecodable cached route", "key", cacheKey, "error", decodeErr)
			if err := s.cache.Delete(ctx, cacheKey); err != nil {
				slog.WarnContext(ctx, "route cache delete failed", "key", cacheKey, "error", err)
			}
		}
		metrics.CacheMisses.WithLabelValues("route").Inc()
	}

	raw, err := s.client.ComputeRoute(ctx, q.Origin, q.Destination, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("routing client returned no route for %s", mode)
	}

	res := normalizeRoute(ctx, q, mode, raw)

	// Approximate paths are not cached so a later call can pick up real geometry.
	if s.cache != nil && !res.PathApproximate {
		if data, err := json.Marshal(res); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.opts.CacheTTLSeconds); err != nil {
				slog.WarnContext(ctx, "route cache write failed", "key", cacheKey, "mode", mode, "error", err)
			}
		}
	}
	return &res, nil
}

func routeCacheKey(q domain.RouteQuery, mode domain.RouteMode) string {
	return fmt.Sprintf("routes:%s:%s:%s",
		geospatial.CellToken(q.Origin, geospatial.RouteCellLevel),
		geospatial.CellToken(q.Destination, geospatial.RouteCellLevel),
		mode,
	)
}

func normalizeRoute(ctx context.Context, q domain.RouteQuery, mode domain.RouteMode, raw *domain.RawRoute) domain.RouteResult {
	var seconds int
	if raw.DurationSeconds != nil {
		seconds = *raw.DurationSeconds
	} else {
		n, err := ParseDurationSeconds(raw.DurationString)
		if err != nil {
			slog.WarnContext(ctx, "unparseable route duration, using 0", "mode", mode, "duration", raw.DurationString, "error", err)
		}
		seconds = n
	}

	res := domain.RouteResult{
		Mode:            mode,
		DurationSeconds: seconds,
		Duration:        FormatDuration(seconds),
		DistanceMeters:  raw.DistanceMeters,
	}

	path, err := polyline.Decode(raw.EncodedPolyline)
	switch {
	case err != nil:
		slog.WarnContext(ctx, "polyline decode failed, using straight line", "mode", mode, "error", err)
		metrics.PolylineFallbacks.Inc()
		res.Path = []domain.GeoPoint{q.Origin, q.Destination}
		res.PathApproximate = true
	case len(path) == 0:
		res.Path = []domain.GeoPoint{q.Origin, q.Destination}
		res.PathApproximate = true
	default:
		res.Path = path
	}
	return res
}

// ParseDurationSeconds reads the leading integer of a provider duration such
// as "450s" or "450.7s". It returns 0 and an error when there is none.
func ParseDurationSeconds(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("duration %q has no leading integer", s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	return n, nil
}

// FormatDuration renders seconds as "H h M min" from one hour up, else "M min".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if seconds >= 3600 {
		return fmt.Sprintf("%d h %d min", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}
