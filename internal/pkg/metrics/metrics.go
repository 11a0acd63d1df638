package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoengine",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geoengine",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geoengine",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Routing metrics
	routingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoengine",
		Subsystem: "routing",
		Name:      "requests_total",
		Help:      "Per-mode route resolutions by outcome",
	}, []string{"mode", "outcome"})

	routingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geoengine",
		Subsystem: "routing",
		Name:      "duration_seconds",
		Help:      "Per-mode route resolution latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"mode"})

	PolylineFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geoengine",
		Subsystem: "routing",
		Name:      "polyline_fallbacks_total",
		Help:      "Routes whose polyline could not be decoded and were drawn as a straight line",
	})

	// Clustering metrics
	clusterInputPoints = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geoengine",
		Subsystem: "cluster",
		Name:      "input_points",
		Help:      "Points fed into one aggregation",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
	})

	clusterOutputClusters = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geoengine",
		Subsystem: "cluster",
		Name:      "output_clusters",
		Help:      "Clusters produced by one aggregation",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
	})

	clusterDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geoengine",
		Subsystem: "cluster",
		Name:      "duration_seconds",
		Help:      "Time spent clustering one point set",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// Alert feed metrics
	AlertsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoengine",
		Subsystem: "alerts",
		Name:      "ingested_total",
		Help:      "Alerts stored from the live feed or batch imports",
	}, []string{"source"})

	AlertsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoengine",
		Subsystem: "alerts",
		Name:      "rejected_total",
		Help:      "Alerts rejected at ingestion",
	}, []string{"source"})

	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geoengine",
		Subsystem: "alerts",
		Name:      "snapshots_published_total",
		Help:      "Cluster snapshots published to the broker",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoengine",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoengine",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoengine",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoengine",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoengine",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoengine",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// ObserveRoute records the outcome and latency of one per-mode resolution.
func ObserveRoute(mode, outcome string, d time.Duration) {
	routingRequestsTotal.WithLabelValues(mode, outcome).Inc()
	routingDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveClustering records the size and cost of one aggregation.
func ObserveClustering(points, clusters int, d time.Duration) {
	clusterInputPoints.Observe(float64(points))
	clusterOutputClusters.Observe(float64(clusters))
	clusterDuration.Observe(d.Seconds())
}

// UpdateDBPoolMetrics copies pgx pool stats into the pool gauges.
// It takes an interface so this package does not depend on pgx.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
