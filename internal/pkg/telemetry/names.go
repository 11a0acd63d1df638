package telemetry

// Span names.
const (
	SpanResolveRoutes = "routes.resolve"
	SpanResolveMode   = "routes.resolve_mode"
	SpanComputeRoute  = "routing.compute_route"
)

// Span attribute keys.
const (
	AttrMode          = "route.mode"
	AttrModeCount     = "route.mode_count"
	AttrModesResolved = "route.modes_resolved"
	AttrCacheHit      = "cache.hit"
	AttrHTTPStatus    = "http.status_code"
)
