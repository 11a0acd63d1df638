package domain

import "fmt"

// RouteMode is a travel mode understood by the routing provider.
type RouteMode string

const (
	ModeWalk    RouteMode = "WALK"
	ModeDrive   RouteMode = "DRIVE"
	ModeTransit RouteMode = "TRANSIT"
)

// AllModes is the default mode set, in the order the app displays them.
var AllModes = []RouteMode{ModeWalk, ModeDrive, ModeTransit}

// ParseRouteMode validates a mode string.
func ParseRouteMode(s string) (RouteMode, error) {
	switch m := RouteMode(s); m {
	case ModeWalk, ModeDrive, ModeTransit:
		return m, nil
	default:
		return "", fmt.Errorf("unknown route mode %q", s)
	}
}

// RouteQuery asks for routes between two points in one or more modes.
type RouteQuery struct {
	Origin      GeoPoint    `json:"origin"`
	Destination GeoPoint    `json:"destination"`
	Modes       []RouteMode `json:"modes"`
}

// RawRoute is what a routing provider returns for one mode. Providers report
// duration either as integer seconds or as a "450s" style string.
type RawRoute struct {
	DurationSeconds *int
	DurationString  string
	DistanceMeters  *float64
	EncodedPolyline string
}

// RouteResult is the normalised route for a single mode.
type RouteResult struct {
	Mode            RouteMode  `json:"mode"`
	DurationSeconds int        `json:"duration_seconds"`
	Duration        string     `json:"duration"`
	DistanceMeters  *float64   `json:"distance_meters"`
	Path            []GeoPoint `json:"path"`
	PathApproximate bool       `json:"path_approximate,omitempty"`
}
