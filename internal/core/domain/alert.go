package domain

import (
	"errors"
	"time"
)

// ErrInvalidCoordinate is returned when a latitude or longitude is out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Alert categories reported by the field app.
const (
	CategoryPolice   = "police"
	CategoryFire     = "fire"
	CategoryMedical  = "medical"
	CategoryAccident = "accident"
)

// Point is a single categorised incident report.
type Point struct {
	ID         string     `json:"id"`
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	Category   string     `json:"category"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// Location returns the point's coordinate.
func (p Point) Location() GeoPoint {
	return GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

// Validate checks the point at the ingestion boundary.
func (p Point) Validate() error {
	return p.Location().Validate()
}

// Cluster is a group of points collapsed into one display marker.
type Cluster struct {
	ID               string   `json:"id"`
	Center           GeoPoint `json:"center"`
	Members          []Point  `json:"members"`
	DominantCategory string   `json:"dominant_category"`
	Size             int      `json:"size"`
	DistanceMeters   float64  `json:"distance_meters"`
	MarkerScale      int      `json:"marker_scale"`
	Style            Style    `json:"style"`
}

// Style is the presentation config attached to a category.
type Style struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var categoryStyles = map[string]Style{
	CategoryPolice:   {Label: "Police", Color: "#135DD8", Icon: "🚔"},
	CategoryFire:     {Label: "Fire", Color: "#e74c3c", Icon: "🔥"},
	CategoryMedical:  {Label: "Medical", Color: "#f39c12", Icon: "🚑"},
	CategoryAccident: {Label: "Accident", Color: "#8e44ad", Icon: "🚗"},
}

// StyleFor returns the presentation style of a category. Unknown categories
// get a neutral grey marker labelled with the raw category.
func StyleFor(category string) Style {
	if s, ok := categoryStyles[category]; ok {
		return s
	}
	return Style{Label: category, Color: "#7f8c8d", Icon: "⚠️"}
}

// Categories lists the known categories in display order.
func Categories() []string {
	return []string{CategoryPolice, CategoryFire, CategoryMedical, CategoryAccident}
}

// MarkerScale grows a cluster marker with its size, capped at 20.
func MarkerScale(size int) int {
	extra := size - 1
	if extra > 8 {
		extra = 8
	}
	if extra < 0 {
		extra = 0
	}
	return 12 + extra
}

// ClusterSnapshot is the event published after an aggregation run.
type ClusterSnapshot struct {
	Region       string    `json:"region"`
	Origin       GeoPoint  `json:"origin"`
	RadiusMeters float64   `json:"radius_meters"`
	Since        time.Time `json:"since"`
	Clusters     []Cluster `json:"clusters"`
	GeneratedAt  time.Time `json:"generated_at"`
}
