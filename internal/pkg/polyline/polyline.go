// Package polyline converts between coordinate paths and the Google encoded
// polyline format (five decimal places of precision).
package polyline

import (
	"fmt"

	gpolyline "github.com/twpayne/go-polyline"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// DecodeError reports an encoded string that is not a well-formed polyline.
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode polyline (%d bytes): %v", len(e.Input), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode returns the path encoded in s. An empty string is an empty path.
func Decode(s string) ([]domain.GeoPoint, error) {
	if s == "" {
		return []domain.GeoPoint{}, nil
	}

	coords, _, err := gpolyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, &DecodeError{Input: s, Err: err}
	}

	path := make([]domain.GeoPoint, 0, len(coords))
	for _, c := range coords {
		if len(c) != 2 {
			return nil, &DecodeError{Input: s, Err: fmt.Errorf("coordinate has %d values", len(c))}
		}
		path = append(path, domain.GeoPoint{Lat: c[0], Lng: c[1]})
	}
	return path, nil
}

// Encode returns the encoded form of path.
func Encode(path []domain.GeoPoint) string {
	if len(path) == 0 {
		return ""
	}
	coords := make([][]float64, len(path))
	for i, p := range path {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(gpolyline.EncodeCoords(coords))
}
