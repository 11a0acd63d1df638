package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// exportRecord is one alert as written by the field app's export.
type exportRecord struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// decodeExport reads a JSON array of export records.
func decodeExport(r io.Reader) ([]domain.Point, error) {
	var records []exportRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}

	points := make([]domain.Point, 0, len(records))
	for i, rec := range records {
		ts, err := parseTimestamp(rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, rec.ID, err)
		}
		points = append(points, domain.Point{
			ID:         rec.ID,
			Lat:        rec.Location.Latitude,
			Lng:        rec.Location.Longitude,
			Category:   strings.ToLower(strings.TrimSpace(rec.Category)),
			OccurredAt: ts,
		})
	}
	return points, nil
}

// parseTimestamp accepts an RFC 3339 string or epoch milliseconds. A missing
// or null timestamp yields nil.
func parseTimestamp(raw json.RawMessage) (*time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
		t = t.UTC()
		return &t, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

// batches splits points into chunks of at most size.
func batches(points []domain.Point, size int) [][]domain.Point {
	if size <= 0 {
		size = len(points)
	}
	var out [][]domain.Point
	for start := 0; start < len(points); start += size {
		end := start + size
		if end > len(points) {
			end = len(points)
		}
		out = append(out, points[start:end])
	}
	return out
}
