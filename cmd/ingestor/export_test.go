package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

func TestDecodeExport(t *testing.T) {
	input := `[
		{"id":"a1","category":"Police","location":{"latitude":32.7157,"longitude":-117.1611},"timestamp":"2026-03-01T10:00:00Z"},
		{"id":"a2","category":"fire","location":{"latitude":32.72,"longitude":-117.16},"timestamp":1772359200000},
		{"id":"a3","category":"medical","location":{"latitude":32.73,"longitude":-117.15}}
	]`

	points, err := decodeExport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "police", points[0].Category)
	assert.Equal(t, 32.7157, points[0].Lat)
	require.NotNil(t, points[0].OccurredAt)
	assert.True(t, points[0].OccurredAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	require.NotNil(t, points[1].OccurredAt)
	assert.Equal(t, int64(1772359200000), points[1].OccurredAt.UnixMilli())

	assert.Nil(t, points[2].OccurredAt)
}

func TestDecodeExport_Errors(t *testing.T) {
	_, err := decodeExport(strings.NewReader(`{"id":"x"}`))
	assert.Error(t, err)

	_, err = decodeExport(strings.NewReader(`[{"id":"x","timestamp":"yesterday"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 0 (x)")
}

func TestBatches(t *testing.T) {
	points := make([]domain.Point, 7)

	got := batches(points, 3)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 3)
	assert.Len(t, got[2], 1)

	assert.Len(t, batches(points, 0), 1)
	assert.Empty(t, batches(nil, 3))
}
