package polyline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geoengine/internal/core/domain"
)

// Reference vector from the published format description.
const googleExample = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

var googleExamplePath = []domain.GeoPoint{
	{Lat: 38.5, Lng: -120.2},
	{Lat: 40.7, Lng: -120.95},
	{Lat: 43.252, Lng: -126.453},
}

func TestDecode_ReferenceVector(t *testing.T) {
	path, err := Decode(googleExample)
	require.NoError(t, err)
	require.Len(t, path, 3)

	for i, want := range googleExamplePath {
		assert.InDelta(t, want.Lat, path[i].Lat, 1e-9)
		assert.InDelta(t, want.Lng, path[i].Lng, 1e-9)
	}
}

func TestEncode_ReferenceVector(t *testing.T) {
	assert.Equal(t, googleExample, Encode(googleExamplePath))
}

func TestDecode_EmptyIsNotAnError(t *testing.T) {
	path, err := Decode("")
	require.NoError(t, err)
	assert.NotNil(t, path)
	assert.Empty(t, path)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated continuation run", "_p~iF~ps|U_"},
		{"latitude without longitude", "_p~iF"},
		{"byte below alphabet", "_p~iF ps|U"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := Decode(tt.input)
			require.Error(t, err)
			assert.Nil(t, path)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.input, de.Input)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	paths := [][]domain.GeoPoint{
		{{Lat: 32.715, Lng: -117.161}},
		{{Lat: 32.7747, Lng: -117.0713}, {Lat: 32.7694, Lng: -117.0495}, {Lat: 32.76941, Lng: -117.04951}},
		{{Lat: -33.86785, Lng: 151.20732}, {Lat: 0, Lng: 0}, {Lat: 89.99999, Lng: -179.99999}},
	}
	for _, p := range paths {
		got, err := Decode(Encode(p))
		require.NoError(t, err)
		require.Len(t, got, len(p))
		for i := range p {
			assert.InDelta(t, p[i].Lat, got[i].Lat, 1e-5)
			assert.InDelta(t, p[i].Lng, got[i].Lng, 1e-5)
		}
	}
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
}
