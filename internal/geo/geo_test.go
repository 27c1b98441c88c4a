package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver.schoolfleet.org/internal/models"
)

var (
	tahrir     = models.Coordinate{Latitude: 30.0444, Longitude: 31.2357}
	nasrCity   = models.Coordinate{Latitude: 30.0626, Longitude: 31.3462}
	maadi      = models.Coordinate{Latitude: 29.9602, Longitude: 31.2569}
	equatorial = models.Coordinate{Latitude: 0, Longitude: 0}
)

func TestDistanceZeroForIdenticalPoints(t *testing.T) {
	for _, c := range []models.Coordinate{tahrir, maadi, equatorial, {Latitude: -89.9, Longitude: 179.9}} {
		assert.Zero(t, Distance(c, c))
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	pairs := [][2]models.Coordinate{
		{tahrir, nasrCity},
		{tahrir, maadi},
		{equatorial, maadi},
	}
	for _, p := range pairs {
		assert.InDelta(t, Distance(p[0], p[1]), Distance(p[1], p[0]), 1e-9)
	}
}

func TestDistanceKnownFixture(t *testing.T) {
	// Downtown Cairo to Nasr City, pinned haversine reference value.
	d := Distance(tahrir, nasrCity)
	assert.InDelta(t, 10826.0, d, 1.0)
}

func TestWithinRadiusMatchesDistance(t *testing.T) {
	d := Distance(tahrir, nasrCity)

	assert.True(t, WithinRadius(tahrir, nasrCity, d+1))
	assert.False(t, WithinRadius(tahrir, nasrCity, d-1))
	assert.True(t, WithinRadius(tahrir, tahrir, 0))
}

func TestBearingRangeAndConvention(t *testing.T) {
	b := Bearing(tahrir, nasrCity)
	assert.InDelta(t, 79.2, b, 0.1)

	for _, p := range [][2]models.Coordinate{{tahrir, maadi}, {maadi, tahrir}, {equatorial, nasrCity}} {
		b := Bearing(p[0], p[1])
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 360.0)
	}

	// Identical points: 0 by convention, never a panic.
	assert.Zero(t, Bearing(tahrir, tahrir))
}

func TestEstimatedMinutes(t *testing.T) {
	tests := []struct {
		name           string
		distanceMeters float64
		speedKmh       float64
		want           int
	}{
		{"15km at 30kmh is 30 minutes", 15000, 30, 30},
		{"zero distance", 0, 30, 0},
		{"rounds to nearest minute", 1000, 30, 2},
		{"short hop rounds down", 200, 30, 0},
		{"faster speed", 15000, 60, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimatedMinutes(tt.distanceMeters, tt.speedKmh)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimatedMinutesRejectsBadInput(t *testing.T) {
	_, err := EstimatedMinutes(1000, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = EstimatedMinutes(1000, -10)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = EstimatedMinutes(-1, DefaultAvgSpeedKmh)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBearingToCompass(t *testing.T) {
	tests := []struct {
		bearing float64
		want    string
	}{
		{0, "N"},
		{22, "N"},
		{23, "NE"},
		{45, "NE"},
		{90, "E"},
		{135, "SE"},
		{180, "S"},
		{225, "SW"},
		{270, "W"},
		{315, "NW"},
		{337, "NW"},
		{359, "N"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BearingToCompass(tt.bearing), "bearing %v", tt.bearing)
	}
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "824m", FormatDistance(824.3))
	assert.Equal(t, "999m", FormatDistance(999.4))
	assert.Equal(t, "1.2km", FormatDistance(1234))
	assert.Equal(t, "10.8km", FormatDistance(10826))
}
