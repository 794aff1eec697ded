package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/familycare/visit-service/internal/core/domain"
)

func TestDistance_ZeroPoint(t *testing.T) {
	points := []domain.Coordinates{
		{Lat: 36.8065, Lng: 10.1815},
		{Lat: 0, Lng: 0},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 89.9999, Lng: -179.9999},
	}
	for _, p := range points {
		assert.Zero(t, Distance(p, p))
		assert.Zero(t, RoundedDistance(p, p))
	}
}

func TestDistance_Symmetry(t *testing.T) {
	pairs := [][2]domain.Coordinates{
		{{Lat: 36.8065, Lng: 10.1815}, {Lat: 36.8070, Lng: 10.1820}},
		{{Lat: 48.8566, Lng: 2.3522}, {Lat: 51.5074, Lng: -0.1278}},
		{{Lat: -33.8688, Lng: 151.2093}, {Lat: 40.7128, Lng: -74.0060}},
		{{Lat: 0, Lng: 179.9}, {Lat: 0, Lng: -179.9}},
	}
	for _, p := range pairs {
		assert.InDelta(t, Distance(p[0], p[1]), Distance(p[1], p[0]), 1e-6)
	}
}

func TestDistance_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.Coordinates
		want float64
		tol  float64
	}{
		{
			name: "nearby_tunis_points",
			a:    domain.Coordinates{Lat: 36.8065, Lng: 10.1815},
			b:    domain.Coordinates{Lat: 36.8070, Lng: 10.1820},
			want: 71,
			tol:  2,
		},
		{
			name: "paris_to_london",
			a:    domain.Coordinates{Lat: 48.8566, Lng: 2.3522},
			b:    domain.Coordinates{Lat: 51.5074, Lng: -0.1278},
			want: 343_500,
			tol:  1_000,
		},
		{
			name: "one_degree_of_latitude",
			a:    domain.Coordinates{Lat: 0, Lng: 0},
			b:    domain.Coordinates{Lat: 1, Lng: 0},
			want: EarthRadiusMeters * math.Pi / 180,
			tol:  1e-6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.a, tt.b), tt.tol)
		})
	}
}

func TestRoundedDistance_RoundsToNearestMeter(t *testing.T) {
	origin := domain.Coordinates{Lat: 36.8065, Lng: 10.1815}
	north := domain.Coordinates{Lat: origin.Lat + 800/EarthRadiusMeters*180/math.Pi, Lng: origin.Lng}

	assert.Equal(t, 800, RoundedDistance(origin, north))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(domain.Coordinates{Lat: 36.8, Lng: 10.1}))
	assert.True(t, ValidCoordinates(domain.Coordinates{Lat: -90, Lng: 180}))
	assert.False(t, ValidCoordinates(domain.Coordinates{Lat: 91, Lng: 0}))
	assert.False(t, ValidCoordinates(domain.Coordinates{Lat: 0, Lng: -181}))
	assert.False(t, ValidCoordinates(domain.Coordinates{Lat: math.NaN(), Lng: 0}))
}
