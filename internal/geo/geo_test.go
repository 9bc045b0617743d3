package geo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/quakestat/internal/models"
)

func TestToCartesian_ReferencePoints(t *testing.T) {
	x, y, z, err := ToCartesian([]float64{0, 90}, []float64{0, 0}, []float64{0, 0})
	require.NoError(t, err)

	assert.InDelta(t, SemiMajorAxisKm, x[0], 1e-9)
	assert.InDelta(t, 0, y[0], 1e-9)
	assert.InDelta(t, 0, z[0], 1e-9)

	semiMinor := SemiMajorAxisKm * math.Sqrt(1-Eccentricity*Eccentricity)
	assert.InDelta(t, semiMinor, z[1], 1e-6)
	assert.InDelta(t, 0, math.Hypot(x[1], y[1]), 1e-9)
}

func TestToCartesian_DepthIsSubtracted(t *testing.T) {
	x, y, z, err := ToCartesian([]float64{0}, []float64{90}, []float64{10})
	require.NoError(t, err)
	assert.InDelta(t, 0, x[0], 1e-9)
	assert.InDelta(t, SemiMajorAxisKm-10, y[0], 1e-9)
	assert.InDelta(t, 0, z[0], 1e-9)
}

func TestToCartesian_LengthMismatch(t *testing.T) {
	_, _, _, err := ToCartesian([]float64{1, 2}, []float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, models.ErrInputValidation)
}

func TestToProjected_KnownPoint(t *testing.T) {
	x, y, z, zone, err := ToProjected([]float64{51.2}, []float64{7.5}, []float64{12}, 0)
	require.NoError(t, err)

	assert.Equal(t, Zone{Number: 32}, zone)
	assert.InDelta(t, 395.20131, x[0], 1e-4)
	assert.InDelta(t, 5673.13524, y[0], 1e-4)
	assert.Equal(t, -12.0, z[0])
}

func TestToProjected_SouthernHemisphere(t *testing.T) {
	x, y, _, zone, err := ToProjected([]float64{-33.9}, []float64{18.4}, []float64{0}, 0)
	require.NoError(t, err)

	assert.Equal(t, Zone{Number: 34, Southern: true}, zone)
	assert.Equal(t, "34S", zone.String())
	assert.InDelta(t, 259.58322, x[0], 1e-4)
	assert.InDelta(t, 6245.88805, y[0], 1e-4)
}

func TestToProjected_SingleZoneAcrossBoundary(t *testing.T) {
	// 5.9E is zone 31 and 6.1E is zone 32; both are projected into the mean zone
	// so eastings keep increasing instead of jumping back to the false easting.
	lat := []float64{45, 45}
	lon := []float64{5.9, 6.1}
	x, _, _, zone, err := ToProjected(lat, lon, []float64{0, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, 32, zone.Number)
	assert.Less(t, x[0], x[1])
	assert.InDelta(t, 15.7, x[1]-x[0], 0.2, "0.2 degrees of longitude at 45N is about 15.7 km")

	_, _, _, forced, err := ToProjected(lat, lon, []float64{0, 0}, 31)
	require.NoError(t, err)
	assert.Equal(t, 31, forced.Number)

	// Fiji straddles 180: the reference zone sits next to the antimeridian and
	// the two points stay one degree of longitude apart.
	x, _, _, zone, err = ToProjected([]float64{-17, -17}, []float64{179.5, -179.5}, []float64{0, 0}, 0)
	require.NoError(t, err)
	assert.Contains(t, []int{1, 60}, zone.Number)
	assert.True(t, zone.Southern)
	assert.Less(t, x[0], x[1])
	assert.InDelta(t, 106.5, x[1]-x[0], 2, "1 degree of longitude at 17S is about 106 km")
	for _, easting := range x {
		assert.InDelta(t, 500, easting, 400)
	}
}

func TestToProjected_Rejections(t *testing.T) {
	_, _, _, _, err := ToProjected([]float64{85}, []float64{0}, []float64{0}, 0)
	assert.ErrorIs(t, err, models.ErrInputValidation)

	_, _, _, _, err = ToProjected([]float64{10}, []float64{0}, []float64{0}, 61)
	assert.ErrorIs(t, err, models.ErrInputValidation)

	_, _, _, _, err = ToProjected([]float64{10}, []float64{0, 1}, []float64{0}, 0)
	assert.ErrorIs(t, err, models.ErrInputValidation)
}

func TestProjectionsAgreeOnOrdering(t *testing.T) {
	lat := []float64{35.0, 35.0, 35.0}
	lon := []float64{-117.6, -117.6, -117.5}
	depth := []float64{2, 15, 2}

	cx, cy, cz, err := ToCartesian(lat, lon, depth)
	require.NoError(t, err)
	ux, _, uz, _, err := ToProjected(lat, lon, depth, 0)
	require.NoError(t, err)

	radius := func(i int) float64 { return math.Sqrt(cx[i]*cx[i] + cy[i]*cy[i] + cz[i]*cz[i]) }

	// deeper event: lower in both frames
	assert.Greater(t, uz[0], uz[1])
	assert.Greater(t, radius(0), radius(1))

	// event further east: larger easting and larger geocentric azimuth
	assert.Less(t, ux[0], ux[2])
	assert.Less(t, math.Atan2(cy[0], cx[0]), math.Atan2(cy[2], cx[2]))
}

func TestZoneNumber(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     int
	}{
		{"central europe", 51.2, 7.5, 32},
		{"california", 35.7, -117.6, 11},
		{"south-west norway exception", 60, 5, 32},
		{"svalbard exception", 78, 10, 33},
		{"antimeridian wraps", 0, 180, 1},
		{"cape town", -33.9, 18.4, 34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ZoneNumber(tt.lat, tt.lon))
		})
	}
}

func TestProject(t *testing.T) {
	when := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	raw := []models.RawEvent{
		{Time: when, Latitude: 51.2, Longitude: 7.5, Depth: 12, Magnitude: 2.4},
	}

	events, zone, err := Project(raw, ProjectionUTM, 0)
	require.NoError(t, err)
	require.NotNil(t, zone)
	require.Len(t, events, 1)
	assert.Equal(t, when, events[0].Time)
	assert.Equal(t, 2.4, events[0].Magnitude)
	assert.InDelta(t, 395.20131, events[0].X, 1e-4)

	events, zone, err = Project(raw, ProjectionCartesian, 0)
	require.NoError(t, err)
	assert.Nil(t, zone)
	assert.InDelta(t, SemiMajorAxisKm, math.Hypot(math.Hypot(events[0].X, events[0].Y), events[0].Z), 30)

	_, _, err = Project(raw, Projection("mercator"), 0)
	assert.ErrorIs(t, err, models.ErrInputValidation)
}
