// Package geo converts geographic coordinates into planar or geocentric kilometres.
package geo

import (
	"fmt"
	"math"

	"github.com/rewired-gh/quakestat/internal/models"
)

// WGS84 ellipsoid in kilometres.
const (
	SemiMajorAxisKm = 6378.137
	Eccentricity    = 8.1819190842622e-2
)

// ToCartesian maps latitude/longitude (degrees) and depth (km, positive down) to
// geocentric x, y, z in kilometres. Depth is subtracted from the ellipsoid radius.
func ToCartesian(lat, lon, depth []float64) (x, y, z []float64, err error) {
	if err := sameLength(lat, lon, depth); err != nil {
		return nil, nil, nil, err
	}
	x = make([]float64, len(lat))
	y = make([]float64, len(lat))
	z = make([]float64, len(lat))
	for i := range lat {
		x[i], y[i], z[i] = cartesian(lat[i], lon[i], depth[i])
	}
	return x, y, z, nil
}

func cartesian(lat, lon, depth float64) (x, y, z float64) {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	e2 := Eccentricity * Eccentricity
	sinPhi := math.Sin(phi)

	n := SemiMajorAxisKm / math.Sqrt(1-e2*sinPhi*sinPhi)
	k := (n - depth) * math.Cos(phi)
	return k * math.Cos(lambda), k * math.Sin(lambda), ((1-e2)*n - depth) * sinPhi
}

func sameLength(lat, lon, depth []float64) error {
	if len(lat) != len(lon) || len(lat) != len(depth) {
		return fmt.Errorf("%w: coordinate slices differ in length (%d, %d, %d)",
			models.ErrInputValidation, len(lat), len(lon), len(depth))
	}
	return nil
}
