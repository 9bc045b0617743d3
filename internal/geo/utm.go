package geo

import (
	"fmt"
	"math"

	"github.com/rewired-gh/quakestat/internal/models"
)

// Transverse Mercator series for the WGS84 ellipsoid, in metres.
const (
	utmScale         = 0.9996
	utmRadius        = 6378137.0
	utmE             = 0.00669438
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0

	utmMinLatitude = -80.0
	utmMaxLatitude = 84.0
)

var (
	utmE2  = utmE * utmE
	utmE3  = utmE2 * utmE
	utmEP2 = utmE / (1 - utmE)

	utmM1 = 1 - utmE/4 - 3*utmE2/64 - 5*utmE3/256
	utmM2 = 3*utmE/8 + 3*utmE2/32 + 45*utmE3/1024
	utmM3 = 15*utmE2/256 + 45*utmE3/1024
	utmM4 = 35 * utmE3 / 3072
)

// Zone is the UTM reference frame shared by every point of one projection.
type Zone struct {
	Number   int
	Southern bool
}

func (z Zone) String() string {
	hemisphere := "N"
	if z.Southern {
		hemisphere = "S"
	}
	return fmt.Sprintf("%d%s", z.Number, hemisphere)
}

// CentralMeridian returns the zone's central longitude in degrees.
func (z Zone) CentralMeridian() float64 {
	return float64((z.Number-1)*6-180) + 3
}

// ZoneNumber returns the standard UTM zone of a position, including the
// south-west Norway and Svalbard exceptions.
func ZoneNumber(lat, lon float64) int {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	lon -= 180

	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		return 32
	}
	if lat >= 72 && lat <= 84 && lon >= 0 {
		switch {
		case lon < 9:
			return 31
		case lon < 21:
			return 33
		case lon < 33:
			return 35
		case lon < 42:
			return 37
		}
	}
	return int((lon+180)/6) + 1
}

// ReferenceZone picks one zone for a whole dataset: forced when zone > 0,
// otherwise the zone of the mean position, with longitudes averaged on the
// circle. The hemisphere follows the mean latitude so northings stay
// continuous across the equator.
func ReferenceZone(lat, lon []float64, zone int) (Zone, error) {
	if zone < 0 || zone > 60 {
		return Zone{}, fmt.Errorf("%w: UTM zone %d must be between 1 and 60", models.ErrInputValidation, zone)
	}
	if len(lat) == 0 {
		if zone == 0 {
			return Zone{}, fmt.Errorf("%w: no coordinates to choose a UTM zone from", models.ErrInputValidation)
		}
		return Zone{Number: zone}, nil
	}

	var latSum, sinSum, cosSum float64
	for i := range lat {
		latSum += lat[i]
		lonRad := lon[i] * math.Pi / 180
		sinSum += math.Sin(lonRad)
		cosSum += math.Cos(lonRad)
	}
	meanLat := latSum / float64(len(lat))
	// Circular mean, so a catalog straddling the antimeridian centres near 180.
	meanLon := math.Atan2(sinSum, cosSum) * 180 / math.Pi

	if zone == 0 {
		zone = ZoneNumber(meanLat, meanLon)
	}
	return Zone{Number: zone, Southern: meanLat < 0}, nil
}

// ToProjected converts latitude/longitude (degrees) to UTM easting/northing in
// kilometres within a single reference zone (see ReferenceZone), and depth
// (positive down) to z = -depth (positive up).
func ToProjected(lat, lon, depth []float64, zone int) (x, y, z []float64, ref Zone, err error) {
	if err := sameLength(lat, lon, depth); err != nil {
		return nil, nil, nil, Zone{}, err
	}
	for i, phi := range lat {
		if phi < utmMinLatitude || phi > utmMaxLatitude {
			return nil, nil, nil, Zone{}, fmt.Errorf("%w: latitude %.4f at row %d is outside the UTM range [%g, %g]",
				models.ErrInputValidation, phi, i, utmMinLatitude, utmMaxLatitude)
		}
	}
	ref, err = ReferenceZone(lat, lon, zone)
	if err != nil {
		return nil, nil, nil, Zone{}, err
	}

	x = make([]float64, len(lat))
	y = make([]float64, len(lat))
	z = make([]float64, len(lat))
	for i := range lat {
		easting, northing := projectTM(lat[i], lon[i], ref)
		x[i] = easting / 1000
		y[i] = northing / 1000
		z[i] = -depth[i]
	}
	return x, y, z, ref, nil
}

func projectTM(lat, lon float64, ref Zone) (easting, northing float64) {
	latRad := lat * math.Pi / 180
	latSin := math.Sin(latRad)
	latCos := math.Cos(latRad)
	latTan := latSin / latCos
	latTan2 := latTan * latTan
	latTan4 := latTan2 * latTan2

	lonRad := lon * math.Pi / 180
	centralRad := ref.CentralMeridian() * math.Pi / 180

	n := utmRadius / math.Sqrt(1-utmE*latSin*latSin)
	c := utmEP2 * latCos * latCos

	a := latCos * modAngle(lonRad-centralRad)
	m := utmRadius * (utmM1*latRad -
		utmM2*math.Sin(2*latRad) +
		utmM3*math.Sin(4*latRad) -
		utmM4*math.Sin(6*latRad))

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	easting = utmScale*n*(a+
		a3/6*(1-latTan2+c)+
		a5/120*(5-18*latTan2+latTan4+72*c-58*utmEP2)) + utmFalseEasting

	northing = utmScale * (m + n*latTan*(a2/2+
		a4/24*(5-latTan2+9*c+4*c*c)+
		a6/720*(61-58*latTan2+latTan4+600*c-330*utmEP2)))

	if ref.Southern {
		northing += utmFalseNorthing
	}
	return easting, northing
}

// modAngle wraps an angle in radians to [-pi, pi).
func modAngle(v float64) float64 {
	r := math.Mod(v+math.Pi, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	return r - math.Pi
}
