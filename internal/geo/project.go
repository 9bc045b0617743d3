package geo

import (
	"fmt"

	"github.com/rewired-gh/quakestat/internal/models"
)

// Projection selects the planar frame events are analysed in.
type Projection string

const (
	ProjectionUTM       Projection = "utm"
	ProjectionCartesian Projection = "cartesian"
)

// ParseProjection validates a projection name.
func ParseProjection(s string) (Projection, error) {
	switch Projection(s) {
	case ProjectionUTM, ProjectionCartesian:
		return Projection(s), nil
	}
	return "", fmt.Errorf("%w: unknown projection %q (want utm or cartesian)", models.ErrInputValidation, s)
}

// Project converts raw catalog rows into events in the requested frame. zone is
// only used by the UTM projection; 0 picks the dataset's reference zone.
func Project(raw []models.RawEvent, projection Projection, zone int) ([]models.Event, *Zone, error) {
	lat := make([]float64, len(raw))
	lon := make([]float64, len(raw))
	depth := make([]float64, len(raw))
	for i, r := range raw {
		lat[i], lon[i], depth[i] = r.Latitude, r.Longitude, r.Depth
	}

	var (
		x, y, z []float64
		ref     *Zone
		err     error
	)
	switch projection {
	case ProjectionUTM:
		var zn Zone
		x, y, z, zn, err = ToProjected(lat, lon, depth, zone)
		ref = &zn
	case ProjectionCartesian:
		x, y, z, err = ToCartesian(lat, lon, depth)
	default:
		_, err = ParseProjection(string(projection))
	}
	if err != nil {
		return nil, nil, err
	}

	events := make([]models.Event, len(raw))
	for i, r := range raw {
		events[i] = models.Event{Time: r.Time, X: x[i], Y: y[i], Z: z[i], Magnitude: r.Magnitude}
	}
	return events, ref, nil
}
