// Package filter trims a catalog by magnitude of completeness, bounding box, or
// spatial isolation. Every filter returns a new slice and leaves its input alone.
package filter

import (
	"fmt"
	"math"
	"sort"

	"github.com/rewired-gh/quakestat/internal/models"
)

const (
	DefaultOutlierFraction  = 0.01
	DefaultOutlierMaxEvents = 20000
)

// Completeness drops events below the magnitude of completeness. A nil
// threshold returns an unfiltered copy.
func Completeness(events []models.Event, threshold *float64) []models.Event {
	return keep(events, func(e models.Event) bool {
		return threshold == nil || e.Magnitude >= *threshold
	})
}

// Bounds crops a catalog per axis. Nil bounds are open.
type Bounds struct {
	XMin, XMax *float64
	YMin, YMax *float64
	ZMin, ZMax *float64
}

// IsZero reports whether no bound is set.
func (b Bounds) IsZero() bool {
	return b.XMin == nil && b.XMax == nil && b.YMin == nil && b.YMax == nil && b.ZMin == nil && b.ZMax == nil
}

// Validate rejects a min bound greater than its max bound.
func (b Bounds) Validate() error {
	pairs := []struct {
		axis   string
		lo, hi *float64
	}{
		{"x", b.XMin, b.XMax},
		{"y", b.YMin, b.YMax},
		{"z", b.ZMin, b.ZMax},
	}
	for _, p := range pairs {
		if p.lo != nil && p.hi != nil && *p.lo > *p.hi {
			return fmt.Errorf("%w: %s min %g is greater than %s max %g", models.ErrInputValidation, p.axis, *p.lo, p.axis, *p.hi)
		}
	}
	return nil
}

func (b Bounds) contains(e models.Event) bool {
	return above(e.X, b.XMin) && below(e.X, b.XMax) &&
		above(e.Y, b.YMin) && below(e.Y, b.YMax) &&
		above(e.Z, b.ZMin) && below(e.Z, b.ZMax)
}

func above(v float64, lo *float64) bool { return lo == nil || v >= *lo }
func below(v float64, hi *float64) bool { return hi == nil || v <= *hi }

// Crop drops events outside b.
func Crop(events []models.Event, b Bounds) ([]models.Event, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return keep(events, b.contains), nil
}

// DistanceOutliers removes the most isolated events: for each event the sum of
// Euclidean distances to every other event is computed, and events whose sum
// reaches the (1 - fraction) quantile are dropped. The pairwise pass is O(N^2),
// so catalogs above maxEvents are refused.
func DistanceOutliers(events []models.Event, fraction float64, maxEvents int) ([]models.Event, error) {
	if !(fraction > 0 && fraction < 1) {
		return nil, fmt.Errorf("%w: outlier fraction %g must be in (0, 1)", models.ErrInputValidation, fraction)
	}
	if maxEvents > 0 && len(events) > maxEvents {
		return nil, fmt.Errorf("%w: %d events exceed the distance-matrix limit of %d",
			models.ErrInputValidation, len(events), maxEvents)
	}
	if len(events) == 0 {
		return nil, nil
	}

	totals := TotalDistances(events)
	threshold := Quantile(totals, 1-fraction)

	out := make([]models.Event, 0, len(events))
	for i, e := range events {
		if totals[i] < threshold {
			out = append(out, e)
		}
	}
	return out, nil
}

// TotalDistances returns, per event, the sum of its distances to all events.
func TotalDistances(events []models.Event) []float64 {
	totals := make([]float64, len(events))
	for i := range events {
		for j := i + 1; j < len(events); j++ {
			dx := events[i].X - events[j].X
			dy := events[i].Y - events[j].Y
			dz := events[i].Z - events[j].Z
			d := math.Sqrt(dx*dx + dy*dy + dz*dz)
			totals[i] += d
			totals[j] += d
		}
	}
	return totals
}

// Quantile returns the q-quantile of values with linear interpolation between
// closest ranks.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*(pos-float64(lo))
}

func keep(events []models.Event, pred func(models.Event) bool) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}
