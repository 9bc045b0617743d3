// Package window partitions a catalog into spatial grid cells or temporal segments.
package window

import (
	"fmt"
	"math"

	"github.com/rewired-gh/quakestat/internal/models"
)

// MaxWindows caps how many windows a single partition may produce.
const MaxWindows = 1_000_000

// Anchors returns lo, lo+step, ... strictly below hi. A zero-width extent yields
// the single anchor lo so that a one-point catalog still gets a window. More
// than MaxWindows anchors is rejected.
func Anchors(lo, hi, step float64) ([]float64, error) {
	if hi <= lo {
		return []float64{lo}, nil
	}
	count := math.Ceil((hi - lo) / step)
	if math.IsNaN(count) || count > MaxWindows {
		return nil, fmt.Errorf("%w: step %g over an extent of %g gives more than %d anchors",
			models.ErrInputValidation, step, hi-lo, MaxWindows)
	}
	anchors := make([]float64, 0, int(count))
	for k := 0; k < int(count); k++ {
		a := lo + float64(k)*step
		if a >= hi {
			break
		}
		anchors = append(anchors, a)
	}
	return anchors, nil
}

// Spatial lays a grid of size x size squares over the XY extent of events, with
// anchors stepped by step in both directions (step < size overlaps windows).
// Windows are ordered x-major and every grid cell is returned, empty or not.
func Spatial(events []models.Event, size, step float64) ([]models.Window, error) {
	if !(size > 0) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("%w: window size %g must be positive", models.ErrInputValidation, size)
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: window step %g must be positive", models.ErrInputValidation, step)
	}
	ext, ok := models.ExtentOf(events)
	if !ok {
		return nil, fmt.Errorf("%w: empty catalog", models.ErrInputValidation)
	}

	xs, err := Anchors(ext.XMin, ext.XMax, step)
	if err != nil {
		return nil, err
	}
	ys, err := Anchors(ext.YMin, ext.YMax, step)
	if err != nil {
		return nil, err
	}
	if len(xs)*len(ys) > MaxWindows {
		return nil, fmt.Errorf("%w: %d x %d grid exceeds %d windows",
			models.ErrInputValidation, len(xs), len(ys), MaxWindows)
	}

	windows := make([]models.Window, 0, len(xs)*len(ys))
	for _, x0 := range xs {
		for _, y0 := range ys {
			bounds := models.Bounds{XMin: x0, XMax: x0 + size, YMin: y0, YMax: y0 + size}
			var selected []models.Event
			for _, e := range events {
				if bounds.Contains(e) {
					selected = append(selected, e)
				}
			}
			windows = append(windows, models.Window{
				Index:  len(windows),
				Mode:   models.ModeSpatial,
				Bounds: bounds,
				Events: selected,
			})
		}
	}
	return windows, nil
}
