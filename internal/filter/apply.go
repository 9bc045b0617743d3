package filter

import "github.com/rewired-gh/quakestat/internal/models"

// Options configures the filter chain run before windowing.
type Options struct {
	Completeness     *float64
	Bounds           Bounds
	Outliers         bool
	OutlierFraction  float64
	OutlierMaxEvents int
}

// Stats counts how many events each stage removed.
type Stats struct {
	Input        int
	Completeness int
	Cropped      int
	Outliers     int
	Output       int
}

// Apply runs completeness, crop and (when enabled) distance outlier removal in
// that order.
func Apply(events []models.Event, opts Options) ([]models.Event, Stats, error) {
	stats := Stats{Input: len(events)}

	out := Completeness(events, opts.Completeness)
	stats.Completeness = len(events) - len(out)

	before := len(out)
	out, err := Crop(out, opts.Bounds)
	if err != nil {
		return nil, stats, err
	}
	stats.Cropped = before - len(out)

	if opts.Outliers {
		fraction := opts.OutlierFraction
		if fraction == 0 {
			fraction = DefaultOutlierFraction
		}
		before = len(out)
		out, err = DistanceOutliers(out, fraction, opts.OutlierMaxEvents)
		if err != nil {
			return nil, stats, err
		}
		stats.Outliers = before - len(out)
	}

	stats.Output = len(out)
	return out, stats, nil
}
