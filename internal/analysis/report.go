package analysis

import (
	"math"
	"time"

	"github.com/rewired-gh/quakestat/internal/models"
)

// Estimator names one of the two b-value estimators.
type Estimator string

const (
	LSR Estimator = "lsr"
	ML  Estimator = "ml"
)

// Report is the outcome of one windowed analysis. Results holds every window in
// index order, including those below the minimum count.
type Report struct {
	Mode       models.WindowMode
	Results    []models.WindowResult
	Windows    int
	Included   int
	BelowMin   int
	Degenerate int
	Duration   time.Duration
}

// NewReport tallies results into a report.
func NewReport(mode models.WindowMode, results []models.WindowResult) *Report {
	r := &Report{Mode: mode, Results: results, Windows: len(results)}
	for i := range results {
		switch {
		case !results[i].Included:
			r.BelowMin++
		case results[i].Degenerate():
			r.Included++
			r.Degenerate++
		default:
			r.Included++
		}
	}
	return r
}

// IncludedResults returns the windows that met the minimum count.
func (r *Report) IncludedResults() []models.WindowResult {
	var out []models.WindowResult
	for _, res := range r.Results {
		if res.Included {
			out = append(out, res)
		}
	}
	return out
}

// BRange returns the smallest and largest b-value of an estimator across
// included windows. ok is false when no window produced that estimate.
func (r *Report) BRange(estimator Estimator) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range r.Results {
		est := r.Results[i].ML
		if estimator == LSR {
			est = r.Results[i].LSR
		}
		if est == nil || !r.Results[i].Included {
			continue
		}
		lo = math.Min(lo, est.B)
		hi = math.Max(hi, est.B)
		ok = true
	}
	return lo, hi, ok
}
