package models

import "time"

// Estimate is a Gutenberg-Richter fit log10 N(>=m) = A - B*m.
// StdErr is only produced by the maximum likelihood estimator.
type Estimate struct {
	B      float64 `json:"b"`
	A      float64 `json:"a"`
	StdErr float64 `json:"std_err,omitempty"`
}

// WindowResult is the summary of one analysed window. A nil estimate means the
// estimator failed on this window; the reason is kept in LSRFailure or MLFailure.
type WindowResult struct {
	Index      int        `json:"index"`
	Mode       WindowMode `json:"mode"`
	Bounds     Bounds     `json:"bounds"`
	Extent     Extent     `json:"extent"`
	EventCount int        `json:"event_count"`
	TimeMin    time.Time  `json:"time_min"`
	TimeMax    time.Time  `json:"time_max"`
	TimeMean   time.Time  `json:"time_mean"`

	Included bool `json:"included"`

	LSR        *Estimate `json:"lsr,omitempty"`
	ML         *Estimate `json:"ml,omitempty"`
	LSRFailure string    `json:"lsr_failure,omitempty"`
	MLFailure  string    `json:"ml_failure,omitempty"`
}

// Degenerate reports whether an included window lost at least one estimate.
func (r *WindowResult) Degenerate() bool {
	return r.Included && (r.LSR == nil || r.ML == nil)
}

// Run is one persisted analysis invocation.
type Run struct {
	ID         string     `json:"id"`
	Mode       WindowMode `json:"mode"`
	Source     string     `json:"source"`
	EventCount int        `json:"event_count"`
	Windows    int        `json:"windows"`
	Included   int        `json:"included"`
	Degenerate int        `json:"degenerate"`
	Params     string     `json:"params"`
	CreatedAt  time.Time  `json:"created_at"`
}
