package models

import "time"

// WindowMode identifies how a window was partitioned.
type WindowMode string

const (
	ModeCatalog WindowMode = "catalog"
	ModeSpatial WindowMode = "spatial"
	ModeEven    WindowMode = "temporal_even"
	ModeSliding WindowMode = "temporal_sliding"
)

// IsTemporal reports whether m partitions by time.
func (m WindowMode) IsTemporal() bool {
	return m == ModeEven || m == ModeSliding
}

// Bounds is the closed square selected by a spatial window.
type Bounds struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Contains reports whether e lies inside b, edges included.
func (b Bounds) Contains(e Event) bool {
	return e.X >= b.XMin && e.X <= b.XMax && e.Y >= b.YMin && e.Y <= b.YMax
}

// Center returns the midpoint of b.
func (b Bounds) Center() (x, y float64) {
	return (b.XMin + b.XMax) / 2, (b.YMin + b.YMax) / 2
}

// Window is a view over a catalog. Spatial windows carry their Bounds; temporal
// windows carry the [Start, End) index range into the time-sorted catalog.
type Window struct {
	Index  int
	Mode   WindowMode
	Bounds Bounds
	Start  int
	End    int
	Events []Event
}

// Count returns the number of events selected by the window.
func (w *Window) Count() int {
	return len(w.Events)
}

// TimeRange returns the earliest and latest event times. Temporal windows are
// already sorted, but spatial windows are not, so every event is inspected.
func (w *Window) TimeRange() (first, last time.Time) {
	for i, e := range w.Events {
		if i == 0 || e.Time.Before(first) {
			first = e.Time
		}
		if i == 0 || e.Time.After(last) {
			last = e.Time
		}
	}
	return first, last
}

// MeanTime returns the average event time, or the zero time for an empty window.
func (w *Window) MeanTime() time.Time {
	if len(w.Events) == 0 {
		return time.Time{}
	}
	base := w.Events[0].Time
	var offset float64
	for _, e := range w.Events {
		offset += float64(e.Time.Sub(base))
	}
	return base.Add(time.Duration(offset / float64(len(w.Events))))
}
