// Package metrics records analysis outcomes as Prometheus metrics and writes
// them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rewired-gh/quakestat/internal/analysis"
	"github.com/rewired-gh/quakestat/internal/models"
)

const namespace = "quakestat"

// Window status label values.
const (
	StatusIncluded   = "included"
	StatusBelowMin   = "below_min"
	StatusDegenerate = "degenerate"
)

// Recorder owns a private registry so repeated runs in one process do not
// collide with the default registry.
type Recorder struct {
	registry *prometheus.Registry

	windows       *prometheus.CounterVec
	bValues       *prometheus.HistogramVec
	catalogEvents prometheus.Gauge
	runDuration   prometheus.Gauge
	lastRun       prometheus.Gauge
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		windows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "windows_total",
				Help:      "Analysed windows by outcome",
			},
			[]string{"mode", "status"},
		),
		bValues: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "b_value",
				Help:      "Distribution of window b-value estimates",
				Buckets:   prometheus.LinearBuckets(0.4, 0.1, 16),
			},
			[]string{"mode", "estimator"},
		),
		catalogEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_events",
			Help:      "Events remaining after filtering in the last run",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveReport counts the windows of a report and records every estimate.
func (r *Recorder) ObserveReport(report *analysis.Report) {
	mode := string(report.Mode)
	r.windows.WithLabelValues(mode, StatusIncluded).Add(float64(report.Included - report.Degenerate))
	r.windows.WithLabelValues(mode, StatusDegenerate).Add(float64(report.Degenerate))
	r.windows.WithLabelValues(mode, StatusBelowMin).Add(float64(report.BelowMin))
	for i := range report.Results {
		r.ObserveResult(&report.Results[i])
	}
}

// ObserveResult records the estimates of a single included window.
func (r *Recorder) ObserveResult(result *models.WindowResult) {
	if !result.Included {
		return
	}
	mode := string(result.Mode)
	if result.LSR != nil {
		r.bValues.WithLabelValues(mode, string(analysis.LSR)).Observe(result.LSR.B)
	}
	if result.ML != nil {
		r.bValues.WithLabelValues(mode, string(analysis.ML)).Observe(result.ML.B)
	}
}

// ObserveRun sets the per-run gauges.
func (r *Recorder) ObserveRun(events int, duration time.Duration, finished time.Time) {
	r.catalogEvents.Set(float64(events))
	r.runDuration.Set(duration.Seconds())
	r.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
