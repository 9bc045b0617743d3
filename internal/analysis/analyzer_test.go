package analysis

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/quakestat/internal/models"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// catalog returns n events with power-law magnitudes for the given b-value,
// one per minute, spread along the x axis.
func catalog(n int, b float64) []models.Event {
	events := make([]models.Event, n)
	for i := range events {
		u := (float64(i) + 0.5) / float64(n)
		events[i] = models.Event{
			Time:      epoch.Add(time.Duration(i) * time.Minute),
			X:         float64(i),
			Y:         1,
			Z:         -5,
			Magnitude: 1.0 - math.Log10(1-u)/b,
		}
	}
	return events
}

func window(index int, events []models.Event) models.Window {
	return models.Window{Index: index, Mode: models.ModeEven, Events: events, End: len(events)}
}

func newAnalyzer(t *testing.T, minEvents, workers int) *Analyzer {
	t.Helper()
	config := DefaultConfig()
	config.MinEvents = minEvents
	config.Workers = workers
	a, err := New(config)
	require.NoError(t, err)
	return a
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero bin size", func(c *Config) { c.BinSize = 0 }},
		{"NaN bin size", func(c *Config) { c.BinSize = math.NaN() }},
		{"negative precision", func(c *Config) { c.Precision = -1 }},
		{"precision too large", func(c *Config) { c.Precision = 10 }},
		{"negative minimum", func(c *Config) { c.MinEvents = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			_, err := New(config)
			assert.ErrorIs(t, err, models.ErrInputValidation)
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestAnalyze_EstimatesEveryQualifyingWindow(t *testing.T) {
	a := newAnalyzer(t, 100, 4)
	windows := []models.Window{
		window(0, catalog(1000, 1.0)),
		window(1, catalog(50, 1.0)),
		window(2, catalog(1000, 1.5)),
	}

	report, err := a.Analyze(context.Background(), windows)
	require.NoError(t, err)

	assert.Equal(t, models.ModeEven, report.Mode)
	assert.Equal(t, 3, report.Windows)
	assert.Equal(t, 2, report.Included)
	assert.Equal(t, 1, report.BelowMin)
	assert.Equal(t, 0, report.Degenerate)

	require.Len(t, report.Results, 3)
	for i, res := range report.Results {
		assert.Equal(t, i, res.Index)
	}

	below := report.Results[1]
	assert.False(t, below.Included)
	assert.Equal(t, 50, below.EventCount)
	assert.Nil(t, below.ML)
	assert.Nil(t, below.LSR)

	require.NotNil(t, report.Results[0].ML)
	require.NotNil(t, report.Results[2].ML)
	assert.InDelta(t, 1.0, report.Results[0].ML.B, 0.05)
	assert.InDelta(t, 1.5, report.Results[2].ML.B, 0.08)
	require.NotNil(t, report.Results[0].LSR)
	assert.InDelta(t, 1.0, report.Results[0].LSR.B, 0.1)

	included := report.IncludedResults()
	require.Len(t, included, 2)
	assert.Equal(t, 0, included[0].Index)
	assert.Equal(t, 2, included[1].Index)
}

func TestAnalyze_SummarizesWindow(t *testing.T) {
	a := newAnalyzer(t, 2, 1)
	events := catalog(11, 1.0)

	report, err := a.Analyze(context.Background(), []models.Window{window(0, events)})
	require.NoError(t, err)

	res := report.Results[0]
	assert.Equal(t, 11, res.EventCount)
	assert.Equal(t, events[0].Time, res.TimeMin)
	assert.Equal(t, events[10].Time, res.TimeMax)
	assert.Equal(t, events[5].Time, res.TimeMean)
	assert.Equal(t, 0.0, res.Extent.XMin)
	assert.Equal(t, 10.0, res.Extent.XMax)
}

func TestAnalyze_DegenerateWindowIsKept(t *testing.T) {
	a := newAnalyzer(t, 2, 2)
	flat := make([]models.Event, 5)
	for i := range flat {
		flat[i] = models.Event{Time: epoch.Add(time.Duration(i) * time.Second), Magnitude: 2.5}
	}

	report, err := a.Analyze(context.Background(), []models.Window{
		window(0, flat),
		window(1, catalog(200, 1.0)),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Included)
	assert.Equal(t, 1, report.Degenerate)

	res := report.Results[0]
	assert.True(t, res.Included)
	assert.True(t, res.Degenerate())
	assert.Nil(t, res.ML)
	assert.Nil(t, res.LSR)
	assert.Contains(t, res.MLFailure, models.ErrInsufficientVariance.Error())
	assert.Contains(t, res.LSRFailure, models.ErrDegenerateFit.Error())

	assert.False(t, report.Results[1].Degenerate())
}

func TestAnalyze_NoQualifyingWindow(t *testing.T) {
	a := newAnalyzer(t, 500, 2)

	report, err := a.Analyze(context.Background(), []models.Window{
		window(0, catalog(10, 1.0)),
		window(1, nil),
	})
	require.ErrorIs(t, err, models.ErrEmptyResult)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.BelowMin)
	assert.Empty(t, report.IncludedResults())
}

func TestAnalyze_EmptyWindowNeverIncluded(t *testing.T) {
	a := newAnalyzer(t, 0, 1)

	report, err := a.Analyze(context.Background(), []models.Window{
		window(0, nil),
		window(1, catalog(20, 1.0)),
	})
	require.NoError(t, err)
	assert.False(t, report.Results[0].Included)
	assert.True(t, report.Results[1].Included)
}

func TestAnalyze_Cancelled(t *testing.T) {
	a := newAnalyzer(t, 2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	windows := make([]models.Window, 8)
	for i := range windows {
		windows[i] = window(i, catalog(100, 1.0))
	}

	report, err := a.Analyze(ctx, windows)
	assert.ErrorIs(t, err, models.ErrCancelled)
	assert.Nil(t, report)
}

func TestCatalog(t *testing.T) {
	a := newAnalyzer(t, 1_000_000, 1)

	res, err := a.Catalog(catalog(2000, 1.0))
	require.NoError(t, err)
	assert.Equal(t, models.ModeCatalog, res.Mode)
	assert.True(t, res.Included, "the whole catalog ignores the window minimum")
	require.NotNil(t, res.ML)
	require.NotNil(t, res.LSR)
	assert.InDelta(t, 1.0, res.ML.B, 0.05)

	_, err = a.Catalog(nil)
	assert.ErrorIs(t, err, models.ErrInputValidation)
}

func TestReportBRange(t *testing.T) {
	report := NewReport(models.ModeSpatial, []models.WindowResult{
		{Index: 0, Included: true, ML: &models.Estimate{B: 0.9}, LSR: &models.Estimate{B: 1.1}},
		{Index: 1, Included: true, ML: &models.Estimate{B: 1.3}},
		{Index: 2, Included: false, ML: &models.Estimate{B: 9}},
	})

	lo, hi, ok := report.BRange(ML)
	require.True(t, ok)
	assert.Equal(t, 0.9, lo)
	assert.Equal(t, 1.3, hi)

	lo, hi, ok = report.BRange(LSR)
	require.True(t, ok)
	assert.Equal(t, 1.1, lo)
	assert.Equal(t, 1.1, hi)

	assert.Equal(t, 1, report.Degenerate)
	assert.Equal(t, 1, report.BelowMin)

	_, _, ok = NewReport(models.ModeSpatial, nil).BRange(ML)
	assert.False(t, ok)
}
