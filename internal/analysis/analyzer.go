// Package analysis runs the b-value estimators over catalog windows.
package analysis

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/rewired-gh/quakestat/internal/bvalue"
	"github.com/rewired-gh/quakestat/internal/logger"
	"github.com/rewired-gh/quakestat/internal/models"
)

type Config struct {
	BinSize   float64
	Precision int
	MinEvents int
	Workers   int
}

func DefaultConfig() Config {
	return Config{
		BinSize:   bvalue.DefaultBinSize,
		Precision: bvalue.DefaultPrecision,
		MinEvents: 500,
		Workers:   runtime.NumCPU(),
	}
}

// Validate checks estimator and threshold parameters before any window is touched.
func (c Config) Validate() error {
	if !(c.BinSize > 0) {
		return fmt.Errorf("%w: bin size %g must be positive", models.ErrInputValidation, c.BinSize)
	}
	if c.Precision < 0 || c.Precision > 9 {
		return fmt.Errorf("%w: precision %d must be between 0 and 9", models.ErrInputValidation, c.Precision)
	}
	if c.MinEvents < 0 {
		return fmt.Errorf("%w: minimum event count %d must not be negative", models.ErrInputValidation, c.MinEvents)
	}
	return nil
}

type Analyzer struct {
	config Config
}

func New(config Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Workers < 1 {
		config.Workers = runtime.NumCPU()
	}
	return &Analyzer{config: config}, nil
}

// Catalog estimates the whole catalog as one window.
func (a *Analyzer) Catalog(events []models.Event) (models.WindowResult, error) {
	if len(events) == 0 {
		return models.WindowResult{}, fmt.Errorf("%w: empty catalog", models.ErrInputValidation)
	}
	w := models.Window{Mode: models.ModeCatalog, Start: 0, End: len(events), Events: events}
	result := summarize(&w)
	result.Included = true
	a.estimate(&w, &result)
	return result, nil
}

// Analyze estimates every window that meets the minimum event count. Windows
// are processed on a bounded pool and the context is checked before each one;
// a cancelled context yields models.ErrCancelled. When no window qualifies the
// report is still returned, together with models.ErrEmptyResult.
func (a *Analyzer) Analyze(ctx context.Context, windows []models.Window) (*Report, error) {
	startTime := time.Now()
	mode := models.ModeCatalog
	if len(windows) > 0 {
		mode = windows[0].Mode
	}

	p := pool.NewWithResults[models.WindowResult]().
		WithContext(ctx).
		WithMaxGoroutines(a.config.Workers)
	for i := range windows {
		w := &windows[i]
		p.Go(func(ctx context.Context) (models.WindowResult, error) {
			if err := ctx.Err(); err != nil {
				return models.WindowResult{}, err
			}
			return a.evaluate(w), nil
		})
	}
	results, err := p.Wait()
	if ctx.Err() != nil {
		logger.Info("Analysis cancelled after %v", time.Since(startTime))
		return nil, fmt.Errorf("%w: %v", models.ErrCancelled, ctx.Err())
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	report := NewReport(mode, results)
	report.Duration = time.Since(startTime)

	logger.Debug("Analyzed %d %s windows in %v: %d included, %d below %d events, %d degenerate",
		report.Windows, mode, report.Duration, report.Included, report.BelowMin, a.config.MinEvents, report.Degenerate)

	if report.Included == 0 {
		return report, fmt.Errorf("%w (minimum %d, %d windows)", models.ErrEmptyResult, a.config.MinEvents, report.Windows)
	}
	return report, nil
}

func (a *Analyzer) evaluate(w *models.Window) models.WindowResult {
	result := summarize(w)
	if result.EventCount < a.config.MinEvents || result.EventCount == 0 {
		return result
	}
	result.Included = true
	a.estimate(w, &result)
	return result
}

func (a *Analyzer) estimate(w *models.Window, result *models.WindowResult) {
	mags := models.Magnitudes(w.Events)

	if est, err := bvalue.LeastSquares(mags, a.config.BinSize, a.config.Precision); err != nil {
		result.LSRFailure = err.Error()
		logger.Warn("Window %d (%d events): least squares unavailable: %v", w.Index, len(mags), err)
	} else {
		result.LSR = &est
	}

	if est, err := bvalue.MaxLikelihood(mags); err != nil {
		result.MLFailure = err.Error()
		logger.Warn("Window %d (%d events): maximum likelihood unavailable: %v", w.Index, len(mags), err)
	} else {
		result.ML = &est
	}
}

func summarize(w *models.Window) models.WindowResult {
	result := models.WindowResult{
		Index:      w.Index,
		Mode:       w.Mode,
		Bounds:     w.Bounds,
		EventCount: w.Count(),
	}
	if ext, ok := models.ExtentOf(w.Events); ok {
		result.Extent = ext
		result.TimeMin, result.TimeMax = w.TimeRange()
		result.TimeMean = w.MeanTime()
	}
	return result
}
