package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rewired-gh/quakestat/internal/analysis"
	"github.com/rewired-gh/quakestat/internal/catalog"
	"github.com/rewired-gh/quakestat/internal/config"
	"github.com/rewired-gh/quakestat/internal/fetch"
	"github.com/rewired-gh/quakestat/internal/filter"
	"github.com/rewired-gh/quakestat/internal/geo"
	"github.com/rewired-gh/quakestat/internal/logger"
	"github.com/rewired-gh/quakestat/internal/metrics"
	"github.com/rewired-gh/quakestat/internal/models"
	"github.com/rewired-gh/quakestat/internal/storage"
	"github.com/rewired-gh/quakestat/internal/telegram"
)

// pipeline wires one analysis run: load, project, filter, window, estimate,
// export, then record the run.
type pipeline struct {
	cfg      *config.Config
	store    *storage.Storage
	recorder *metrics.Recorder
	notifier *telegram.Client
	out      io.Writer
	started  time.Time
}

func newPipeline(cfg *config.Config, out io.Writer) (*pipeline, error) {
	p := &pipeline{
		cfg:      cfg,
		recorder: metrics.NewRecorder(),
		out:      out,
		started:  time.Now(),
	}

	if cfg.Storage.Enabled {
		store, err := storage.New(cfg.Storage.MaxRuns, cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		p.store = store
	}

	if cfg.Telegram.Enabled {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		p.notifier = client
		logger.Debug("Telegram client initialized")
	}
	return p, nil
}

func (p *pipeline) Close() {
	if p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}

// loadEvents reads, projects and filters the configured catalog.
func (p *pipeline) loadEvents(ctx context.Context) ([]models.Event, error) {
	client := fetch.NewClient(p.cfg.FetchConfig())
	raw, readStats, err := catalog.Load(ctx, p.cfg.Catalog.Source, client)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded %d events from %s (%d incomplete rows dropped)",
		len(raw), p.cfg.Catalog.Source, readStats.Dropped)

	projection, err := geo.ParseProjection(p.cfg.Catalog.Projection)
	if err != nil {
		return nil, err
	}
	events, zone, err := geo.Project(raw, projection, p.cfg.Catalog.UTMZone)
	if err != nil {
		return nil, err
	}
	if zone != nil {
		logger.Info("Projected onto UTM zone %s", zone)
	}

	opts, err := p.cfg.FilterOptions()
	if err != nil {
		return nil, err
	}
	filtered, stats, err := filter.Apply(events, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Filtered catalog: %d of %d events kept (completeness -%d, crop -%d, outliers -%d)",
		stats.Output, stats.Input, stats.Completeness, stats.Cropped, stats.Outliers)

	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no events left after filtering", models.ErrEmptyResult)
	}
	return filtered, nil
}

func (p *pipeline) outputPath(name string) string {
	return filepath.Join(p.cfg.Output.Dir, p.cfg.Output.Prefix+"_"+name+".csv")
}

func (p *pipeline) export(name string, write func(io.Writer) error) error {
	path := p.outputPath(name)
	if err := catalog.WriteFile(path, write); err != nil {
		return err
	}
	logger.Info("Wrote %s", path)
	return nil
}

// record persists the run, updates metrics and sends the summary. Failures
// here are logged and never fail the run.
func (p *pipeline) record(ctx context.Context, run *models.Run, report *analysis.Report, params map[string]any) {
	run.Source = p.cfg.Catalog.Source
	run.Windows = report.Windows
	run.Included = report.Included
	run.Degenerate = report.Degenerate
	run.CreatedAt = time.Now()
	if encoded, err := json.Marshal(params); err == nil {
		run.Params = string(encoded)
	}

	if p.store != nil {
		if err := p.store.SaveRun(run, report.Results); err != nil {
			logger.Warn("Failed to save run: %v", err)
		} else {
			logger.Debug("Saved run %s", run.ID)
		}
	}

	p.recorder.ObserveReport(report)
	p.recorder.ObserveRun(run.EventCount, time.Since(p.started), run.CreatedAt)
	if p.cfg.Metrics.Textfile != "" {
		if err := p.recorder.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
			logger.Warn("%v", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.SendRunSummary(ctx, run, report); err != nil {
			logger.Warn("Failed to send run summary to Telegram: %v", err)
		}
	}
}

// finish turns a run error into the command result. Cancellation is reported
// but is not a failure.
func (p *pipeline) finish(ctx context.Context, mode models.WindowMode, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrCancelled) || errors.Is(err, context.Canceled) {
		logger.Info("Analysis cancelled")
		fmt.Fprintln(p.out, "analysis cancelled")
		return nil
	}
	if p.notifier != nil {
		if sendErr := p.notifier.SendError(context.WithoutCancel(ctx), mode, err); sendErr != nil {
			logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
		}
	}
	return err
}

func (p *pipeline) analyzer(minEvents int) (*analysis.Analyzer, error) {
	return analysis.New(p.cfg.AnalyzerConfig(minEvents))
}

func printSummary(w io.Writer, report *analysis.Report, minEvents int) {
	fmt.Fprintf(w, "%s: %d windows, %d with at least %d events, %d degenerate\n",
		report.Mode, report.Windows, report.Included, minEvents, report.Degenerate)
	for _, est := range []analysis.Estimator{analysis.ML, analysis.LSR} {
		if lo, hi, ok := report.BRange(est); ok {
			fmt.Fprintf(w, "  b (%s): %.3f to %.3f\n", est, lo, hi)
		}
	}
}
