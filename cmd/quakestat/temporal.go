package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/quakestat/internal/catalog"
	"github.com/rewired-gh/quakestat/internal/models"
	"github.com/rewired-gh/quakestat/internal/window"
)

func newTemporalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "temporal",
		Short: "Estimate the b-value over consecutive time windows",
		Long: `Sort the catalog by time and estimate the b-value per window, either over
a fixed number of equal-count windows (--mode even) or over windows of a
fixed event count advanced by a fixed step (--mode sliding).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd, map[string]string{
				"mode":       "temporal.mode",
				"windows":    "temporal.windows",
				"size":       "temporal.size",
				"step":       "temporal.step",
				"min-events": "temporal.min_events",
			})
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer p.Close()
			return p.finish(cmd.Context(), temporalMode(cfg.Temporal.Mode), runTemporal(cmd.Context(), p))
		},
	}
	cmd.Flags().String("mode", "even", "even or sliding")
	cmd.Flags().Int("windows", 10, "number of windows in even mode")
	cmd.Flags().Int("size", 500, "events per window in sliding mode")
	cmd.Flags().Int("step", 250, "events between window starts in sliding mode")
	cmd.Flags().Int("min-events", 2, "minimum events for a window to be estimated")
	return cmd
}

func temporalMode(name string) models.WindowMode {
	if name == "sliding" {
		return models.ModeSliding
	}
	return models.ModeEven
}

func runTemporal(ctx context.Context, p *pipeline) error {
	tc := p.cfg.Temporal
	mode := temporalMode(tc.Mode)
	events, err := p.loadEvents(ctx)
	if err != nil {
		return err
	}

	var windows []models.Window
	params := map[string]any{"mode": tc.Mode, "min_events": tc.MinEvents, "bin_size": p.cfg.Analysis.BinSize}
	if mode == models.ModeSliding {
		windows, err = window.Sliding(events, tc.Size, tc.Step)
		params["size"], params["step"] = tc.Size, tc.Step
	} else {
		windows, err = window.EvenSplit(events, tc.Windows)
		params["windows"] = tc.Windows
	}
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return fmt.Errorf("%w: %d events do not fill one window of %d", models.ErrEmptyResult, len(events), tc.Size)
	}

	a, err := p.analyzer(tc.MinEvents)
	if err != nil {
		return err
	}
	report, err := a.Analyze(ctx, windows)
	if err != nil {
		return err
	}

	if err := p.export(string(mode), func(w io.Writer) error {
		return catalog.WriteTemporal(w, report.IncludedResults())
	}); err != nil {
		return err
	}
	printSummary(p.out, report, tc.MinEvents)

	p.record(ctx, &models.Run{Mode: mode, EventCount: len(events)}, report, params)
	return nil
}
