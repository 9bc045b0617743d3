package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/quakestat/internal/catalog"
	"github.com/rewired-gh/quakestat/internal/models"
	"github.com/rewired-gh/quakestat/internal/window"
)

func newSpatialCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spatial",
		Short: "Estimate the b-value over a grid of square windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd, map[string]string{
				"size":       "spatial.size",
				"step":       "spatial.step",
				"min-events": "spatial.min_events",
			})
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer p.Close()
			return p.finish(cmd.Context(), models.ModeSpatial, runSpatial(cmd.Context(), p))
		},
	}
	cmd.Flags().Float64("size", 10, "window side length in km")
	cmd.Flags().Float64("step", 10, "distance between window anchors in km")
	cmd.Flags().Int("min-events", 500, "minimum events for a window to be estimated")
	return cmd
}

func runSpatial(ctx context.Context, p *pipeline) error {
	sc := p.cfg.Spatial
	events, err := p.loadEvents(ctx)
	if err != nil {
		return err
	}
	windows, err := window.Spatial(events, sc.Size, sc.Step)
	if err != nil {
		return err
	}

	a, err := p.analyzer(sc.MinEvents)
	if err != nil {
		return err
	}
	report, err := a.Analyze(ctx, windows)
	if report != nil {
		// The grid is written even when no window qualifies.
		if gridErr := p.export("grid", func(w io.Writer) error {
			return catalog.WriteGrid(w, report.Results)
		}); gridErr != nil {
			return gridErr
		}
	}
	if err != nil {
		return err
	}

	if err := p.export(string(models.ModeSpatial), func(w io.Writer) error {
		return catalog.WriteSpatial(w, report.IncludedResults())
	}); err != nil {
		return err
	}
	printSummary(p.out, report, sc.MinEvents)

	p.record(ctx, &models.Run{Mode: models.ModeSpatial, EventCount: len(events)}, report, map[string]any{
		"size":       sc.Size,
		"step":       sc.Step,
		"min_events": sc.MinEvents,
		"bin_size":   p.cfg.Analysis.BinSize,
	})
	return nil
}
