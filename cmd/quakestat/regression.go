package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/quakestat/internal/analysis"
	"github.com/rewired-gh/quakestat/internal/bvalue"
	"github.com/rewired-gh/quakestat/internal/catalog"
	"github.com/rewired-gh/quakestat/internal/models"
)

func newRegressionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regression",
		Short: "Estimate the b-value of the whole catalog",
		Long: `Estimate a and b of the whole filtered catalog with both estimators and
write the magnitude-frequency curve with the fitted lines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer p.Close()
			return p.finish(cmd.Context(), models.ModeCatalog, runRegression(cmd.Context(), p))
		},
	}
}

func runRegression(ctx context.Context, p *pipeline) error {
	events, err := p.loadEvents(ctx)
	if err != nil {
		return err
	}
	a, err := p.analyzer(0)
	if err != nil {
		return err
	}
	result, err := a.Catalog(events)
	if err != nil {
		return err
	}
	if result.LSR == nil && result.ML == nil {
		return fmt.Errorf("%w: %s; %s", models.ErrDegenerateFit, result.LSRFailure, result.MLFailure)
	}

	printEstimate(p.out, "LSR", result.LSR, result.LSRFailure)
	printEstimate(p.out, "ML", result.ML, result.MLFailure)

	curve := bvalue.FrequencyCurve(models.Magnitudes(events))
	if err := p.export("curve", func(w io.Writer) error {
		return catalog.WriteCurve(w, curve, result.LSR, result.ML)
	}); err != nil {
		return err
	}

	report := analysis.NewReport(models.ModeCatalog, []models.WindowResult{result})
	run := &models.Run{Mode: models.ModeCatalog, EventCount: len(events)}
	p.record(ctx, run, report, map[string]any{
		"bin_size":  p.cfg.Analysis.BinSize,
		"precision": p.cfg.Analysis.Precision,
	})
	return nil
}

func printEstimate(w io.Writer, name string, est *models.Estimate, failure string) {
	switch {
	case est == nil:
		fmt.Fprintf(w, "%-3s unavailable: %s\n", name, failure)
	case est.StdErr > 0:
		fmt.Fprintf(w, "%-3s b = %.3f ± %.3f, a = %.3f\n", name, est.B, est.StdErr, est.A)
	default:
		fmt.Fprintf(w, "%-3s b = %.3f, a = %.3f\n", name, est.B, est.A)
	}
}
