package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/quakestat/internal/config"
	"github.com/rewired-gh/quakestat/internal/models"
	"github.com/rewired-gh/quakestat/internal/storage"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	list.Flags().Int("limit", 20, "maximum runs to show (0 = all)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run and its windows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(args[0])
			if err != nil {
				return err
			}
			results, err := store.GetWindowResults(run.ID)
			if err != nil {
				return err
			}
			return printRun(cmd.OutOrStdout(), run, results)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func (a *app) openStore(cmd *cobra.Command) (*storage.Storage, error) {
	cfg, err := a.load(cmd, nil)
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func openStore(cfg *config.Config) (*storage.Storage, error) {
	if !cfg.Storage.Enabled {
		return nil, fmt.Errorf("run history is disabled (storage.enabled = false)")
	}
	return storage.New(cfg.Storage.MaxRuns, cfg.Storage.DBPath)
}

func printRuns(w io.Writer, runs []*models.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tMODE\tEVENTS\tWINDOWS\tINCLUDED\tDEGENERATE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Mode,
			r.EventCount, r.Windows, r.Included, r.Degenerate)
	}
	return tw.Flush()
}

func printRun(w io.Writer, run *models.Run, results []models.WindowResult) error {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  created:  %s\n", run.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  mode:     %s\n", run.Mode)
	fmt.Fprintf(w, "  source:   %s\n", run.Source)
	fmt.Fprintf(w, "  events:   %d\n", run.EventCount)
	fmt.Fprintf(w, "  windows:  %d (%d included, %d degenerate)\n", run.Windows, run.Included, run.Degenerate)
	fmt.Fprintf(w, "  params:   %s\n\n", run.Params)

	// Temporal windows are located by their time range, the others by their
	// grid square centre.
	where := "CENTRE_X\tCENTRE_Y"
	if run.Mode.IsTemporal() {
		where = "FROM\tTO"
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "WINDOW\tEVENTS\t%s\tB_LSR\tB_ML\tSTD_ERR_ML\n", where)
	for _, r := range results {
		if !r.Included {
			continue
		}
		var a, b string
		switch {
		case run.Mode.IsTemporal():
			a = r.TimeMin.Format(time.RFC3339)
			b = r.TimeMax.Format(time.RFC3339)
		case run.Mode == models.ModeSpatial:
			x, y := r.Bounds.Center()
			a, b = fmt.Sprintf("%.3f", x), fmt.Sprintf("%.3f", y)
		default:
			a, b = "-", "-"
		}
		lsr, ml, stdErr := "-", "-", "-"
		if r.LSR != nil {
			lsr = fmt.Sprintf("%.3f", r.LSR.B)
		}
		if r.ML != nil {
			ml = fmt.Sprintf("%.3f", r.ML.B)
			stdErr = fmt.Sprintf("%.3f", r.ML.StdErr)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n", r.Index, r.EventCount, a, b, lsr, ml, stdErr)
	}
	return tw.Flush()
}
