package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rewired-gh/quakestat/internal/config"
	"github.com/rewired-gh/quakestat/internal/logger"
)

const version = "0.1.0"

// sharedBindings maps the persistent flags to configuration keys.
var sharedBindings = map[string]string{
	"source":           "catalog.source",
	"projection":       "catalog.projection",
	"utm-zone":         "catalog.utm_zone",
	"bin-size":         "analysis.bin_size",
	"workers":          "analysis.workers",
	"completeness":     "filter.completeness",
	"x-min":            "filter.x_min",
	"x-max":            "filter.x_max",
	"y-min":            "filter.y_min",
	"y-max":            "filter.y_max",
	"z-min":            "filter.z_min",
	"z-max":            "filter.z_max",
	"outliers":         "filter.outliers.enabled",
	"outlier-fraction": "filter.outliers.fraction",
	"out-dir":          "output.dir",
	"log-level":        "logging.level",
}

type app struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "quakestat",
		Short: "Gutenberg-Richter b-value analysis of earthquake catalogs",
		Long: `quakestat estimates the Gutenberg-Richter b-value of an earthquake catalog,
over the whole catalog or over spatial and temporal windows, with both the
least squares and the maximum likelihood estimators.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	addSharedFlags(pf)

	root.AddCommand(
		newRegressionCmd(a),
		newSpatialCmd(a),
		newTemporalCmd(a),
		newRunsCmd(a),
	)
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(fmt.Sprintf("quakestat version %s\n", version))
	return root
}

func addSharedFlags(fs *pflag.FlagSet) {
	fs.String("source", "", "catalog CSV path or http(s) URL")
	fs.String("projection", "utm", "coordinate frame: utm or cartesian")
	fs.Int("utm-zone", 0, "force a UTM zone (0 = zone of the mean position)")
	fs.Float64("bin-size", 0.2, "magnitude bin width for the least squares fit")
	fs.Int("workers", 0, "concurrent window estimations (0 = number of CPUs)")
	fs.String("completeness", "", "drop events below this magnitude")
	for _, axis := range []string{"x", "y", "z"} {
		fs.String(axis+"-min", "", "crop: minimum "+axis+" in km")
		fs.String(axis+"-max", "", "crop: maximum "+axis+" in km")
	}
	fs.Bool("outliers", false, "remove the most isolated events")
	fs.Float64("outlier-fraction", 0.01, "fraction of events treated as distance outliers")
	fs.String("out-dir", ".", "directory for CSV exports")
	fs.String("log-level", "info", "debug, info, warn or error")
}

// load resolves the configuration for cmd, binding the shared flags and any
// command flags in extra, then initializes logging.
func (a *app) load(cmd *cobra.Command, extra map[string]string) (*config.Config, error) {
	flags := cmd.Flags()
	bindings := make(map[string]string, len(sharedBindings)+len(extra))
	for _, m := range []map[string]string{sharedBindings, extra} {
		for name, key := range m {
			if flags.Lookup(name) != nil {
				bindings[name] = key
			}
		}
	}

	cfg, err := config.Load(a.configPath, flags, bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if a.configPath != "" {
		logger.Debug("Configuration loaded from %s", a.configPath)
	}
	return cfg, nil
}
