package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rewired-gh/quakestat/internal/analysis"
	"github.com/rewired-gh/quakestat/internal/fetch"
	"github.com/rewired-gh/quakestat/internal/filter"
	"github.com/rewired-gh/quakestat/internal/models"
)

// EnvPrefix prefixes every environment override, e.g. QUAKESTAT_SPATIAL_SIZE.
const EnvPrefix = "QUAKESTAT"

// Config represents the complete application configuration
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Spatial  SpatialConfig  `mapstructure:"spatial"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Output   OutputConfig   `mapstructure:"output"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CatalogConfig holds the catalog source and how it is projected
type CatalogConfig struct {
	Source     string        `mapstructure:"source"`
	Projection string        `mapstructure:"projection"`
	UTMZone    int           `mapstructure:"utm_zone"` // 0 = zone of the mean position
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// FilterConfig holds the pre-windowing filters. Numeric thresholds are kept as
// strings so that an absent value stays distinguishable from zero.
type FilterConfig struct {
	Completeness string        `mapstructure:"completeness"`
	XMin         string        `mapstructure:"x_min"`
	XMax         string        `mapstructure:"x_max"`
	YMin         string        `mapstructure:"y_min"`
	YMax         string        `mapstructure:"y_max"`
	ZMin         string        `mapstructure:"z_min"`
	ZMax         string        `mapstructure:"z_max"`
	Outliers     OutlierConfig `mapstructure:"outliers"`
}

type OutlierConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Fraction  float64 `mapstructure:"fraction"`
	MaxEvents int     `mapstructure:"max_events"`
}

// AnalysisConfig holds estimator settings
type AnalysisConfig struct {
	BinSize   float64 `mapstructure:"bin_size"`
	Precision int     `mapstructure:"precision"`
	Workers   int     `mapstructure:"workers"` // 0 = number of CPUs
}

type SpatialConfig struct {
	Size      float64 `mapstructure:"size"`
	Step      float64 `mapstructure:"step"`
	MinEvents int     `mapstructure:"min_events"`
}

type TemporalConfig struct {
	Mode      string `mapstructure:"mode"` // even or sliding
	Windows   int    `mapstructure:"windows"`
	Size      int    `mapstructure:"size"`
	Step      int    `mapstructure:"step"`
	MinEvents int    `mapstructure:"min_events"`
}

// OutputConfig controls where CSV exports are written
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
}

// StorageConfig holds run history configuration
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
	MaxRuns int    `mapstructure:"max_runs"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional file, environment
// variables and command line flags, in increasing order of precedence.
// bindings maps flag names in flags to configuration keys.
func Load(path string, flags *pflag.FlagSet, bindings map[string]string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("unknown flag %q bound to %s", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.source", "")
	v.SetDefault("catalog.projection", "utm")
	v.SetDefault("catalog.utm_zone", 0)
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.max_retries", 3)

	// Empty thresholds leave the filter open.
	for _, key := range []string{"completeness", "x_min", "x_max", "y_min", "y_max", "z_min", "z_max"} {
		v.SetDefault("filter."+key, "")
	}
	v.SetDefault("filter.outliers.enabled", false)
	v.SetDefault("filter.outliers.fraction", filter.DefaultOutlierFraction)
	v.SetDefault("filter.outliers.max_events", filter.DefaultOutlierMaxEvents)

	v.SetDefault("analysis.bin_size", 0.2)
	v.SetDefault("analysis.precision", 3)
	v.SetDefault("analysis.workers", 0)

	v.SetDefault("spatial.size", 10.0)
	v.SetDefault("spatial.step", 10.0)
	v.SetDefault("spatial.min_events", 500)

	v.SetDefault("temporal.mode", "even")
	v.SetDefault("temporal.windows", 10)
	v.SetDefault("temporal.size", 500)
	v.SetDefault("temporal.step", 250)
	v.SetDefault("temporal.min_events", 2)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.prefix", "quakestat")

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.max_runs", 100)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Catalog
	if c.Catalog.Projection != "utm" && c.Catalog.Projection != "cartesian" {
		return invalid("catalog.projection must be one of: utm, cartesian")
	}
	if c.Catalog.UTMZone < 0 || c.Catalog.UTMZone > 60 {
		return invalid("catalog.utm_zone must be between 0 and 60")
	}
	if c.Catalog.Timeout <= 0 {
		return invalid("catalog.timeout must be positive")
	}
	if c.Catalog.MaxRetries < 1 {
		return invalid("catalog.max_retries must be at least 1")
	}

	// Filter
	if _, err := c.FilterOptions(); err != nil {
		return err
	}
	if c.Filter.Outliers.Fraction <= 0 || c.Filter.Outliers.Fraction >= 1 {
		return invalid("filter.outliers.fraction must be between 0 and 1 (exclusive)")
	}
	if c.Filter.Outliers.MaxEvents < 1 {
		return invalid("filter.outliers.max_events must be at least 1")
	}

	// Analysis
	if !(c.Analysis.BinSize > 0) {
		return invalid("analysis.bin_size must be positive")
	}
	if c.Analysis.Precision < 0 || c.Analysis.Precision > 9 {
		return invalid("analysis.precision must be between 0 and 9")
	}
	if c.Analysis.Workers < 0 {
		return invalid("analysis.workers must not be negative")
	}

	// Windows
	if !(c.Spatial.Size > 0) || !(c.Spatial.Step > 0) {
		return invalid("spatial.size and spatial.step must be positive")
	}
	if c.Spatial.MinEvents < 0 {
		return invalid("spatial.min_events must not be negative")
	}
	if c.Temporal.Mode != "even" && c.Temporal.Mode != "sliding" {
		return invalid("temporal.mode must be one of: even, sliding")
	}
	if c.Temporal.Windows < 1 {
		return invalid("temporal.windows must be at least 1")
	}
	if c.Temporal.Size < 1 || c.Temporal.Step < 1 {
		return invalid("temporal.size and temporal.step must be at least 1")
	}
	if c.Temporal.MinEvents < 0 {
		return invalid("temporal.min_events must not be negative")
	}

	// Output
	if c.Output.Dir == "" {
		return invalid("output.dir is required")
	}
	if c.Output.Prefix == "" {
		return invalid("output.prefix is required")
	}

	// Storage
	if c.Storage.Enabled && c.Storage.MaxRuns < 1 {
		return invalid("storage.max_runs must be at least 1")
	}

	// Telegram
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return invalid("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return invalid("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Logging
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return invalid("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return invalid("logging.format must be one of: json, text")
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", models.ErrInputValidation, msg)
}

// ParseOptionalFloat parses one optional numeric setting. An empty or blank
// value means unset and yields nil.
func ParseOptionalFloat(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be a finite number, got %q", models.ErrInputValidation, name, raw)
	}
	return &v, nil
}

type optionalField struct {
	name string
	raw  string
	dst  **float64
}

// FilterOptions converts the filter section into filter.Options.
func (c *Config) FilterOptions() (filter.Options, error) {
	var opts filter.Options
	fields := []optionalField{
		{"filter.completeness", c.Filter.Completeness, &opts.Completeness},
		{"filter.x_min", c.Filter.XMin, &opts.Bounds.XMin},
		{"filter.x_max", c.Filter.XMax, &opts.Bounds.XMax},
		{"filter.y_min", c.Filter.YMin, &opts.Bounds.YMin},
		{"filter.y_max", c.Filter.YMax, &opts.Bounds.YMax},
		{"filter.z_min", c.Filter.ZMin, &opts.Bounds.ZMin},
		{"filter.z_max", c.Filter.ZMax, &opts.Bounds.ZMax},
	}
	for _, f := range fields {
		v, err := ParseOptionalFloat(f.name, f.raw)
		if err != nil {
			return filter.Options{}, err
		}
		*f.dst = v
	}
	if err := opts.Bounds.Validate(); err != nil {
		return filter.Options{}, err
	}

	opts.Outliers = c.Filter.Outliers.Enabled
	opts.OutlierFraction = c.Filter.Outliers.Fraction
	opts.OutlierMaxEvents = c.Filter.Outliers.MaxEvents
	return opts, nil
}

// AnalyzerConfig returns the estimator settings with the given window minimum.
func (c *Config) AnalyzerConfig(minEvents int) analysis.Config {
	return analysis.Config{
		BinSize:   c.Analysis.BinSize,
		Precision: c.Analysis.Precision,
		MinEvents: minEvents,
		Workers:   c.Analysis.Workers,
	}
}

// FetchConfig returns the download settings for remote catalogs.
func (c *Config) FetchConfig() fetch.ClientConfig {
	return fetch.ClientConfig{
		Timeout:    c.Catalog.Timeout,
		MaxRetries: c.Catalog.MaxRetries,
	}
}
