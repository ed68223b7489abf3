package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. GLOF_OUTPUT_DIR.
const EnvPrefix = "GLOF"

// Config holds the hydrograph batch settings, populated from defaults, an
// optional YAML file, environment variables and command-line flags, in
// increasing order of precedence.
type Config struct {
	InputPath string
	OutputDir string

	Fraction    float64
	BreachWidth float64
	TimeStart   float64
	TimeEnd     float64
	TimeStep    float64

	PlotEnabled bool
	PlotWidth   float64 // inches
	PlotHeight  float64 // inches

	MassBalanceTolerance float64

	LogLevel  string
	LogFormat string

	// MetricsFile, when set, receives a Prometheus textfile after the run.
	MetricsFile string

	// CatalogPath, when set, records every run in a SQLite database.
	CatalogPath string

	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaTopic          string
	KafkaPublishTimeout time.Duration
}

// Params returns the run-wide estimation defaults.
func (c *Config) Params() domain.Params {
	return domain.Params{
		Fraction:    c.Fraction,
		BreachWidth: c.BreachWidth,
		Grid: domain.TimeGrid{
			Start: c.TimeStart,
			End:   c.TimeEnd,
			Step:  c.TimeStep,
		},
	}
}

// Flags declares the command-line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("hydrograph", pflag.ContinueOnError)
	fs.String("config", "", "optional YAML configuration file")
	fs.String("input", "", "lake table (CSV)")
	fs.String("output-dir", "", "directory receiving one folder per lake")
	fs.Float64("fraction", 0, "share of the lake volume released")
	fs.Float64("breach-width", 0, "breach width in metres")
	fs.Bool("no-plot", false, "skip rendering the hydrograph PNG")
	fs.String("log-level", "", "debug, info, warn or error")
	return fs
}

// Load resolves configuration. fs may be nil; flags that were not set on
// the command line do not override other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := newViper()
	setDefaults(v)

	if fs != nil {
		bindFlag(v, fs, "input_path", "input")
		bindFlag(v, fs, "output_dir", "output-dir")
		bindFlag(v, fs, "fraction", "fraction")
		bindFlag(v, fs, "breach_width", "breach-width")
		bindFlag(v, fs, "log_level", "log-level")
		if f := fs.Lookup("no-plot"); f != nil && f.Changed && f.Value.String() == "true" {
			v.Set("plot_enabled", false)
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	cfg := &Config{
		InputPath:            expandHome(v.GetString("input_path")),
		OutputDir:            expandHome(v.GetString("output_dir")),
		Fraction:             v.GetFloat64("fraction"),
		BreachWidth:          v.GetFloat64("breach_width"),
		TimeStart:            v.GetFloat64("time_start"),
		TimeEnd:              v.GetFloat64("time_end"),
		TimeStep:             v.GetFloat64("time_step"),
		PlotEnabled:          v.GetBool("plot_enabled"),
		PlotWidth:            v.GetFloat64("plot_width"),
		PlotHeight:           v.GetFloat64("plot_height"),
		MassBalanceTolerance: v.GetFloat64("mass_balance_tolerance"),
		LogLevel:             strings.ToLower(v.GetString("log_level")),
		LogFormat:            strings.ToLower(v.GetString("log_format")),
		MetricsFile:          expandHome(v.GetString("metrics_file")),
		CatalogPath:          expandHome(v.GetString("catalog_path")),
		KafkaBrokers:         parseList(v.GetString("kafka_brokers")),
		KafkaTopic:           v.GetString("kafka_topic"),
		KafkaPublishTimeout:  v.GetDuration("kafka_publish_timeout"),
	}
	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if v.IsSet("kafka_enabled") {
		cfg.KafkaEnabled = v.GetBool("kafka_enabled")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input_path", "lakes.csv")
	v.SetDefault("output_dir", "hydrograph_outputs")
	v.SetDefault("fraction", domain.DefaultFraction)
	v.SetDefault("breach_width", domain.DefaultBreachWidth)
	v.SetDefault("time_start", domain.DefaultTimeStart)
	v.SetDefault("time_end", domain.DefaultTimeEnd)
	v.SetDefault("time_step", domain.DefaultTimeStep)
	v.SetDefault("plot_enabled", true)
	v.SetDefault("plot_width", 12.0)
	v.SetDefault("plot_height", 6.0)
	v.SetDefault("mass_balance_tolerance", 0.02)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_file", "")
	v.SetDefault("catalog_path", "")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "glof-hydrographs")
	v.SetDefault("kafka_publish_timeout", "10s")
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("INPUT_PATH is required")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("invalid estimation parameters: %w", err)
	}
	if c.PlotEnabled && (c.PlotWidth <= 0 || c.PlotHeight <= 0) {
		return errors.New("PLOT_WIDTH and PLOT_HEIGHT must be positive")
	}
	if c.MassBalanceTolerance <= 0 {
		return errors.New("MASS_BALANCE_TOLERANCE must be positive")
	}
	if err := validateLogging(c.LogLevel, c.LogFormat); err != nil {
		return err
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when Kafka is enabled")
		}
		if c.KafkaPublishTimeout <= 0 {
			return errors.New("KAFKA_PUBLISH_TIMEOUT must be positive")
		}
	}
	return nil
}

func validateLogging(level, format string) error {
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", level)
	}
	switch format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text; got %q", format)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

func bindFlag(v *viper.Viper, fs *pflag.FlagSet, key, name string) {
	f := fs.Lookup(name)
	if f == nil || !f.Changed {
		return
	}
	_ = v.BindPFlag(key, f) //nolint:errcheck // f is non-nil
}

// readConfigFile loads the YAML named by --config or GLOF_CONFIG, if any.
func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	path := v.GetString("config")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path == "" {
		return nil
	}
	v.SetConfigFile(expandHome(path))
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
