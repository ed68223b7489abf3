package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LauncherConfig describes which GRASS GIS simulations to start and where
// they live. It replaces the path constants that used to be edited by hand
// for every project.
type LauncherConfig struct {
	// ProjectsPath holds one folder per simulation, each with a start script.
	ProjectsPath string
	GISDBase     string
	Location     string
	// Simulations selects folders under ProjectsPath by name.
	Simulations []string

	GrassBinary string
	Terminal    string
	StartScript string

	LogLevel    string
	LogFormat   string
	MetricsFile string
}

// PermanentMapset is the location's PERMANENT mapset directory.
func (c *LauncherConfig) PermanentMapset() string {
	return filepath.Join(c.GISDBase, c.Location, "PERMANENT")
}

// LauncherFlags declares the command-line flags understood by LoadLauncher.
func LauncherFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("grass-launch", pflag.ContinueOnError)
	fs.String("config", "", "optional YAML configuration file")
	fs.String("projects-path", "", "directory containing one folder per simulation")
	fs.String("gisdbase", "", "GRASS GIS database directory")
	fs.String("location", "", "GRASS location name")
	fs.StringSlice("sim", nil, "simulation folder to launch (repeatable)")
	fs.String("log-level", "", "debug, info, warn or error")
	return fs
}

// LoadLauncher resolves launcher configuration from defaults, an optional
// YAML file, GLOF_-prefixed environment variables and flags.
func LoadLauncher(fs *pflag.FlagSet) (*LauncherConfig, error) {
	v := newViper()
	setLauncherDefaults(v)

	if fs != nil {
		bindFlag(v, fs, "projects_path", "projects-path")
		bindFlag(v, fs, "gisdbase", "gisdbase")
		bindFlag(v, fs, "location", "location")
		bindFlag(v, fs, "log_level", "log-level")
	}
	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	sims := parseList(v.GetString("simulations"))
	if len(sims) == 0 {
		sims = v.GetStringSlice("simulations")
	}
	if fs != nil {
		if f := fs.Lookup("sim"); f != nil && f.Changed {
			sims, _ = fs.GetStringSlice("sim") //nolint:errcheck // declared above as a string slice
		}
	}

	cfg := &LauncherConfig{
		ProjectsPath: expandHome(v.GetString("projects_path")),
		GISDBase:     expandHome(v.GetString("gisdbase")),
		Location:     v.GetString("location"),
		Simulations:  sims,
		GrassBinary:  v.GetString("grass_binary"),
		Terminal:     v.GetString("terminal"),
		StartScript:  v.GetString("start_script"),
		LogLevel:     strings.ToLower(v.GetString("log_level")),
		LogFormat:    strings.ToLower(v.GetString("log_format")),
		MetricsFile:  expandHome(v.GetString("metrics_file")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setLauncherDefaults(v *viper.Viper) {
	v.SetDefault("projects_path", "~/data/PROJECTS")
	v.SetDefault("gisdbase", "~/data/SPATIALDATA")
	v.SetDefault("location", "")
	v.SetDefault("simulations", "")
	v.SetDefault("grass_binary", "grass")
	v.SetDefault("terminal", "gnome-terminal")
	v.SetDefault("start_script", "start.sh")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_file", "")
}

// Validate checks that every path and binary needed to launch is named.
func (c *LauncherConfig) Validate() error {
	if c.ProjectsPath == "" {
		return errors.New("PROJECTS_PATH is required")
	}
	if c.GISDBase == "" {
		return errors.New("GISDBASE is required")
	}
	if c.Location == "" {
		return errors.New("LOCATION is required")
	}
	if len(c.Simulations) == 0 {
		return errors.New("SIMULATIONS must name at least one simulation folder")
	}
	if c.GrassBinary == "" || c.Terminal == "" || c.StartScript == "" {
		return errors.New("GRASS_BINARY, TERMINAL and START_SCRIPT must not be empty")
	}
	return validateLogging(c.LogLevel, c.LogFormat)
}
