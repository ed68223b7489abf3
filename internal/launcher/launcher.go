// Package launcher prepares GRASS GIS mapsets for flood simulations and
// starts each simulation's script in its own terminal session.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/glof-hydrograph/internal/config"
	"github.com/couchcryptid/glof-hydrograph/internal/observability"
)

// MapsetPrefix is prepended to a simulation folder name to form its mapset.
const MapsetPrefix = "Mapset_"

// Result is the outcome for one simulation folder.
type Result struct {
	Simulation string
	Mapset     string
	Err        error
}

// LaunchReport lists what happened to every selected simulation.
type LaunchReport struct {
	Launched []Result
	Failed   []Result
	// Missing names selected simulations with no folder under the projects path.
	Missing []string
}

// Launcher creates mapsets and starts simulations.
type Launcher struct {
	cfg     *config.LauncherConfig
	runner  Runner
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Launcher.
func New(cfg *config.LauncherConfig, runner Runner, logger *slog.Logger, metrics *observability.Metrics) *Launcher {
	return &Launcher{cfg: cfg, runner: runner, logger: logger, metrics: metrics}
}

// Launch handles every selected simulation in directory order. It returns an
// error only when the projects path cannot be listed or ctx is cancelled.
func (l *Launcher) Launch(ctx context.Context) (LaunchReport, error) {
	var report LaunchReport

	sims, err := l.simulations()
	if err != nil {
		return report, err
	}
	for _, name := range l.cfg.Simulations {
		if !slices.Contains(sims, name) {
			report.Missing = append(report.Missing, name)
			l.logger.Warn("simulation folder not found", "simulation", name, "projects_path", l.cfg.ProjectsPath)
		}
	}

	for _, sim := range sims {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := l.launchOne(ctx, sim)
		if res.Err != nil {
			l.logger.Error("simulation launch failed", "simulation", sim, "mapset", res.Mapset, "error", res.Err)
			l.metrics.SimulationsFailed.Inc()
			report.Failed = append(report.Failed, res)
			continue
		}
		l.logger.Info("simulation launched", "simulation", sim, "mapset", res.Mapset)
		l.metrics.SimulationsLaunched.Inc()
		report.Launched = append(report.Launched, res)
	}
	return report, nil
}

// simulations returns the selected folder names present under the projects
// path, sorted by name.
func (l *Launcher) simulations() ([]string, error) {
	entries, err := os.ReadDir(l.cfg.ProjectsPath)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var sims []string
	for _, e := range entries {
		if e.IsDir() && slices.Contains(l.cfg.Simulations, e.Name()) {
			sims = append(sims, e.Name())
		}
	}
	return sims, nil
}

func (l *Launcher) launchOne(ctx context.Context, sim string) Result {
	mapset := MapsetPrefix + sim
	res := Result{Simulation: sim, Mapset: mapset}
	dir := filepath.Join(l.cfg.ProjectsPath, sim)

	if _, err := os.Stat(filepath.Join(dir, l.cfg.StartScript)); err != nil {
		res.Err = fmt.Errorf("start script: %w", err)
		return res
	}

	create := l.CreateMapsetCommand(sim)
	l.logger.Debug("creating mapset", "command", create.String())
	if err := l.runner.Run(ctx, create); err != nil {
		res.Err = fmt.Errorf("create mapset %s: %w", mapset, err)
		return res
	}

	start := l.StartCommand(sim)
	l.logger.Debug("starting simulation", "command", start.String(), "dir", start.Dir)
	if err := l.runner.Start(ctx, start); err != nil {
		res.Err = fmt.Errorf("start simulation: %w", err)
		return res
	}
	return res
}

// CreateMapsetCommand builds the GRASS call that creates the simulation's
// mapset inside the PERMANENT mapset's location.
func (l *Launcher) CreateMapsetCommand(sim string) Command {
	return Command{
		Name: l.cfg.GrassBinary,
		Args: []string{
			l.cfg.PermanentMapset(),
			"--exec", "g.mapset", "-c", "mapset=" + MapsetPrefix + sim,
		},
	}
}

// StartCommand builds the terminal call that runs the start script inside
// the new mapset and leaves an interactive shell open afterwards.
func (l *Launcher) StartCommand(sim string) Command {
	mapset := MapsetPrefix + sim
	dir := filepath.Join(l.cfg.ProjectsPath, sim)
	script := fmt.Sprintf("%s %s --exec sh %s %s; exec bash",
		l.cfg.GrassBinary,
		filepath.Join(l.cfg.GISDBase, l.cfg.Location, mapset),
		filepath.Join(dir, l.cfg.StartScript),
		mapset,
	)
	return Command{
		Name: l.cfg.Terminal,
		Args: []string{"--", "bash", "-c", script},
		Dir:  dir,
	}
}
