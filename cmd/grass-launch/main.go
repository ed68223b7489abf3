// Command grass-launch creates a GRASS GIS mapset for each selected flood
// simulation and runs its start script in a new terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/glof-hydrograph/internal/config"
	"github.com/couchcryptid/glof-hydrograph/internal/launcher"
	"github.com/couchcryptid/glof-hydrograph/internal/observability"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := config.LauncherFlags()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.LoadLauncher(fs)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("launching simulations",
		"location", cfg.Location,
		"gisdbase", cfg.GISDBase,
		"simulations", cfg.Simulations,
	)
	report, err := launcher.New(cfg, launcher.ExecRunner{}, logger, metrics).Launch(ctx)

	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Error("failed to write metrics", "error", werr)
		}
	}

	if err != nil {
		logger.Error("launch failed", "error", err)
		return 1
	}

	for _, r := range report.Launched {
		fmt.Printf("%s: started in mapset %s\n", r.Simulation, r.Mapset)
	}
	for _, r := range report.Failed {
		fmt.Printf("%s: FAILED: %v\n", r.Simulation, r.Err)
	}
	for _, name := range report.Missing {
		fmt.Printf("%s: no such folder\n", name)
	}
	if len(report.Failed) > 0 || len(report.Launched) == 0 {
		return 1
	}
	return 0
}
