// Command hydrograph estimates a GLOF outflow hydrograph for every lake in a
// table and writes one folder of artifacts per lake.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/glof-hydrograph/internal/adapter/catalog"
	"github.com/couchcryptid/glof-hydrograph/internal/adapter/csvsource"
	"github.com/couchcryptid/glof-hydrograph/internal/adapter/fsstore"
	kafkaadapter "github.com/couchcryptid/glof-hydrograph/internal/adapter/kafka"
	"github.com/couchcryptid/glof-hydrograph/internal/config"
	"github.com/couchcryptid/glof-hydrograph/internal/observability"
	"github.com/couchcryptid/glof-hydrograph/internal/pipeline"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := config.Flags()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loaders := pipeline.Chain{
		fsstore.NewStore(cfg.OutputDir, fsstore.PlotOptions{
			Enabled: cfg.PlotEnabled,
			Width:   cfg.PlotWidth,
			Height:  cfg.PlotHeight,
		}, logger),
	}

	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Open(ctx, cfg.CatalogPath)
		if err != nil {
			logger.Error("failed to open catalog", "error", err, "path", cfg.CatalogPath)
			return 1
		}
		defer func() {
			if err := cat.Close(); err != nil {
				logger.Error("catalog close error", "error", err)
			}
		}()
		loaders = append(loaders, cat)
		logger.Info("run catalog enabled", "path", cfg.CatalogPath)
	}

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaPublishTimeout, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka summaries enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(
		csvsource.NewReader(cfg.InputPath, logger),
		pipeline.NewTransformer(cfg.Params(), cfg.MassBalanceTolerance, logger, metrics),
		loaders,
		logger,
		metrics,
	)

	report, runErr := p.Run(ctx)

	if cat != nil && !report.StartedAt.IsZero() {
		if err := cat.RecordRun(context.Background(), catalogRun(report)); err != nil {
			logger.Error("failed to record run", "error", err, "run_id", report.RunID)
		}
	}
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "error", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Info("run interrupted", "loaded", report.Loaded, "failed", len(report.Failures))
			return 130
		}
		logger.Error("run failed", "error", runErr)
		return 1
	}

	printSummary(report, cfg.OutputDir)
	return 0
}

func catalogRun(r pipeline.Report) catalog.Run {
	run := catalog.Run{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		LakesRead:  r.Read,
		Loaded:     r.Loaded,
	}
	for _, f := range r.Failures {
		run.Failures = append(run.Failures, catalog.Failure{
			Line:  f.Line,
			Lake:  f.Lake,
			Stage: f.Stage,
			Error: f.Err.Error(),
		})
	}
	return run
}

func printSummary(r pipeline.Report, outputDir string) {
	fmt.Printf("Processed %d of %d lakes into %s\n", r.Loaded, r.Read, outputDir)
	for _, f := range r.Failures {
		fmt.Printf("  skipped line %d (%s) [%s]: %v\n", f.Line, f.Lake, f.Stage, f.Err)
	}
	if len(r.Failures) == 0 {
		fmt.Println("All lakes processed.")
	}
}
