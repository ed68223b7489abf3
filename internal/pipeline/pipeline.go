package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	"github.com/couchcryptid/glof-hydrograph/internal/observability"
	"github.com/google/uuid"
)

// ErrOutput marks a failure to persist or publish a lake's results.
var ErrOutput = errors.New("output failure")

// Extractor reads every raw lake row from the source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawLake, error)
}

// Transformer converts a raw row into an estimated hydrograph.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawLake) (domain.Hydrograph, error)
}

// Loader persists or publishes one hydrograph.
type Loader interface {
	Load(ctx context.Context, h domain.Hydrograph) error
}

// Chain runs loaders in order and stops at the first failure. Outputs written
// by earlier loaders are not rolled back; the returned *ChainError records how
// many completed.
type Chain []Loader

func (c Chain) Load(ctx context.Context, h domain.Hydrograph) error {
	for i, l := range c {
		if err := l.Load(ctx, h); err != nil {
			return &ChainError{Written: i, Err: err}
		}
	}
	return nil
}

// ChainError is a loader failure inside a Chain.
type ChainError struct {
	// Written counts the loaders that succeeded before the failure.
	Written int
	Err     error
}

func (e *ChainError) Error() string {
	if e.Written == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (%d earlier outputs kept)", e.Err, e.Written)
}

func (e *ChainError) Unwrap() error { return e.Err }

// Failure records why one lake was skipped.
type Failure struct {
	Line  int
	Lake  string
	Stage string // one of the observability.Stage* constants
	Err   error
	// Written counts outputs already persisted for the lake when a later
	// loader failed.
	Written int
}

// Report summarizes a run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Read       int
	Loaded     int
	Failures   []Failure
}

// Pipeline orchestrates the extract-transform-load batch. Lakes are handled
// one at a time in input order; a failing lake never stops the others.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run processes every row once. It returns an error only when the source
// cannot be read or ctx is cancelled; per-lake failures land in the report.
func (p *Pipeline) Run(ctx context.Context) (report Report, err error) {
	report = Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger := p.logger.With("run_id", report.RunID)
	defer func() {
		report.FinishedAt = time.Now()
		p.metrics.RunDuration.Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
		p.metrics.LastRunTimestamp.Set(float64(report.FinishedAt.Unix()))
	}()

	rows, err := p.extractor.Extract(ctx)
	if err != nil {
		return report, fmt.Errorf("extract lakes: %w", err)
	}
	report.Read = len(rows)
	p.metrics.LakesRead.Add(float64(len(rows)))
	logger.Info("pipeline started", "lakes", len(rows))

	for _, raw := range rows {
		if err := ctx.Err(); err != nil {
			logger.Info("pipeline stopping", "reason", err, "remaining", report.Read-report.Loaded-len(report.Failures))
			return report, err
		}

		if f, ok := p.processLake(ctx, logger, raw, report.RunID); !ok {
			report.Failures = append(report.Failures, f)
			continue
		}
		report.Loaded++
	}

	logger.Info("pipeline finished",
		"loaded", report.Loaded,
		"failed", len(report.Failures),
	)
	return report, nil
}

// processLake runs transform and load for one row. It returns false with the
// failure when the lake was skipped.
func (p *Pipeline) processLake(ctx context.Context, logger *slog.Logger, raw domain.RawLake, runID string) (Failure, bool) {
	start := time.Now()
	name := raw.Fields[domain.ColumnName]

	h, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		stage := observability.StageInput
		if errors.Is(err, domain.ErrDegenerate) {
			stage = observability.StageDegenerate
		}
		logger.Warn("transform failed, skipping lake", "error", err, "line", raw.Line, "lake", name, "stage", stage)
		p.metrics.LakesFailed.WithLabelValues(stage).Inc()
		return Failure{Line: raw.Line, Lake: name, Stage: stage, Err: err}, false
	}
	h.RunID = runID

	if err := p.loader.Load(ctx, h); err != nil {
		var written int
		var ce *ChainError
		if errors.As(err, &ce) {
			written = ce.Written
		}
		err = fmt.Errorf("%w: lake %q: %w", ErrOutput, h.Lake.Name, err)
		logger.Error("load failed, skipping lake", "error", err, "line", raw.Line, "lake", h.Lake.Name, "outputs_written", written)
		p.metrics.LakesFailed.WithLabelValues(observability.StageOutput).Inc()
		return Failure{Line: raw.Line, Lake: h.Lake.Name, Stage: observability.StageOutput, Err: err, Written: written}, false
	}

	p.metrics.LakesLoaded.Inc()
	p.metrics.PeakDischarge.Observe(h.PeakDischarge)
	p.metrics.LakeDuration.Observe(time.Since(start).Seconds())
	logger.Info("lake processed",
		"lake", h.Lake.Name,
		"volume_m3", int64(h.VolumeRelease),
		"peak_discharge_m3s", int64(h.PeakDischarge),
	)
	return Failure{}, true
}
