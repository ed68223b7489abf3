package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	"github.com/couchcryptid/glof-hydrograph/internal/observability"
	"github.com/couchcryptid/glof-hydrograph/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	rows []domain.RawLake
	err  error
}

func (m *mockExtractor) Extract(_ context.Context) ([]domain.RawLake, error) {
	return m.rows, m.err
}

type mockLoader struct {
	loaded []domain.Hydrograph
	failOn map[string]error
}

func (m *mockLoader) Load(_ context.Context, h domain.Hydrograph) error {
	if err := m.failOn[h.Lake.Name]; err != nil {
		return err
	}
	m.loaded = append(m.loaded, h)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// shortParams keeps the sampled series small so tests stay fast.
func shortParams() domain.Params {
	p := domain.DefaultParams()
	p.Grid.End = 200
	return p
}

func row(line int, name, area string) domain.RawLake {
	return domain.RawLake{Line: line, Fields: map[string]string{
		domain.ColumnName: name,
		domain.ColumnArea: area,
	}}
}

func newPipeline(rows []domain.RawLake, ldr pipeline.Loader, metrics *observability.Metrics) *pipeline.Pipeline {
	tfm := pipeline.NewTransformer(shortParams(), 1.0, discardLogger(), metrics)
	return pipeline.New(&mockExtractor{rows: rows}, tfm, ldr, discardLogger(), metrics)
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	metrics := observability.NewMetrics()
	ldr := &mockLoader{}
	p := newPipeline([]domain.RawLake{
		row(2, "Imja", "1000000"),
		row(3, "Tsho Rolpa", "1540000"),
	}, ldr, metrics)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Read)
	assert.Equal(t, 2, report.Loaded)
	assert.Empty(t, report.Failures)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "Imja", ldr.loaded[0].Lake.Name)
	assert.Equal(t, "Tsho Rolpa", ldr.loaded[1].Lake.Name)
	assert.Equal(t, report.RunID, ldr.loaded[0].RunID)

	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.LakesRead), 1e-12)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.LakesLoaded), 1e-12)
}

func TestPipeline_Run_BadRowDoesNotStopLaterRows(t *testing.T) {
	metrics := observability.NewMetrics()
	ldr := &mockLoader{}
	p := newPipeline([]domain.RawLake{
		row(2, "Imja", "1000000"),
		row(3, "Broken", "not-a-number"),
		row(4, "", "5000"),
		row(5, "Dry", "0"),
		row(6, "Tsho Rolpa", "1540000"),
	}, ldr, metrics)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Read)
	assert.Equal(t, 2, report.Loaded)
	require.Len(t, report.Failures, 3)

	assert.Equal(t, 3, report.Failures[0].Line)
	assert.Equal(t, "Broken", report.Failures[0].Lake)
	assert.Equal(t, observability.StageInput, report.Failures[0].Stage)
	assert.True(t, errors.Is(report.Failures[0].Err, domain.ErrInvalidRow))

	assert.Equal(t, observability.StageInput, report.Failures[1].Stage)

	assert.Equal(t, "Dry", report.Failures[2].Lake)
	assert.Equal(t, observability.StageDegenerate, report.Failures[2].Stage)
	assert.True(t, errors.Is(report.Failures[2].Err, domain.ErrDegenerate))

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "Tsho Rolpa", ldr.loaded[1].Lake.Name)

	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.LakesFailed.WithLabelValues(observability.StageInput)), 1e-12)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.LakesFailed.WithLabelValues(observability.StageDegenerate)), 1e-12)
}

func TestPipeline_Run_OutputFailureIsolated(t *testing.T) {
	metrics := observability.NewMetrics()
	diskFull := errors.New("no space left on device")
	ldr := &mockLoader{failOn: map[string]error{"Imja": diskFull}}
	p := newPipeline([]domain.RawLake{
		row(2, "Imja", "1000000"),
		row(3, "Tsho Rolpa", "1540000"),
	}, ldr, metrics)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Loaded)
	require.Len(t, report.Failures, 1)
	f := report.Failures[0]
	assert.Equal(t, observability.StageOutput, f.Stage)
	assert.True(t, errors.Is(f.Err, pipeline.ErrOutput))
	assert.True(t, errors.Is(f.Err, diskFull))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.LakesFailed.WithLabelValues(observability.StageOutput)), 1e-12)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	metrics := observability.NewMetrics()
	tfm := pipeline.NewTransformer(shortParams(), 1.0, discardLogger(), metrics)
	p := pipeline.New(&mockExtractor{err: errors.New("permission denied")}, tfm, &mockLoader{}, discardLogger(), metrics)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract lakes")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := newPipeline([]domain.RawLake{row(2, "Imja", "1000000")}, ldr, observability.NewMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Loaded)
	assert.Empty(t, ldr.loaded)
}

func TestChain_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	first := &mockLoader{}
	failing := &mockLoader{failOn: map[string]error{"Imja": boom}}
	last := &mockLoader{}

	err := pipeline.Chain{first, failing, last}.Load(context.Background(), domain.Hydrograph{Lake: domain.Lake{Name: "Imja"}})
	require.ErrorIs(t, err, boom)
	assert.Len(t, first.loaded, 1)
	assert.Empty(t, last.loaded)

	var ce *pipeline.ChainError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Written)
	assert.Contains(t, err.Error(), "1 earlier outputs kept")
}

func TestPipeline_Run_PartialOutputReported(t *testing.T) {
	metrics := observability.NewMetrics()
	files := &mockLoader{}
	catalog := &mockLoader{failOn: map[string]error{"Imja": errors.New("database is locked")}}
	p := newPipeline([]domain.RawLake{
		row(2, "Imja", "1000000"),
		row(3, "Dig Tsho", "500000"),
	}, pipeline.Chain{files, catalog}, metrics)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Loaded)
	require.Len(t, report.Failures, 1)

	f := report.Failures[0]
	assert.Equal(t, observability.StageOutput, f.Stage)
	assert.Equal(t, 1, f.Written, "files were written before the catalog failed")
	require.ErrorIs(t, f.Err, pipeline.ErrOutput)
	assert.Len(t, files.loaded, 2)
}

func TestHydrographTransformer_Transform(t *testing.T) {
	metrics := observability.NewMetrics()
	tfm := pipeline.NewTransformer(domain.DefaultParams(), 0.02, discardLogger(), metrics)

	h, err := tfm.Transform(context.Background(), row(2, "Imja", "1000000"))
	require.NoError(t, err)
	assert.Equal(t, "Imja", h.Lake.Name)
	assert.Positive(t, h.PeakDischarge)
	assert.Less(t, h.Drift, 0.02)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.MassBalanceWarnings), 1e-12)
}

func TestHydrographTransformer_MassBalanceWarning(t *testing.T) {
	metrics := observability.NewMetrics()
	tfm := pipeline.NewTransformer(domain.DefaultParams(), 0.02, discardLogger(), metrics)

	h, err := tfm.Transform(context.Background(), row(2, "Huge", "100000000"))
	require.NoError(t, err, "drift is a warning, not a failure")
	assert.Greater(t, h.Drift, 0.02)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.MassBalanceWarnings), 1e-12)
}

func TestHydrographTransformer_RowOverrides(t *testing.T) {
	tfm := pipeline.NewTransformer(shortParams(), 1.0, discardLogger(), observability.NewMetrics())

	raw := row(2, "Imja", "1000000")
	raw.Fields[domain.ColumnBreachWidth] = "30"
	h, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, h.Params.BreachWidth, 1e-12)
	assert.InDelta(t, 0.8, h.Params.Fraction, 1e-12)
}
