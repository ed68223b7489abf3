package pipeline_test

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/couchcryptid/glof-hydrograph/internal/adapter/catalog"
	"github.com/couchcryptid/glof-hydrograph/internal/adapter/csvsource"
	"github.com/couchcryptid/glof-hydrograph/internal/adapter/fsstore"
	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	"github.com/couchcryptid/glof-hydrograph/internal/observability"
	"github.com/couchcryptid/glof-hydrograph/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var titleRe = regexp.MustCompile(`^Lake Imja - Model Hydrograph \(Estimated Volume: (\d+), Peak Discharge: (\d+)\)$`)

func TestEndToEnd_CSVToFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input := filepath.Join(dir, "lakes.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"Lake Name,Area (m^2)\n"+
			"Imja,1000000\n"+
			"Broken,??\n"+
			"Small,250000\n",
	), 0o600))
	outDir := filepath.Join(dir, "hydrograph_outputs")

	metrics := observability.NewMetrics()
	store := fsstore.NewStore(outDir, fsstore.PlotOptions{Enabled: true, Width: 12, Height: 6}, discardLogger())
	cat, err := catalog.Open(ctx, filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	p := pipeline.New(
		csvsource.NewReader(input, discardLogger()),
		pipeline.NewTransformer(domain.DefaultParams(), 0.02, discardLogger(), metrics),
		pipeline.Chain{store, cat},
		discardLogger(),
		metrics,
	)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Read)
	assert.Equal(t, 2, report.Loaded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Broken", report.Failures[0].Lake)

	// Table: first retained row is t = 0.1 with positive discharge.
	f, err := os.Open(store.TablePath("Imja"))
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	assert.Equal(t, "T\tQ\tV", sc.Text())
	require.True(t, sc.Scan())
	cols := strings.Split(sc.Text(), "\t")
	require.Len(t, cols, 3)
	assert.Equal(t, "0.1", cols[0])
	q, err := strconv.ParseFloat(cols[1], 64)
	require.NoError(t, err)
	assert.Positive(t, q)

	_, err = os.Stat(store.PlotPath("Imja"))
	require.NoError(t, err)
	_, err = os.Stat(store.PlotPath("Small"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "Broken"))
	assert.True(t, os.IsNotExist(err), "failed lakes leave no directory")

	// Catalog: title values are positive integers.
	summaries, err := cat.Summaries(ctx, report.RunID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	imja := domain.Hydrograph{
		Lake:          domain.Lake{Name: summaries[0].Lake},
		VolumeRelease: summaries[0].VolumeRelease,
		PeakDischarge: summaries[0].PeakDischarge,
	}
	m := titleRe.FindStringSubmatch(imja.Title())
	require.NotNil(t, m, imja.Title())
	for _, s := range m[1:] {
		n, err := strconv.ParseInt(s, 10, 64)
		require.NoError(t, err)
		assert.Positive(t, n)
	}
}
