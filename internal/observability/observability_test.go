package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("mass balance drift", "lake", "Imja")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "mass balance drift", line["msg"])
	assert.Equal(t, "Imja", line["lake"])
}

func TestNewLogger_TextDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "bogus", "text")

	logger.Debug("hidden")
	logger.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.LakesFailed.WithLabelValues(StageInput).Inc()
	a.LakesRead.Add(3)

	assert.InDelta(t, 1.0, testutil.ToFloat64(a.LakesFailed.WithLabelValues(StageInput)), 1e-12)
	assert.InDelta(t, 3.0, testutil.ToFloat64(a.LakesRead), 1e-12)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.LakesRead), 1e-12)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.LakesLoaded.Add(2)

	path := filepath.Join(t.TempDir(), "glof.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "glof_lakes_loaded_total 2")
	assert.Contains(t, string(data), "# TYPE glof_lake_processing_duration_seconds histogram")
}
