package kafka

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	h := domain.Hydrograph{
		Lake:          domain.Lake{Name: "Imja", Area: 1_000_000},
		Params:        domain.DefaultParams(),
		BreachTimes:   []float64{0.55, 1.2},
		VolumeRelease: 26322110.5,
		PeakDischarge: 6215.26,
		Samples:       []domain.Sample{{T: 0}, {T: 0.1, Q: 1.08, V: 0.0008}},
		RunID:         "run-1",
		ProcessedAt:   now,
	}

	msg, err := serializeToMessage(h)
	require.NoError(t, err)

	assert.Equal(t, []byte("Imja"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "lake", msg.Headers[0].Key)
	assert.Equal(t, []byte("Imja"), msg.Headers[0].Value)
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[1].Value)
	assert.Equal(t, "processed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.InDelta(t, 26322110.5, body["volume_release_m3"], 1e-6)
	assert.Equal(t, []any{0.55, 1.2}, body["breach_times"])
	assert.NotContains(t, body, "Samples", "series is not published")
	assert.NotContains(t, body, "samples")
}

func TestSerializeToMessage_NonFinite(t *testing.T) {
	_, err := serializeToMessage(domain.Hydrograph{Drift: math.NaN()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize hydrograph summary")
}
