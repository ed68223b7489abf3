package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	"github.com/couchcryptid/glof-hydrograph/internal/observability"
)

// HydrographTransformer implements Transformer using the domain estimator.
type HydrographTransformer struct {
	defaults  domain.Params
	tolerance float64
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewTransformer creates a HydrographTransformer. defaults apply to rows
// without override columns; tolerance bounds the acceptable mass-balance drift
// before a warning is logged.
func NewTransformer(defaults domain.Params, tolerance float64, logger *slog.Logger, metrics *observability.Metrics) *HydrographTransformer {
	return &HydrographTransformer{
		defaults:  defaults,
		tolerance: tolerance,
		logger:    logger,
		metrics:   metrics,
	}
}

func (t *HydrographTransformer) Transform(_ context.Context, raw domain.RawLake) (domain.Hydrograph, error) {
	lake, params, err := domain.ParseRawLake(raw, t.defaults)
	if err != nil {
		return domain.Hydrograph{}, err
	}

	h, err := domain.Estimate(lake, params)
	if err != nil {
		return domain.Hydrograph{}, err
	}

	// Breach times are reported only; the curve does not depend on them.
	t.logger.Debug("breach estimate",
		"lake", lake.Name,
		"breach_depth_m", h.BreachDepth,
		"breach_times", h.BreachTimes,
		"decay_constant_s", h.DecayConstant,
	)

	h.Drift = domain.MassBalanceDrift(h)
	if h.Drift > t.tolerance {
		t.logger.Warn("hydrograph volume drifts from estimate",
			"lake", lake.Name,
			"drift", h.Drift,
			"tolerance", t.tolerance,
			"horizon_s", params.Grid.End,
			"decay_constant_s", h.DecayConstant,
		)
		t.metrics.MassBalanceWarnings.Inc()
	}

	return h, nil
}
