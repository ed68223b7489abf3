package domain

import (
	"fmt"
	"math"
	"time"
)

// Column names recognised in the input table.
const (
	ColumnName        = "Lake Name"
	ColumnArea        = "Area (m^2)"
	ColumnFraction    = "Fraction"
	ColumnBreachWidth = "Breach Width (m)"
)

// Defaults applied when neither configuration nor the input row override them.
const (
	DefaultFraction    = 0.8
	DefaultBreachWidth = 50.0
	DefaultTimeStart   = 0.0
	DefaultTimeEnd     = 10000.0
	DefaultTimeStep    = 0.1

	// MaxSamples bounds the length of a sampled curve.
	MaxSamples = 100_000_000
)

// RawLake is one unparsed row of the input table.
type RawLake struct {
	Line   int
	Fields map[string]string
}

// Lake is a parsed input row.
type Lake struct {
	Name string  `json:"name"`
	Area float64 `json:"area_m2"`
}

// TimeGrid is the sampling horizon of the discharge curve: [Start, End) in
// increments of Step seconds.
type TimeGrid struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Step  float64 `json:"step"`
}

// Len returns the number of samples on the grid, or 0 when the grid is
// empty, non-finite or longer than MaxSamples.
func (g TimeGrid) Len() int {
	if g.Step <= 0 || g.End <= g.Start {
		return 0
	}
	n := (g.End - g.Start) / g.Step
	if math.IsNaN(n) || n > MaxSamples {
		return 0
	}
	// Ceiling, tolerant of quotients like 10000/0.1 that land a rounding
	// error above an integer.
	return int(n + 1 - 1e-9)
}

// At returns the time of sample i.
func (g TimeGrid) At(i int) float64 {
	return g.Start + float64(i)*g.Step
}

// Params are the knobs of a single estimate.
type Params struct {
	Fraction    float64  `json:"fraction"`
	BreachWidth float64  `json:"breach_width_m"`
	Grid        TimeGrid `json:"grid"`
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		Fraction:    DefaultFraction,
		BreachWidth: DefaultBreachWidth,
		Grid: TimeGrid{
			Start: DefaultTimeStart,
			End:   DefaultTimeEnd,
			Step:  DefaultTimeStep,
		},
	}
}

// Validate rejects parameters outside their documented ranges.
func (p Params) Validate() error {
	if p.Fraction <= 0 || p.Fraction > 1 {
		return fmt.Errorf("fraction must be in (0, 1], got %g", p.Fraction)
	}
	if p.BreachWidth <= 0 {
		return fmt.Errorf("breach width must be positive, got %g", p.BreachWidth)
	}
	if p.Grid.Start < 0 {
		return fmt.Errorf("time start must not be negative, got %g", p.Grid.Start)
	}
	if p.Grid.Step <= 0 {
		return fmt.Errorf("time step must be positive, got %g", p.Grid.Step)
	}
	for _, v := range []float64{p.Grid.Start, p.Grid.End, p.Grid.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("time grid must be finite, got start=%g end=%g step=%g", p.Grid.Start, p.Grid.End, p.Grid.Step)
		}
	}
	if p.Grid.End <= p.Grid.Start {
		return fmt.Errorf("time end (%g) must be after time start (%g)", p.Grid.End, p.Grid.Start)
	}
	if n := (p.Grid.End - p.Grid.Start) / p.Grid.Step; n > MaxSamples {
		return fmt.Errorf("time grid has %.3g samples, limit is %d", n, MaxSamples)
	}
	return nil
}

// Sample is one point of the discharge curve.
type Sample struct {
	T float64 `json:"t"`
	Q float64 `json:"q"`
	V float64 `json:"v"`
}

// Hydrograph is the complete result of estimating one lake.
type Hydrograph struct {
	Lake   Lake   `json:"lake"`
	Params Params `json:"params"`

	Volumes     []float64 `json:"volumes"`
	MeanDepths  []float64 `json:"mean_depths"`
	BreachTimes []float64 `json:"breach_times"`
	Discharges  []float64 `json:"discharges"`

	BreachDepth   float64 `json:"breach_depth_m"`
	VolumeRelease float64 `json:"volume_release_m3"`
	PeakDischarge float64 `json:"peak_discharge_m3s"`
	DecayConstant float64 `json:"decay_constant_s"`

	// Drift is the relative volume lost to sampling and truncation, set by
	// the pipeline from MassBalanceDrift.
	Drift float64 `json:"mass_balance_drift"`

	Samples []Sample `json:"-"`

	RunID       string    `json:"run_id,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// RetainedSamples returns the samples that are persisted. The first sample
// (t = start) is dropped, matching the historical output tables.
func (h Hydrograph) RetainedSamples() []Sample {
	if len(h.Samples) == 0 {
		return nil
	}
	return h.Samples[1:]
}

// Title is the plot caption, with volume and peak discharge truncated toward zero.
func (h Hydrograph) Title() string {
	return fmt.Sprintf("Lake %s - Model Hydrograph (Estimated Volume: %d, Peak Discharge: %d)",
		h.Lake.Name, int64(h.VolumeRelease), int64(h.PeakDischarge))
}
