package domain

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Estimate runs the full hydrograph procedure for one lake. It returns an
// error wrapping ErrDegenerate when any candidate, median or sample is not a
// finite number, or when a median that must be positive is not.
func Estimate(lake Lake, p Params) (Hydrograph, error) {
	if err := p.Validate(); err != nil {
		return Hydrograph{}, fmt.Errorf("estimate %q: %w", lake.Name, err)
	}

	volumes := volumeCandidates(lake.Area)
	depths := make([]float64, len(volumes))
	for i := range volumes {
		volumes[i] *= p.Fraction
		depths[i] = volumes[i] / lake.Area
	}

	h := Hydrograph{
		Lake:          lake,
		Params:        p,
		Volumes:       volumes,
		MeanDepths:    depths,
		BreachDepth:   Median(depths),
		VolumeRelease: Median(volumes),
		ProcessedAt:   clock.Now().UTC(),
	}

	h.BreachTimes = breachTimeCandidates(p.BreachWidth, h.BreachDepth, h.VolumeRelease)
	h.Discharges = dischargeCandidates(p.BreachWidth, h.BreachDepth, h.VolumeRelease)
	h.PeakDischarge = Median(h.Discharges)

	if err := checkCandidates(h); err != nil {
		return Hydrograph{}, fmt.Errorf("estimate %q: %w", lake.Name, err)
	}

	h.DecayConstant = h.VolumeRelease / (h.PeakDischarge * math.E)
	h.Samples = sampleCurve(h.VolumeRelease, h.DecayConstant, p.BreachWidth*h.BreachDepth, p.Grid)

	if err := checkSamples(h.Samples); err != nil {
		return Hydrograph{}, fmt.Errorf("estimate %q: %w", lake.Name, err)
	}
	return h, nil
}

// Median returns the median of values without modifying the slice. An even
// count averages the two middle values. An empty slice yields NaN.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleCurve evaluates Q(t) = (vr/a²)·t·exp(−t/a) on the grid, derives the
// breach velocity from the flow area, and zeroes the final sample.
func sampleCurve(vr, a, flowArea float64, g TimeGrid) []Sample {
	n := g.Len()
	samples := make([]Sample, n)
	scale := vr / (a * a)
	for i := range samples {
		t := g.At(i)
		q := scale * t * math.Exp(-t/a)
		samples[i] = Sample{T: t, Q: q, V: q / flowArea}
	}
	if n > 0 {
		samples[n-1].Q = 0
		samples[n-1].V = 0
	}
	return samples
}

// MassBalanceDrift integrates the sampled discharge with the trapezoidal
// rule and returns its relative deviation from the released volume.
func MassBalanceDrift(h Hydrograph) float64 {
	if len(h.Samples) < 2 || h.VolumeRelease == 0 {
		return math.NaN()
	}
	t := make([]float64, len(h.Samples))
	q := make([]float64, len(h.Samples))
	for i, s := range h.Samples {
		t[i] = s.T
		q[i] = s.Q
	}
	total := integrate.Trapezoidal(t, q)
	return math.Abs(total-h.VolumeRelease) / h.VolumeRelease
}

// PeakSample returns the sample with the largest discharge.
func PeakSample(h Hydrograph) (Sample, bool) {
	if len(h.Samples) == 0 {
		return Sample{}, false
	}
	q := make([]float64, len(h.Samples))
	for i, s := range h.Samples {
		q[i] = s.Q
	}
	return h.Samples[floats.MaxIdx(q)], true
}

func checkCandidates(h Hydrograph) error {
	groups := []struct {
		name   string
		values []float64
	}{
		{"volume", h.Volumes},
		{"mean depth", h.MeanDepths},
		{"breach time", h.BreachTimes},
		{"peak discharge", h.Discharges},
	}
	for _, g := range groups {
		for i, v := range g.values {
			if !isFinitePositive(v) {
				return fmt.Errorf("%w: %s candidate %d is %g", ErrDegenerate, g.name, i, v)
			}
		}
	}
	switch {
	case !isFinitePositive(h.BreachDepth):
		return fmt.Errorf("%w: breach depth is %g", ErrDegenerate, h.BreachDepth)
	case !isFinitePositive(h.VolumeRelease):
		return fmt.Errorf("%w: volume release is %g", ErrDegenerate, h.VolumeRelease)
	case !isFinitePositive(h.PeakDischarge):
		return fmt.Errorf("%w: peak discharge is %g", ErrDegenerate, h.PeakDischarge)
	}
	return nil
}

func checkSamples(samples []Sample) error {
	if len(samples) < 2 {
		return fmt.Errorf("%w: time grid yields %d samples", ErrDegenerate, len(samples))
	}
	for i, s := range samples {
		if math.IsNaN(s.Q) || math.IsInf(s.Q, 0) || s.Q < 0 ||
			math.IsNaN(s.V) || math.IsInf(s.V, 0) || s.V < 0 {
			return fmt.Errorf("%w: sample %d at t=%g has Q=%g V=%g", ErrDegenerate, i, s.T, s.Q, s.V)
		}
	}
	return nil
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
