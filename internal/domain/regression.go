package domain

import "math"

// volumeCandidates evaluates the published volume–area regressions for a
// lake area in m². Results are unscaled lake volumes in m³.
func volumeCandidates(area float64) []float64 {
	a := area
	km2 := a * 1e-6
	return []float64{
		0.035 * math.Pow(a, 1.5),
		0.104 * math.Pow(a, 1.42),
		0.0354 * math.Pow(a, 1.3742),
		a * (0.087 * math.Pow(a, 0.434)),
		a * (55 * math.Pow(km2, 0.25)),
		0.2933 * math.Pow(a, 1.3324),
		0.054393 * math.Pow(a, 1.483009),
		a * (0.1217 * math.Pow(a, 0.4129)),
		a * 0.5057 * math.Pow(a, 0.2884),
		a * 0.1746 * math.Pow(a, 0.3725),
		a * 0.3211 * math.Pow(a, 0.324),
		a * 0.1697 * math.Pow(a, 0.3778),
		0.036 * math.Pow(a, 1.49),
		42.95 * math.Pow(km2, 1.408) * 1e6,
	}
}

// breachTimeCandidates evaluates the breach-time regressions. Values are
// carried on the result for reporting; the discharge curve does not use them.
func breachTimeCandidates(width, depth, volume float64) []float64 {
	return []float64{
		0.011 * width,
		0.015 * depth,
		0.02*depth + 0.25,
		width / (4 * depth),
		width / (4*depth + 61),
		0.00254 * math.Pow(volume, 0.53) * math.Pow(depth, -0.9),
	}
}

// dischargeCandidates evaluates the peak-discharge regressions in m³/s.
func dischargeCandidates(width, depth, volume float64) []float64 {
	dv := depth * volume
	return []float64{
		1.268 * math.Pow(depth+0.3, 2.5),
		(8.0 / 27.0) * math.Sqrt(9.8) * math.Pow(depth, 1.5) * width,
		16.6 * math.Pow(depth, 1.85),
		0.54 * width,
		19.1 * math.Pow(depth, 1.85),
		13.4 * math.Pow(depth, 1.89),
		1.776 * math.Pow(volume, 0.47),
		1.122 * math.Pow(volume, 0.57),
		0.981 * math.Pow(dv, 0.42),
		2.634 * math.Pow(dv, 0.44),
		44 * math.Pow(depth, 1.63),
		325 * math.Pow(dv*1e-6, 0.44),
		0.72 * math.Pow(volume, 0.53),
		1.154 * math.Pow(dv, 0.412),
		3.85 * math.Pow(dv, 0.411),
		0.607 * (math.Pow(depth, 1.24) * math.Pow(volume, 0.295)),
	}
}
