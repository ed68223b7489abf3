// Package domain models empirical glacial lake outburst flood (GLOF)
// hydrographs derived from a lake's surface area.
//
// # Input
//
// Lakes arrive as rows of a delimited table with at least the columns
// "Lake Name" and "Area (m^2)". Two optional columns override the run-wide
// defaults for a single lake: "Fraction" (share of the lake volume released)
// and "Breach Width (m)". Rows are parsed by [ParseRawLake].
//
// # Estimation
//
// All quantities are SI: areas in m², depths and widths in m, volumes in m³,
// times in s and discharges in m³/s. Nothing is unit-checked.
//
//	Volume:    14 published volume–area regressions, each scaled by the
//	           release fraction. Mean depth per candidate = volume / area.
//	Breach:    depth = median of the candidate mean depths,
//	           volume release = median of the candidate volumes.
//	Duration:  6 breach-time regressions. Reported only; the discharge
//	           curve does not consume them.
//	Peak:      16 peak-discharge regressions, Qmax = median.
//
// Medians of an even-sized candidate list average the two middle values.
//
// # Discharge Curve
//
// The hydrograph is a single-parameter exponential pulse
//
//	Q(t) = (Vr / a²) · t · exp(−t / a),   a = Vr / (Qmax · e)
//
// which peaks at t = a with Q(a) = Qmax and integrates to Vr over [0, ∞).
// Velocity is V(t) = Q(t) / (breach width · breach depth). The curve is
// sampled on a fixed grid (default 0–10000 s, step 0.1 s) and the last
// sample is forced to zero to close the curve at the end of the horizon.
//
// The persisted series skips the first sample (t = start). See
// [Hydrograph.RetainedSamples].
//
// # Degeneracy
//
// Non-positive or absurd areas yield NaN or negative intermediate values.
// [Estimate] detects these and returns an error wrapping [ErrDegenerate]
// instead of a curve. Truncating the analytic tail at the end of the horizon
// loses some volume; [MassBalanceDrift] measures how much.
package domain
