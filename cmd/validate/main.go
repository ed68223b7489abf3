// Command validate checks the artifacts of a hydrograph run against its input
// table: every lake has a well-formed discharge table, the curve obeys the
// model's shape, and the stored values match a fresh estimate.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -lakes data/mock/lakes.csv \
//	  -output-dir hydrograph_outputs \
//	  -require-plot
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/glof-hydrograph/internal/adapter/csvsource"
	"github.com/couchcryptid/glof-hydrograph/internal/adapter/fsstore"
	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// lakeResult pairs an input lake with its parsed output table.
type lakeResult struct {
	lake   domain.Lake
	params domain.Params
	table  []domain.Sample
	err    error
}

func main() {
	lakesPath := flag.String("lakes", "", "input lake table used for the run")
	outputDir := flag.String("output-dir", "hydrograph_outputs", "directory holding one folder per lake")
	fraction := flag.Float64("fraction", domain.DefaultFraction, "fraction used for the run")
	breachWidth := flag.Float64("breach-width", domain.DefaultBreachWidth, "breach width used for the run")
	tolerance := flag.Float64("tolerance", 0.02, "allowed relative mass-balance drift")
	requirePlot := flag.Bool("require-plot", false, "fail when a lake has no plot")
	flag.Parse()

	if *lakesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	defaults := domain.DefaultParams()
	defaults.Fraction = *fraction
	defaults.BreachWidth = *breachWidth

	if code := run(*lakesPath, *outputDir, defaults, *tolerance, *requirePlot); code != 0 {
		os.Exit(code)
	}
}

func run(lakesPath, outputDir string, defaults domain.Params, tolerance float64, requirePlot bool) int {
	fmt.Println("=== Hydrograph Output Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rows, err := csvsource.NewReader(lakesPath, logger).Extract(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load lake table: %v\n", err)
		return 1
	}
	store := fsstore.NewStore(outputDir, fsstore.PlotOptions{}, logger)

	results := loadResults(rows, defaults, store)

	// ── Run validation phases ──
	phases := []*phase{
		validatePresence(results, store, requirePlot),
		validateCurveShape(results),
		validateEstimateParity(results, tolerance),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Lakes: %d rows, %d tables read\n", len(rows), countTables(results))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadResults(rows []domain.RawLake, defaults domain.Params, store *fsstore.Store) []lakeResult {
	var results []lakeResult
	for _, raw := range rows {
		lake, params, err := domain.ParseRawLake(raw, defaults)
		if err != nil {
			// Rows the pipeline rejects produce no artifacts.
			continue
		}
		r := lakeResult{lake: lake, params: params}
		r.table, r.err = readTable(store.TablePath(lake.Name))
		results = append(results, r)
	}
	return results
}

func readTable(path string) ([]domain.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return nil, fmt.Errorf("empty table")
	}
	if got := sc.Text(); got != "T\tQ\tV" {
		return nil, fmt.Errorf("header %q, want %q", got, "T\tQ\tV")
	}

	var samples []domain.Sample
	line := 1
	for sc.Scan() {
		line++
		cols := strings.Split(sc.Text(), "\t")
		if len(cols) != 3 {
			return nil, fmt.Errorf("line %d: %d columns", line, len(cols))
		}
		var vals [3]float64
		for i, c := range cols {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vals[i] = v
		}
		samples = append(samples, domain.Sample{T: vals[0], Q: vals[1], V: vals[2]})
	}
	return samples, sc.Err()
}

func countTables(results []lakeResult) int {
	n := 0
	for _, r := range results {
		if r.err == nil {
			n++
		}
	}
	return n
}

// ── Phase 1: Presence ──
// Every estimable lake has a readable table and, if required, a plot.

func validatePresence(results []lakeResult, store *fsstore.Store, requirePlot bool) *phase {
	p := &phase{name: "Phase 1: Artifact Presence"}
	for _, r := range results {
		if _, err := domain.Estimate(r.lake, r.params); err != nil {
			// Degenerate lakes are skipped by the pipeline.
			continue
		}
		if r.err != nil {
			p.errorf("%s: table: %v", r.lake.Name, r.err)
			continue
		}
		if requirePlot {
			if _, err := os.Stat(store.PlotPath(r.lake.Name)); err != nil {
				p.errorf("%s: plot: %v", r.lake.Name, err)
			}
		}
	}
	return p
}

// ── Phase 2: Curve Shape ──
// Uniform increasing time, non-negative discharge, zeroed final sample, and a
// constant discharge-to-velocity ratio.

func validateCurveShape(results []lakeResult) *phase {
	p := &phase{name: "Phase 2: Curve Shape"}
	for _, r := range results {
		if r.err != nil || len(r.table) == 0 {
			continue
		}
		name := r.lake.Name
		step := r.params.Grid.Step
		if math.Abs(r.table[0].T-(r.params.Grid.Start+step)) > step*1e-6 {
			p.errorf("%s: first T = %g, want %g", name, r.table[0].T, r.params.Grid.Start+step)
		}

		var ratio float64
		for i, s := range r.table {
			if s.Q < 0 || s.V < 0 {
				p.errorf("%s: row %d: negative value Q=%g V=%g", name, i+2, s.Q, s.V)
				break
			}
			if i > 0 && math.Abs(s.T-r.table[i-1].T-step) > step*1e-6 {
				p.errorf("%s: row %d: time step %g, want %g", name, i+2, s.T-r.table[i-1].T, step)
				break
			}
			if s.Q > 0 {
				got := s.Q / s.V
				if ratio == 0 {
					ratio = got
				} else if math.Abs(got-ratio) > ratio*1e-9 {
					p.errorf("%s: row %d: flow area %g, want %g", name, i+2, got, ratio)
					break
				}
			}
		}

		if last := r.table[len(r.table)-1]; last.Q != 0 || last.V != 0 {
			p.errorf("%s: final sample not zeroed (Q=%g V=%g)", name, last.Q, last.V)
		}
	}
	return p
}

// ── Phase 3: Estimate Parity ──
// Stored tables agree with a fresh estimate and conserve volume.

func validateEstimateParity(results []lakeResult, tolerance float64) *phase {
	p := &phase{name: "Phase 3: Estimate Parity"}
	for _, r := range results {
		if r.err != nil || len(r.table) == 0 {
			continue
		}
		name := r.lake.Name
		h, err := domain.Estimate(r.lake, r.params)
		if err != nil {
			p.errorf("%s: table present for a lake that cannot be estimated: %v", name, err)
			continue
		}

		want := h.RetainedSamples()
		if len(want) != len(r.table) {
			p.errorf("%s: %d rows, want %d", name, len(r.table), len(want))
			continue
		}

		t := make([]float64, len(r.table))
		q := make([]float64, len(r.table))
		wantQ := make([]float64, len(want))
		for i, s := range r.table {
			t[i], q[i] = s.T, s.Q
			wantQ[i] = want[i].Q
		}
		if !floats.EqualApprox(q, wantQ, 1e-9*h.PeakDischarge) {
			p.errorf("%s: discharge differs from a fresh estimate", name)
		}

		volume := integrate.Trapezoidal(t, q)
		if drift := math.Abs(volume-h.VolumeRelease) / h.VolumeRelease; drift > tolerance {
			p.errorf("%s: integrated volume %.0f drifts %.2f%% from %.0f", name, volume, drift*100, h.VolumeRelease)
		}
	}
	return p
}
