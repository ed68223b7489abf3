// Package catalog records batch runs and per-lake hydrograph summaries in a
// SQLite database, so results from many runs can be compared without
// re-reading the per-lake tables.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	lakes_read  INTEGER NOT NULL,
	loaded      INTEGER NOT NULL,
	failed      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hydrographs (
	run_id             TEXT NOT NULL,
	lake               TEXT NOT NULL,
	area_m2            REAL NOT NULL,
	fraction           REAL NOT NULL,
	breach_width_m     REAL NOT NULL,
	breach_depth_m     REAL NOT NULL,
	volume_release_m3  REAL NOT NULL,
	peak_discharge_m3s REAL NOT NULL,
	decay_constant_s   REAL NOT NULL,
	mass_balance_drift REAL NOT NULL,
	breach_times       TEXT NOT NULL,
	processed_at       TEXT NOT NULL,
	PRIMARY KEY (run_id, lake)
);

CREATE TABLE IF NOT EXISTS failures (
	run_id TEXT NOT NULL,
	line   INTEGER NOT NULL,
	lake   TEXT NOT NULL,
	stage  TEXT NOT NULL,
	error  TEXT NOT NULL
);
`

// Summary is one stored hydrograph row.
type Summary struct {
	RunID            string
	Lake             string
	Area             float64
	Fraction         float64
	BreachWidth      float64
	BreachDepth      float64
	VolumeRelease    float64
	PeakDischarge    float64
	DecayConstant    float64
	MassBalanceDrift float64
	BreachTimes      []float64
	ProcessedAt      time.Time
}

// Run is one stored batch run.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	LakesRead  int
	Loaded     int
	Failures   []Failure
}

// Failure is one skipped lake within a run.
type Failure struct {
	Line  int
	Lake  string
	Stage string
	Error string
}

// Catalog persists run results. It implements pipeline.Loader.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path and applies the schema.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite catalog: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite catalog: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Load stores the summary of one hydrograph. Re-loading the same lake within
// a run replaces the earlier row.
func (c *Catalog) Load(ctx context.Context, h domain.Hydrograph) error {
	times, err := json.Marshal(h.BreachTimes)
	if err != nil {
		return fmt.Errorf("encode breach times: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO hydrographs (
			run_id, lake, area_m2, fraction, breach_width_m, breach_depth_m,
			volume_release_m3, peak_discharge_m3s, decay_constant_s,
			mass_balance_drift, breach_times, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.RunID, h.Lake.Name, h.Lake.Area, h.Params.Fraction, h.Params.BreachWidth, h.BreachDepth,
		h.VolumeRelease, h.PeakDischarge, h.DecayConstant,
		h.Drift, string(times), h.ProcessedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record hydrograph %q: %w", h.Lake.Name, err)
	}
	return nil
}

// RecordRun stores the outcome of a finished run and its failures.
func (c *Catalog) RecordRun(ctx context.Context, r Run) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run record: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (run_id, started_at, finished_at, lakes_read, loaded, failed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.LakesRead, r.Loaded, len(r.Failures),
	); err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	for _, f := range r.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, line, lake, stage, error) VALUES (?, ?, ?, ?, ?)`,
			r.RunID, f.Line, f.Lake, f.Stage, f.Error,
		); err != nil {
			return fmt.Errorf("record failure on line %d: %w", f.Line, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run record: %w", err)
	}
	return nil
}

// Summaries returns the hydrographs stored for a run, ordered by lake name.
func (c *Catalog) Summaries(ctx context.Context, runID string) ([]Summary, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, lake, area_m2, fraction, breach_width_m, breach_depth_m,
		       volume_release_m3, peak_discharge_m3s, decay_constant_s,
		       mass_balance_drift, breach_times, processed_at
		FROM hydrographs WHERE run_id = ? ORDER BY lake`, runID)
	if err != nil {
		return nil, fmt.Errorf("query hydrographs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s           Summary
			times       string
			processedAt string
		)
		if err := rows.Scan(&s.RunID, &s.Lake, &s.Area, &s.Fraction, &s.BreachWidth, &s.BreachDepth,
			&s.VolumeRelease, &s.PeakDischarge, &s.DecayConstant,
			&s.MassBalanceDrift, &times, &processedAt); err != nil {
			return nil, fmt.Errorf("scan hydrograph: %w", err)
		}
		if err := json.Unmarshal([]byte(times), &s.BreachTimes); err != nil {
			return nil, fmt.Errorf("decode breach times for %q: %w", s.Lake, err)
		}
		if s.ProcessedAt, err = time.Parse(time.RFC3339Nano, processedAt); err != nil {
			return nil, fmt.Errorf("parse processed_at for %q: %w", s.Lake, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRun returns a stored run with its failures.
func (c *Catalog) GetRun(ctx context.Context, runID string) (Run, error) {
	var (
		r                 Run
		started, finished string
		failed            int
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, lakes_read, loaded, failed FROM runs WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &started, &finished, &r.LakesRead, &r.Loaded, &failed)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT line, lake, stage, error FROM failures WHERE run_id = ? ORDER BY line`, runID)
	if err != nil {
		return Run{}, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Line, &f.Lake, &f.Stage, &f.Error); err != nil {
			return Run{}, fmt.Errorf("scan failure: %w", err)
		}
		r.Failures = append(r.Failures, f)
	}
	return r, rows.Err()
}
