package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure stages used as the "stage" label of LakesFailed.
const (
	StageInput      = "input"
	StageDegenerate = "degenerate"
	StageOutput     = "output"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a batch run.
type Metrics struct {
	registry *prometheus.Registry

	LakesRead           prometheus.Counter
	LakesLoaded         prometheus.Counter
	LakesFailed         *prometheus.CounterVec // labels: stage={input,degenerate,output}
	MassBalanceWarnings prometheus.Counter
	LakeDuration        prometheus.Histogram
	PeakDischarge       prometheus.Histogram
	RunDuration         prometheus.Gauge
	LastRunTimestamp    prometheus.Gauge

	// Launcher metrics.
	SimulationsLaunched prometheus.Counter
	SimulationsFailed   prometheus.Counter
}

// NewMetrics creates all metrics on a private registry. Batch commands export
// it once at exit with WriteTextfile.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LakesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glof",
			Name:      "lakes_read_total",
			Help:      "Total rows read from the lake table.",
		}),
		LakesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glof",
			Name:      "lakes_loaded_total",
			Help:      "Total lakes whose hydrograph artifacts were written.",
		}),
		LakesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glof",
			Name:      "lakes_failed_total",
			Help:      "Lakes skipped, by the stage that rejected them.",
		}, []string{"stage"}),
		MassBalanceWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glof",
			Name:      "mass_balance_warnings_total",
			Help:      "Hydrographs whose sampled volume drifts beyond tolerance.",
		}),
		LakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "glof",
			Name:      "lake_processing_duration_seconds",
			Help:      "Duration of a complete transform-load cycle for one lake.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PeakDischarge: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "glof",
			Name:      "peak_discharge_m3s",
			Help:      "Median peak discharge of each estimated lake.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 9),
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "glof",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last batch run.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "glof",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last batch run finished.",
		}),
		SimulationsLaunched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glof",
			Name:      "simulations_launched_total",
			Help:      "GRASS simulations handed to a terminal session.",
		}),
		SimulationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glof",
			Name:      "simulations_failed_total",
			Help:      "GRASS simulations that could not be prepared or started.",
		}),
	}

	m.registry.MustRegister(
		m.LakesRead,
		m.LakesLoaded,
		m.LakesFailed,
		m.MassBalanceWarnings,
		m.LakeDuration,
		m.PeakDischarge,
		m.RunDuration,
		m.LastRunTimestamp,
		m.SimulationsLaunched,
		m.SimulationsFailed,
	)

	return m
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
// The write goes through a temporary file and a rename.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
