// Package metrics exposes Prometheus instrumentation for backtest runs,
// parameter sweeps, and walk-forward analyses.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	droppedFills     prometheus.Counter

	evaluationsTotal  *prometheus.CounterVec
	evaluationsActive prometheus.Gauge
	sweepsTotal       prometheus.Counter
	sweepDuration     prometheus.Histogram

	walkforwardWindows prometheus.Counter
}

// NewRegistry creates a metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"status"},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rewind_backtest_duration_seconds",
				Help:    "Single backtest run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		droppedFills: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_dropped_fills_total",
				Help: "Delayed fills dropped at the data horizon",
			},
		),
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_sweep_evaluations_total",
				Help: "Total number of sweep evaluations",
			},
			[]string{"status"},
		),
		evaluationsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rewind_sweep_evaluations_active",
				Help: "Sweep evaluations currently running",
			},
		),
		sweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_sweeps_total",
				Help: "Total number of parameter sweeps",
			},
		),
		sweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rewind_sweep_duration_seconds",
				Help:    "Parameter sweep duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		walkforwardWindows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_walkforward_windows_total",
				Help: "Total number of walk-forward windows evaluated",
			},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.droppedFills)
	reg.MustRegister(r.evaluationsTotal)
	reg.MustRegister(r.evaluationsActive)
	reg.MustRegister(r.sweepsTotal)
	reg.MustRegister(r.sweepDuration)
	reg.MustRegister(r.walkforwardWindows)

	return r
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordDroppedFills adds to the dropped-fill counter.
func (r *Registry) RecordDroppedFills(n int) {
	r.droppedFills.Add(float64(n))
}

// RecordEvaluation records one sweep evaluation outcome.
func (r *Registry) RecordEvaluation(status string) {
	r.evaluationsTotal.WithLabelValues(status).Inc()
}

// EvaluationStarted marks an evaluation in flight.
func (r *Registry) EvaluationStarted() { r.evaluationsActive.Inc() }

// EvaluationFinished marks an evaluation done.
func (r *Registry) EvaluationFinished() { r.evaluationsActive.Dec() }

// RecordSweep records a completed sweep.
func (r *Registry) RecordSweep(duration float64) {
	r.sweepsTotal.Inc()
	r.sweepDuration.Observe(duration)
}

// RecordWindow records one walk-forward window.
func (r *Registry) RecordWindow() { r.walkforwardWindows.Inc() }
