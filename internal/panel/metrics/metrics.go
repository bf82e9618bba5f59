// Package metrics exposes Prometheus metrics for panel runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all panel-level Prometheus metrics. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	Runs           *prometheus.CounterVec
	Strength       *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	BelowThreshold prometheus.Counter
	SkewFlags      prometheus.Counter
}

// New creates and registers all panel metrics.
func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conclave_panel_runs_total",
			Help: "Total panel runs by outcome",
		}, []string{"outcome"}),
		Strength: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conclave_panel_strength_total",
			Help: "Completed panel runs by consensus strength",
		}, []string{"strength"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "conclave_panel_run_duration_seconds",
			Help:    "End-to-end panel run duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		BelowThreshold: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conclave_panel_below_threshold_total",
			Help: "Panel runs completed with fewer successful responders than the confidence minimum",
		}),
		SkewFlags: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conclave_panel_skew_flags_total",
			Help: "Origin skew flags raised across panel runs",
		}),
	}
}

// ObserveRun records one completed or failed run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// ObserveStrength records the consensus strength of a completed run.
func (m *Metrics) ObserveStrength(strength string) {
	if m == nil {
		return
	}
	m.Strength.WithLabelValues(strength).Inc()
}

// IncrementBelowThreshold records a run that finished under the minimum
// responder count.
func (m *Metrics) IncrementBelowThreshold() {
	if m == nil {
		return
	}
	m.BelowThreshold.Inc()
}

// AddSkewFlags records origin skew flags raised by one run.
func (m *Metrics) AddSkewFlags(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SkewFlags.Add(float64(n))
}
