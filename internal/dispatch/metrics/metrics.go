package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the dispatch module.
type Metrics struct {
	// Call outcomes by responder and terminal state
	CallOutcome *prometheus.CounterVec

	// Latency of individual responder calls
	CallLatency prometheus.Histogram

	// Retries performed across all responders
	Retries prometheus.Counter

	// Cache hits and misses during dispatch
	CacheLookup *prometheus.CounterVec
}

// New creates a new Metrics instance with all dispatch module metrics registered.
func New() *Metrics {
	return &Metrics{
		CallOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conclave_dispatch_calls_total",
			Help: "Terminal call outcomes by responder and state",
		}, []string{"responder", "outcome"}), // outcome: "success", "error", "cache_hit"

		CallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "conclave_dispatch_call_duration_seconds",
			Help:    "Duration of individual responder calls including retries",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		Retries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conclave_dispatch_retries_total",
			Help: "Total retry attempts across all responder calls",
		}),

		CacheLookup: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conclave_dispatch_cache_lookups_total",
			Help: "Cache lookup results during dispatch",
		}, []string{"result"}), // result: "hit", "miss", "error"
	}
}

// ObserveCall records a terminal call outcome and its duration.
func (m *Metrics) ObserveCall(responder, outcome string, d time.Duration) {
	if m != nil {
		m.CallOutcome.WithLabelValues(responder, outcome).Inc()
		m.CallLatency.Observe(d.Seconds())
	}
}

// IncrementRetries records n retry attempts.
func (m *Metrics) IncrementRetries(n int) {
	if m != nil && n > 0 {
		m.Retries.Add(float64(n))
	}
}

// IncrementCacheLookup records a cache lookup result.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookup.WithLabelValues(result).Inc()
	}
}
