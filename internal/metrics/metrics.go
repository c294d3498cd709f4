// Package metrics holds the Prometheus collectors for projection queries.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tally"

// Metrics groups the collectors registered by New.
type Metrics struct {
	queries    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	warnings   *prometheus.CounterVec
	unbalanced prometheus.Counter
	cache      *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_queries_total",
			Help:      "Projection queries by projection and outcome.",
		}, []string{"projection", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "projection_duration_seconds",
			Help:      "Wall time spent building a projection, including source fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"projection"}),
		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_warnings_total",
			Help:      "Non-fatal anomalies attached to projection results.",
		}, []string{"kind"}),
		unbalanced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_balance_unbalanced_total",
			Help:      "Trial balances whose debit and credit columns disagree beyond tolerance.",
		}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Projection cache lookups by result (hit, miss, bypass, error).",
		}, []string{"result"}),
	}
}

// ObserveQuery records one finished projection query.
func (m *Metrics) ObserveQuery(projection string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.queries.WithLabelValues(projection, outcome).Inc()
	m.duration.WithLabelValues(projection).Observe(time.Since(started).Seconds())
}

// Warnings adds n warnings of the given kind.
func (m *Metrics) Warnings(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.warnings.WithLabelValues(kind).Add(float64(n))
}

// Unbalanced counts one unbalanced trial balance.
func (m *Metrics) Unbalanced() {
	if m == nil {
		return
	}
	m.unbalanced.Inc()
}

// CacheResult counts one cache lookup.
func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}
