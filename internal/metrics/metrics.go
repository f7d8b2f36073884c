// Package metrics exposes Prometheus collectors for the bookkeeping service.
package metrics

import (
	"strconv"
	"time"

	"bukukas/internal/engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bukukas"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reports      *prometheus.CounterVec
	conditions   *prometheus.CounterVec
	entriesSaved prometheus.Counter
	exports      *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_computed_total",
			Help:      "Reports computed, by kind.",
		}, []string{"kind"}),
		conditions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conditions_total",
			Help:      "Data conditions reported while computing, by kind.",
		}, []string{"kind"}),
		entriesSaved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_saved_total",
			Help:      "Daily entries saved.",
		}),
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Report exports, by kind and status.",
		}, []string{"kind", "status"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_lookups_total",
			Help:      "Monthly report cache lookups, by result.",
		}, []string{"result"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ReportComputed(kind string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(kind).Inc()
}

// ObserveConditions counts each condition by kind.
func (m *Metrics) ObserveConditions(cs engine.Conditions) {
	if m == nil {
		return
	}
	for kind, n := range cs.Count() {
		m.conditions.WithLabelValues(string(kind)).Add(float64(n))
	}
}

func (m *Metrics) EntrySaved() {
	if m == nil {
		return
	}
	m.entriesSaved.Inc()
}

func (m *Metrics) Export(kind, status string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}
