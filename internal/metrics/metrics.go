// Package metrics provides Prometheus metrics for the reference bucket manager.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the reference bucket manager.
type Metrics struct {
	// Operation metrics
	OperationsTotal *prometheus.CounterVec // operation=clone|verify|ensure, result=ok|error

	// Copy metrics
	CopiesTotal  *prometheus.CounterVec // group=core|hg38|b37|giab, result=ok|error
	CopyDuration *prometheus.HistogramVec

	// Verification metrics
	VerificationIssues prometheus.Counter

	// Gateway metrics
	RegionRescopes prometheus.Counter
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dayrefs"
	}

	m := &Metrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of lifecycle operations by outcome",
			},
			[]string{"operation", "result"},
		),
		CopiesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prefix_copies_total",
				Help:      "Total number of prefix copy invocations by outcome",
			},
			[]string{"group", "result"},
		),
		CopyDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prefix_copy_duration_seconds",
				Help:      "Duration of prefix copy invocations",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
			},
			[]string{"group"},
		),
		VerificationIssues: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_issues_total",
				Help:      "Total number of verification issues found",
			},
		),
		RegionRescopes: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "region_rescopes_total",
				Help:      "Total number of client re-scopes after a bucket region redirect",
			},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// IncOperation increments the operation counter. Safe on a nil receiver so
// callers never have to gate on metrics being initialized.
func (m *Metrics) IncOperation(operation, result string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
}

// IncCopy increments the copy counter and records the duration.
func (m *Metrics) IncCopy(group, result string, seconds float64) {
	if m == nil {
		return
	}
	m.CopiesTotal.WithLabelValues(group, result).Inc()
	m.CopyDuration.WithLabelValues(group).Observe(seconds)
}

// AddVerificationIssues counts issues found in one verify pass.
func (m *Metrics) AddVerificationIssues(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.VerificationIssues.Add(float64(n))
}

// IncRegionRescope counts a redirect-driven client re-scope.
func (m *Metrics) IncRegionRescope() {
	if m == nil {
		return
	}
	m.RegionRescopes.Inc()
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}
