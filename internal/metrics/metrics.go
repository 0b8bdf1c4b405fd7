// Package metrics declares the Prometheus series exported by projtrack-server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "projtrack"

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64) prometheus.Histogram {
	return promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

// HTTP, labelled by chi route pattern.
var (
	HTTPRequestsTotal = counterVec("http", "requests_total",
		"HTTP requests by method, route and status.", "method", "path", "status")

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})
)

// Projects.
var (
	// ProjectMutationsTotal: operation is create, update or retitle; result
	// is ok, conflict, not_found, invalid, partial or error.
	ProjectMutationsTotal = counterVec("projects", "mutations_total",
		"Project writes by operation and result.", "operation", "result")

	// BatchItemsTotal is labelled with tracker.TitleOutcome values.
	BatchItemsTotal = counterVec("projects", "batch_items_total",
		"Batch title update items by outcome.", "outcome")

	BatchSize = histogram("projects", "batch_size",
		"Items per batch title update.", prometheus.ExponentialBuckets(1, 2, 8))
)

// Storage.
var StorageErrors = counterVec("storage", "errors_total",
	"Storage failures by operation and backend.", "operation", "backend")

// Accounts and tokens.
var (
	// AuthAttemptsTotal: result is success, failure or locked.
	AuthAttemptsTotal = counterVec("auth", "attempts_total",
		"Login attempts by result.", "result")

	// AuthTokensIssued: type is access or refresh.
	AuthTokensIssued = counterVec("auth", "tokens_issued_total",
		"Tokens issued by type.", "type")

	// SignupsTotal: result is created, invalid or conflict.
	SignupsTotal = counterVec("auth", "signups_total",
		"Signup attempts by result.", "result")
)

// BuildInfo is a constant 1 labelled with the build stamp.
var BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "build_info",
	Help:      "Build stamp of the running server.",
}, []string{"version", "commit", "build_time"})

// SetBuildInfo publishes the build stamp.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
