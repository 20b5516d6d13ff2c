package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Generate outcomes.
const (
	OutcomeGenerated   = "generated"
	OutcomeCached      = "cached"
	OutcomeUnsupported = "unsupported_dialect"
	OutcomeRejected    = "rejected"
	OutcomeBackendErr  = "backend_error"
	OutcomeBudget      = "budget_exceeded"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

var (
	generateRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpilot_generate_requests_total",
			Help: "Total number of generate requests by dialect and outcome.",
		},
		[]string{"dialect", "outcome"},
	)
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpilot_cache_lookups_total",
			Help: "Total number of statement cache lookups by result.",
		},
		[]string{"result"},
	)
	backendLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlpilot_backend_latency_seconds",
			Help:    "Generation backend call latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)
	rateGateWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlpilot_rate_gate_wait_seconds",
			Help:    "Time callers spent waiting for a rate gate slot.",
			Buckets: []float64{0, 0.5, 1, 5, 10, 20, 30, 45, 60},
		},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpilot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlpilot_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		generateRequestsTotal,
		cacheLookupsTotal,
		backendLatencySeconds,
		rateGateWaitSeconds,
		httpRequestsTotal,
		httpRequestDurationSeconds,
	)
}

func ObserveGenerate(dialect, outcome string) {
	if dialect == "" {
		dialect = "unknown"
	}
	generateRequestsTotal.WithLabelValues(dialect, outcome).Inc()
}

func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

func ObserveBackendLatency(provider string, elapsed time.Duration) {
	backendLatencySeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func ObserveRateGateWait(waited time.Duration) {
	rateGateWaitSeconds.Observe(waited.Seconds())
}
