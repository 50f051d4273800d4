package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	reviewRequestsTotal  *prometheus.CounterVec
	reviewLatencySeconds *prometheus.HistogramVec
	reviewErrorsTotal    *prometheus.CounterVec
	aggregationRunsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for review API observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		reviewRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_requests_total",
			Help: "Total number of review API requests served.",
		}, []string{"method", "route", "status"})

		reviewLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "review_latency_seconds",
			Help:    "Latency distribution for review API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		reviewErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_errors_total",
			Help: "Total number of error responses returned by review endpoints.",
		}, []string{"method", "route", "status"})

		aggregationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_aggregation_runs_total",
			Help: "Total number of aggregation runs, partitioned by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(reviewRequestsTotal, reviewLatencySeconds, reviewErrorsTotal, aggregationRunsTotal)
	})
}

// ReviewRequests exposes the counter for review API requests.
func ReviewRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewRequestsTotal
}

// ReviewLatency exposes the latency histogram for review API requests.
func ReviewLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return reviewLatencySeconds
}

// ReviewErrors exposes the counter for review API error responses.
func ReviewErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewErrorsTotal
}

// AggregationRuns exposes the counter for aggregation run outcomes.
func AggregationRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return aggregationRunsTotal
}
