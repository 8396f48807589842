package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claimflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Automated validation metrics
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimflow_validations_total",
			Help: "Automated validation calls by validator and outcome",
		},
		[]string{"validator", "outcome"},
	)

	validationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claimflow_validation_duration_seconds",
			Help:    "Automated validation latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"validator"},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimflow_appeal_transitions_total",
			Help: "Appeal status transitions by source and target status",
		},
		[]string{"from", "to"},
	)
)

func statusClass(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "5xx"
	case statusCode >= 400:
		return "4xx"
	case statusCode >= 300:
		return "3xx"
	case statusCode >= 200:
		return "2xx"
	}
	return "unknown"
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, durationSeconds float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusClass(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

func RecordValidation(validator, outcome string, durationSeconds float64) {
	validationsTotal.WithLabelValues(validator, outcome).Inc()
	validationDuration.WithLabelValues(validator).Observe(durationSeconds)
}

func RecordTransition(from, to string) {
	transitionsTotal.WithLabelValues(from, to).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
