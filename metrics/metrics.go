// Package metrics provides Prometheus metrics for the MediaWiki gateway.
// It tracks API calls, retries, warnings, transport traffic and MCP tool calls.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "mediawiki_gateway"
)

// Retry reasons
const (
	RetryHTTP503 = "http_503"
	RetryMaxlag  = "maxlag"
)

var (
	// APIRequestsTotal counts top-level API calls by action and status
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_requests_total",
		Help:      "Total MediaWiki API calls by action and status",
	}, []string{"action", "status"})

	// APILatency measures API call latency including retries
	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "api_latency_seconds",
		Help:      "MediaWiki API call latency by action, retries included",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// APIErrors counts failed API calls by error code
	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_errors_total",
		Help:      "MediaWiki API errors by action and error code",
	}, []string{"action", "error_code"})

	// APIRetries counts retried attempts
	APIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_retries_total",
		Help:      "MediaWiki API retries by action and reason",
	}, []string{"action", "reason"})

	// Warnings counts API warnings that were logged instead of raised
	Warnings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "warnings_ignored_total",
		Help:      "API warnings logged because warnings are ignored",
	})

	// AuthFailures counts authentication failures
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "auth_failures_total",
		Help:      "Authentication failure count by action",
	}, []string{"action"})

	// HTTPRequestsTotal counts HTTP transport requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	// HTTPRequestDuration measures a single HTTP round trip
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency distribution",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method"})

	// CircuitRejections counts requests refused by an open circuit breaker
	CircuitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "circuit_rejections_total",
		Help:      "Requests refused while the circuit breaker was open",
	})

	// ToolRequestsTotal counts MCP tool calls by tool name and status
	ToolRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "tool_requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// ToolRequestDuration measures tool latency distribution
	ToolRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "tool_request_duration_seconds",
		Help:      "Request latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"tool"})

	// ToolRequestsInFlight tracks currently executing tool calls
	ToolRequestsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "tool_requests_in_flight",
		Help:      "Number of tool calls currently being processed",
	}, []string{"tool"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordAPICall records a completed gateway call
func RecordAPICall(action string, duration float64, success bool, errorCode string) {
	APIRequestsTotal.WithLabelValues(action, status(success)).Inc()
	APILatency.WithLabelValues(action).Observe(duration)
	if errorCode != "" {
		APIErrors.WithLabelValues(action, errorCode).Inc()
	}
}

// RecordRetry records one retried attempt
func RecordRetry(action, reason string) {
	APIRetries.WithLabelValues(action, reason).Inc()
}

// RecordHTTP records one HTTP round trip. Status 0 means no response.
func RecordHTTP(method string, statusCode int, duration float64) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	HTTPRequestsTotal.WithLabelValues(method, code).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// RecordRequest records a completed tool call with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	ToolRequestsTotal.WithLabelValues(tool, status(success)).Inc()
	ToolRequestDuration.WithLabelValues(tool).Observe(duration)
}
