package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Completion call metrics
	CompletionRequests prometheus.Counter
	CompletionLatency  prometheus.Histogram
	CompletionErrors   *prometheus.CounterVec

	// Tool usage by name (chat, comparator, ats, cover_letter, aptitude)
	ToolRequests *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		CompletionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placementhelper_completion_requests_total",
			Help: "Total number of completion requests sent to the LLM provider",
		}),

		CompletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "placementhelper_completion_duration_seconds",
			Help:    "Completion request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		CompletionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placementhelper_completion_errors_total",
			Help: "Total number of completion errors by type",
		}, []string{"error_type"}), // "quota" or "generic"

		ToolRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placementhelper_tool_requests_total",
			Help: "Total number of tool invocations by tool name",
		}, []string{"tool"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}
