package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widget_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"backend"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "widget_websocket_connections",
			Help: "Open chat WebSocket connections",
		},
	)

	// Backend calls
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_backend_requests_total",
			Help: "Total number of calls to the assistant backend",
		},
		[]string{"operation", "status"},
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widget_backend_request_duration_seconds",
			Help:    "Assistant backend call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// Message composition
	AnswersFormatted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_answers_formatted_total",
			Help: "Answers formatted, by layout",
		},
		[]string{"layout"},
	)

	SourcesNormalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "widget_sources_normalized_total",
			Help: "Source links normalized after deduplication",
		},
	)

	SourcesDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "widget_sources_duplicate_total",
			Help: "Source links dropped as exact duplicates",
		},
	)

	BrandReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_brand_table_reloads_total",
			Help: "Brand table reload attempts",
		},
		[]string{"status"},
	)
)

// RecordHTTP records one served request.
func RecordHTTP(route, method, status string, durationSeconds float64) {
	HTTPRequests.WithLabelValues(route, method, status).Inc()
	HTTPDuration.WithLabelValues(route, method).Observe(durationSeconds)
}

// RecordBackend records one assistant backend call.
func RecordBackend(operation, status string, durationSeconds float64) {
	BackendRequests.WithLabelValues(operation, status).Inc()
	BackendDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordComposition records a composed message.
func RecordComposition(simple bool, rawSources, uniqueSources int) {
	layout := "structured"
	if simple {
		layout = "simple"
	}
	AnswersFormatted.WithLabelValues(layout).Inc()
	SourcesNormalized.Add(float64(uniqueSources))
	if d := rawSources - uniqueSources; d > 0 {
		SourcesDuplicate.Add(float64(d))
	}
}
