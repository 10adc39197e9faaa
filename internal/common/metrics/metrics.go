// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_chat_requests_total",
			Help: "Total number of chat requests by outcome",
		},
		[]string{"outcome"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_llm_call_duration_seconds",
			Help:    "Duration of chat completion calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"status"},
	)

	RecommendationsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_recommendations_returned",
			Help:    "Number of matched products returned per chat reply",
			Buckets: []float64{0, 1, 2, 3},
		},
	)

	MalformedMarkers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_malformed_markers_total",
			Help: "Replies whose recommendation marker could not be parsed",
		},
	)

	CatalogueProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_catalogue_products",
			Help: "Number of products loaded into the catalogue",
		},
	)
)
