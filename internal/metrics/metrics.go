package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkgate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_links_created_total",
			Help: "Link creation requests by outcome (created, deduplicated)",
		},
		[]string{"outcome"},
	)

	CodeGenerationAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkgate_code_generation_attempts",
			Help:    "Short code generation attempts per created link",
			Buckets: []float64{1, 2, 3, 5, 10},
		},
	)

	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_redirects_total",
			Help: "Resolve attempts by outcome",
		},
		[]string{"outcome"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)

	AnalyticsEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgate_analytics_events_total",
			Help: "Click events by result (flushed, dropped, failed)",
		},
		[]string{"result"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
