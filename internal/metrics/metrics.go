// Package metrics holds Prometheus instruments that are used across the
// application.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Calls to the alert API, by HTTP method and response code (\"error\" when no response).",
		}, []string{"method", "code"})

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Latency of calls to the alert API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"})

	AlertEditTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_edit_total",
			Help: "Alert editor operations, by operation and result.",
		}, []string{"op", "result"})

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		})
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal,
		APIRequestDuration,
		AlertEditTotal,
		RateLimitedTotal,
	)
}
