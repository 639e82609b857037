package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Calendar sync outcomes per operation (insert/update/delete).
	CalendarSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_sync_total",
			Help: "Total number of calendar sync attempts",
		},
		[]string{"operation", "status"}, // status: ok, failed, unauthorized
	)

	// HTTP request latency (seconds).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordCalendarSync counts one sync attempt outcome.
func RecordCalendarSync(operation, status string) {
	CalendarSyncTotal.WithLabelValues(operation, status).Inc()
}

// RecordHTTPRequestDuration observes one request's latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
