package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/promptsql/sqlgate/pkg/infrastructure/metrics"
)

// MetricsMiddleware provides metrics collection middleware.
type MetricsMiddleware struct {
	collector metrics.Collector
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(collector metrics.Collector) *MetricsMiddleware {
	return &MetricsMiddleware{
		collector: collector,
	}
}

// Handler returns an http middleware that records request counts and
// latencies per route.
func (m *MetricsMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.collector.IncrementCounter("sqlgate_http_requests_total",
			"method", r.Method, "path", r.URL.Path)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		m.collector.RecordHistogram("sqlgate_http_request_duration_seconds",
			time.Since(start).Seconds(),
			"method", r.Method, "path", r.URL.Path)
		m.collector.IncrementCounter("sqlgate_http_responses_total",
			"method", r.Method, "path", r.URL.Path, "status", strconv.Itoa(ww.status))
	})
}
