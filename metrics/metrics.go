package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the backend API.",
		},
		[]string{"method", "resource", "status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "resource"},
	)

	apiAuthFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "auth_failures_total",
			Help:      "Backend responses with status 401 or 403.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of requests handled by the admin router.",
		},
		[]string{"route", "status"},
	)
)

func init() {
	Registry.MustRegister(apiRequests, apiDuration, apiAuthFailures, httpRequests)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordAPIRequest records one backend call. status is 0 when no response
// was received.
func RecordAPIRequest(method, path string, status int, d time.Duration) {
	resource := Resource(path)
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	apiRequests.WithLabelValues(method, resource, code).Inc()
	apiDuration.WithLabelValues(method, resource).Observe(d.Seconds())
}

// RecordAuthFailure counts a 401/403 response.
func RecordAuthFailure() {
	apiAuthFailures.Inc()
}

// RecordHTTPRequest counts a request served by the router.
func RecordHTTPRequest(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Resource collapses numeric path segments so ids do not become labels:
// /api/v1/product/update/5 -> /api/v1/product/update/:id
func Resource(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
