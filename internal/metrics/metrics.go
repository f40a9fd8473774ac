// Package metrics holds the process-wide Prometheus collectors shared by
// the registry, router, and hosted-DID subsystems. Collectors are package
// vars registered at init time via promauto, matching how the rest of the
// runtime exposes its counters.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RegistryConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anp_registry_conflicts_total",
		Help: "Total agent registration conflicts by kind.",
	}, []string{"kind"})

	RegistryAgentsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "anp_registry_agents_total",
		Help: "Currently registered agents by registration mode.",
	}, []string{"mode"})

	RouterLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anp_router_lookups_total",
		Help: "Total router resolution attempts by result.",
	}, []string{"result"})

	HostedRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anp_hosted_requests_total",
		Help: "Total hosted-DID requests by terminal status.",
	}, []string{"status"})

	HostedQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "anp_hosted_queue_depth",
		Help: "Current hosted-DID queue depth by status directory.",
	}, []string{"status"})

	LedgerEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anp_ledger_entries_total",
		Help: "Total audit ledger entries appended.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anp_http_requests_total",
		Help: "Total HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anp_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records per-request counters and latency, in the same shape
// as the request logging middleware so both can be registered together.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := statusClass(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Handler serves the Prometheus exposition format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
