// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the trust engine's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trust_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trust_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trust_engine",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Committed state transitions by audit action.",
		},
		[]string{"action"},
	)

	badgeAwards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trust_engine",
			Subsystem: "badges",
			Name:      "awarded_total",
			Help:      "Badges newly awarded.",
		},
		[]string{"badge_id"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trust_engine",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Payment provider webhook events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	degraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trust_engine",
			Subsystem: "lifecycle",
			Name:      "degraded_total",
			Help:      "Operations that committed but whose side effect failed.",
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		transitions,
		badgeAwards,
		webhookEvents,
		degraded,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordTransition counts a committed transition. Call after commit.
func RecordTransition(action string) {
	transitions.WithLabelValues(action).Inc()
}

func RecordBadgeAward(badgeID string) {
	badgeAwards.WithLabelValues(badgeID).Inc()
}

func RecordWebhook(eventType, outcome string) {
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func RecordDegraded(operation string) {
	degraded.WithLabelValues(operation).Inc()
}

// GinMiddleware records request counts and latency keyed by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
