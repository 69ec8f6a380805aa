package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency per route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ticketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_sold_total",
			Help: "Total tickets issued through checkout",
		},
	)

	eventsModerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_moderated_total",
			Help: "Admin moderation decisions by outcome",
		},
		[]string{"status"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Outbox deliveries by channel and result",
		},
		[]string{"channel", "status"},
	)
)

// HTTPMetrics records request counts and latency keyed by the route pattern
// (c.FullPath), not the raw URL, to keep cardinality bounded.
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordTicketsSold(n int) {
	ticketsSold.Add(float64(n))
}

func RecordModeration(status string) {
	eventsModerated.WithLabelValues(status).Inc()
}

func RecordNotification(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}
