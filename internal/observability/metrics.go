package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundlink_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foundlink_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "foundlink_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundlink_ws_events_total",
			Help: "Total number of websocket events by type.",
		},
		[]string{"event"},
	)
	notificationsPushedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundlink_notifications_pushed_total",
			Help: "Total number of notifications handed to the realtime push layer.",
		},
		[]string{"type"},
	)
	matchesIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundlink_matches_ingested_total",
			Help: "Total number of match events ingested.",
		},
		[]string{"outcome"},
	)
	chatMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foundlink_chat_messages_total",
			Help: "Total number of chat messages stored.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foundlink_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		notificationsPushedTotal,
		matchesIngestedTotal,
		chatMessagesTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncNotificationPushed(notificationType string) {
	notificationsPushedTotal.WithLabelValues(notificationType).Inc()
}

func IncMatchIngested(outcome string) {
	matchesIngestedTotal.WithLabelValues(outcome).Inc()
}

func IncChatMessage() {
	chatMessagesTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
