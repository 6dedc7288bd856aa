package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_api_requests_total",
			Help: "Total number of REST calls issued against the chat server.",
		},
		[]string{"op", "status"},
	)
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_api_request_duration_seconds",
			Help:    "REST call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	wsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "messenger_ws_connected",
			Help: "Whether the live connection is currently open (0 or 1).",
		},
	)
	wsReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_ws_reconnects_total",
			Help: "Total number of reconnection attempts.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_ws_events_total",
			Help: "Total number of websocket events by kind and direction.",
		},
		[]string{"direction", "event"},
	)
	pendingMessages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "messenger_pending_messages",
			Help: "Number of locally-sent messages awaiting their server echo.",
		},
	)
	reconcileAnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_reconcile_anomalies_total",
			Help: "Total number of absorbed reconciliation anomalies.",
		},
		[]string{"kind"},
	)
	opsRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_ops_http_requests_total",
			Help: "Total number of HTTP requests served by the ops endpoint.",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		wsConnected,
		wsReconnectsTotal,
		wsEventsTotal,
		pendingMessages,
		reconcileAnomaliesTotal,
		opsRequestsTotal,
	)
}

// HTTPMetricsMiddleware records ops endpoint traffic.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		opsRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func ObserveAPIRequest(op string, status int, elapsed time.Duration) {
	apiRequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func SetWSConnected(connected bool) {
	if connected {
		wsConnected.Set(1)
		return
	}
	wsConnected.Set(0)
}

func IncReconnect() {
	wsReconnectsTotal.Inc()
}

func IncWSEvent(direction, event string) {
	wsEventsTotal.WithLabelValues(direction, event).Inc()
}

func SetPendingMessages(n int) {
	pendingMessages.Set(float64(n))
}

func IncReconcileAnomaly(kind string) {
	reconcileAnomaliesTotal.WithLabelValues(kind).Inc()
}
