package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by route and status code
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_http_requests_total",
		Help: "Total number of HTTP API requests",
	}, []string{"route", "method", "code"})

	// HTTPRequestDuration tracks API latency by route
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collab_http_request_duration_seconds",
		Help:    "HTTP API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// RealtimeNotifications counts backend change notifications by table
	RealtimeNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_realtime_notifications_total",
		Help: "Total number of backend change notifications received",
	}, []string{"table"})

	// RealtimeSubscriptions is the number of live hub subscriptions
	RealtimeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_realtime_subscriptions",
		Help: "Number of active realtime subscriptions",
	})

	// WebSocketConnectionsActive is the number of connected browser clients
	WebSocketConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_websocket_connections_active",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketMessagesDropped counts change messages skipped for slow clients
	WebSocketMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_websocket_messages_dropped_total",
		Help: "Total number of change messages dropped because a client buffer was full",
	})
)
