package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwave_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatwave_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Realtime metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatwave_connections_active",
			Help: "Currently open realtime connections",
		},
	)

	UsersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatwave_users_online",
			Help: "Users with at least one live connection",
		},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwave_events_received_total",
			Help: "Total inbound client events",
		},
		[]string{"type"},
	)

	EventErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwave_event_errors_total",
			Help: "Total rejected client events",
		},
		[]string{"code"},
	)

	MessagesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwave_messages_relayed_total",
			Help: "Total messages relayed to rooms",
		},
		[]string{"kind"}, // "send", "edit", "delete"
	)

	BroadcastsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatwave_broadcasts_delivered_total",
			Help: "Total per-connection event deliveries",
		},
	)

	PresenceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwave_presence_transitions_total",
			Help: "Total online/offline edges",
		},
		[]string{"state"}, // "online" or "offline"
	)

	ReadReceipts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatwave_read_receipts_total",
			Help: "Total read receipts recorded",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatwave_persist_failures_total",
			Help: "Total store writes that failed before broadcast",
		},
	)

	// Infrastructure metrics
	PersistLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatwave_persist_latency_seconds",
			Help:    "Message persistence latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25},
		},
	)
)
