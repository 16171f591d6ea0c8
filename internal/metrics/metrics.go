package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Votes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackit_votes_total",
		Help: "Votes applied, by target kind and resulting action",
	}, []string{"target", "outcome"})

	Acceptance = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackit_acceptance_total",
		Help: "Accept-answer requests, by outcome",
	}, []string{"outcome"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackit_notifications_total",
		Help: "Notifications dispatched, by type and delivery path",
	}, []string{"type", "delivery"})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stackit_realtime_connections",
		Help: "Open websocket connections",
	})

	RealtimeUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stackit_realtime_users",
		Help: "Users currently announced as online",
	})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stackit_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Acceptance outcomes.
const (
	OutcomeAccepted   = "accepted"
	OutcomeUnaccepted = "unaccepted"
	OutcomeSwitched   = "switched"
	OutcomeForbidden  = "forbidden"
	OutcomeConflict   = "conflict"
	OutcomeFailed     = "failed"
)

// Notification delivery paths.
const (
	DeliveryPushed  = "pushed"
	DeliveryRelayed = "relayed"
	DeliverySMS     = "sms"
	DeliveryStored  = "stored"
	DeliveryFailed  = "failed"
)
