package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trade_market"

//nolint:gochecknoglobals
var (
	TradesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_created_total",
		Help:      "Trades created, idempotent replays excluded.",
	})

	OffersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offers_created_total",
		Help:      "Offers created by kind (offer, counter).",
	}, []string{"kind"})

	OfferTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offer_transitions_total",
		Help:      "Offer status changes by target status.",
	}, []string{"status"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification dispatch outcomes.",
	}, []string{"result"})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_connections",
		Help:      "Websocket connections held by this process.",
	})
)

const (
	NotificationPersisted  = "persisted"
	NotificationPushed     = "pushed"
	NotificationSuppressed = "suppressed"
	NotificationFailed     = "failed"
	NotificationQueued     = "queued"
)
