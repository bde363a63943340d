package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay traffic.
var (
	RelayQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satslist_relay_queries_total",
		Help: "Relay read queries issued through the gateway, by result.",
	}, []string{"result"})

	RelayQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "satslist_relay_query_duration_seconds",
		Help:    "Duration of relay read queries.",
		Buckets: prometheus.DefBuckets,
	})

	RelayPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satslist_relay_publishes_total",
		Help: "Event publishes, by event type and result.",
	}, []string{"type", "result"})
)

// Wishlist state.
var (
	WishlistSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "satslist_wishlist_items",
		Help: "Number of visible wishlist items after the last sync.",
	})

	TombstoneSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "satslist_tombstone_ids",
		Help: "Number of logical ids in the local deletion set.",
	})
)

// Notifications.
var NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "satslist_notifications_sent_total",
	Help: "Target-reached notifications dispatched.",
})
