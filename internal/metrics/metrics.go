package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmclub_rpc_requests_total",
			Help: "Total number of gRPC calls by method and status code",
		},
		[]string{"method", "code"},
	)

	rpcDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffmclub_rpc_duration_seconds",
			Help:    "gRPC handler latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	likesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmclub_likes_total",
			Help: "Total number of like operations",
		},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmclub_matches_total",
			Help: "Total number of likes that completed a mutual match",
		},
	)

	messagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmclub_messages_sent_total",
			Help: "Total number of direct messages sent",
		},
	)

	messagesReadTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmclub_messages_read_total",
			Help: "Total number of messages flipped to read",
		},
	)

	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmclub_auth_events_total",
			Help: "Auth state transitions by state",
		},
		[]string{"state"},
	)

	activeSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ffmclub_active_subscriptions",
			Help: "Live subscriptions by topic kind",
		},
		[]string{"kind"},
	)
)

func RecordRPC(method, code string, d time.Duration) {
	rpcRequestsTotal.WithLabelValues(method, code).Inc()
	rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

func RecordLike(matched bool) {
	likesTotal.Inc()
	if matched {
		matchesTotal.Inc()
	}
}

func RecordMessageSent() {
	messagesSentTotal.Inc()
}

func RecordMessagesRead(n int64) {
	messagesReadTotal.Add(float64(n))
}

func RecordAuthEvent(state string) {
	authEventsTotal.WithLabelValues(state).Inc()
}

func SubscriptionOpened(kind string) {
	activeSubscriptions.WithLabelValues(kind).Inc()
}

func SubscriptionClosed(kind string) {
	activeSubscriptions.WithLabelValues(kind).Dec()
}
