package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	messagesSentTotal    prometheus.Counter
	threadSessionsActive prometheus.Gauge
	threadPollTicks      *prometheus.CounterVec
	notificationsMerged  *prometheus.CounterVec
	notificationFeedSecs prometheus.Histogram
	conversationFetches  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citale_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "citale_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citale_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		messagesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citale_messages_sent_total",
			Help: "Total number of direct messages persisted.",
		})

		threadSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "citale_thread_sessions_active",
			Help: "Number of live thread sync sessions.",
		})

		threadPollTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citale_thread_poll_ticks_total",
			Help: "Outcome of thread poll cycles.",
		}, []string{"result"})

		notificationsMerged = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citale_notifications_merged_total",
			Help: "Notifications merged into feeds, by variant.",
		}, []string{"kind"})

		notificationFeedSecs = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "citale_notification_feed_seconds",
			Help:    "Latency of notification feed aggregation.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		})

		conversationFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citale_conversation_fetches_total",
			Help: "Inbox aggregation attempts by outcome.",
		}, []string{"status"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			messagesSentTotal,
			threadSessionsActive,
			threadPollTicks,
			notificationsMerged,
			notificationFeedSecs,
			conversationFetches,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// MessagesSent exposes the counter for persisted direct messages.
func MessagesSent() prometheus.Counter {
	RegisterMetrics()
	return messagesSentTotal
}

// ThreadSessionsActive exposes the gauge for live thread sessions.
func ThreadSessionsActive() prometheus.Gauge {
	RegisterMetrics()
	return threadSessionsActive
}

// ThreadPollTicks exposes the counter for poll cycle outcomes.
func ThreadPollTicks() *prometheus.CounterVec {
	RegisterMetrics()
	return threadPollTicks
}

// NotificationsMerged exposes the per-variant merge counter.
func NotificationsMerged() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsMerged
}

// NotificationFeedLatency exposes the feed aggregation histogram.
func NotificationFeedLatency() prometheus.Histogram {
	RegisterMetrics()
	return notificationFeedSecs
}

// ConversationFetches exposes the inbox aggregation counter.
func ConversationFetches() *prometheus.CounterVec {
	RegisterMetrics()
	return conversationFetches
}
