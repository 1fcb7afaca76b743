package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	HTTPRequestDurationSeconds prometheus.ObserverVec = httpRequestDuration

	WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Currently open relay connections.",
		},
	)

	WSEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_total",
			Help: "Relay events handled, by event name and result.",
		},
		[]string{"event", "result"},
	)

	MessagesRelayedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_relayed_total",
			Help: "Ciphertext messages persisted and fanned out.",
		},
	)

	SubscribersDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscribers_dropped_total",
			Help: "Connections dropped because their send buffer was full.",
		},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = httpRequestDuration.MustCurryWith(prometheus.Labels{"service": serviceName})

	prometheus.MustRegister(
		HTTPRequestsTotal,
		httpRequestDuration,
		WSConnectionsActive,
		WSEventsTotal,
		MessagesRelayedTotal,
		SubscribersDroppedTotal,
	)
}
