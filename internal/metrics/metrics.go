package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applybot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "applybot_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// ApplicationsSubmitted counts accepted submissions per intake channel.
	ApplicationsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applybot_applications_submitted_total",
			Help: "Number of accepted application submissions",
		},
		[]string{"channel"},
	)

	// Decisions counts terminal transitions by outcome.
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applybot_decisions_total",
			Help: "Number of approve/reject decisions",
		},
		[]string{"outcome"},
	)

	// NotificationDeliveries counts per-recipient sends and edits.
	NotificationDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applybot_notification_deliveries_total",
			Help: "Number of notification sends and edits per result",
		},
		[]string{"op", "result"},
	)
)

func Init() {
	prometheus.MustRegister(HTTPRequests, RequestDuration, ApplicationsSubmitted, Decisions, NotificationDeliveries)
}
