package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClassificationsTotal tracks classified failures by category and code
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinicnet_classifications_total",
			Help: "Total number of classified request failures",
		},
		[]string{"category", "code"},
	)

	// RetryQueueDepth tracks tasks waiting in the retry queue
	RetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinicnet_retry_queue_depth",
			Help: "Number of tasks waiting in the retry queue",
		},
	)

	// RetryAttemptsTotal tracks queued retry attempts by outcome
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinicnet_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
		[]string{"outcome"},
	)

	// RetryEvictionsTotal tracks tasks dropped because the queue was full
	RetryEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinicnet_retry_evictions_total",
			Help: "Total number of tasks evicted from a full retry queue",
		},
	)

	// TerminalFailuresTotal tracks tasks that exhausted their retries
	TerminalFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinicnet_terminal_failures_total",
			Help: "Total number of tasks that failed after all retries",
		},
	)

	// ConnectivityOnline is 1 while the backend is reachable
	ConnectivityOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinicnet_connectivity_online",
			Help: "Whether the backend is currently reachable (1) or not (0)",
		},
	)

	// APIRequestDuration tracks backend call latency
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinicnet_api_request_duration_seconds",
			Help:    "Backend API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	// NotificationsTotal tracks emitted notices by kind
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinicnet_notifications_total",
			Help: "Total number of user notices emitted",
		},
		[]string{"kind"},
	)
)
