package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Delivery attempts by channel, kind and outcome status",
		},
		[]string{"channel", "kind", "status"},
	)

	NotificationDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Duration of a single channel delivery",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"channel"},
	)

	NotificationBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_batch_tasks",
			Help:    "Number of delivery tasks per fan-out batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"operation"},
	)

	NotificationDeliveriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_deliveries_in_flight",
			Help: "Delivery tasks currently executing",
		},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Open websocket notification sessions",
		},
	)
)

// ObserveDelivery records one finished delivery task.
func ObserveDelivery(channel, kind, status string, d time.Duration) {
	NotificationDeliveries.WithLabelValues(channel, kind, status).Inc()
	NotificationDeliveryDuration.WithLabelValues(channel).Observe(d.Seconds())
}
