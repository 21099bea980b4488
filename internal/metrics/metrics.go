package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broiler_http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broiler_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BatchMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broiler_batch_mutations_total",
			Help: "Batch create/update/delete operations",
		},
		[]string{"operation"},
	)

	BackfillDaysWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broiler_backfill_days_written_total",
			Help: "Daily entries synthesized by backfill passes",
		},
	)

	SensorReadingsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broiler_sensor_readings_ingested_total",
			Help: "Readings accepted from the sensor hub",
		},
	)
)
