package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Service metrics for production monitoring.
var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_predictions_total",
			Help: "Total number of predictions served",
		},
		[]string{"prediction"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_prediction_duration_seconds",
			Help:    "Single-reading prediction latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~0.4s
		},
	)

	TrainingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_trainings_total",
			Help: "Total number of model training runs",
		},
		[]string{"status"}, // status: success/error
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_training_duration_seconds",
			Help:    "Model training duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	TrainingSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_ai_training_samples",
			Help: "Sample count of the currently deployed model",
		},
	)

	OutOfRangeReadings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_out_of_range_readings_total",
			Help: "Readings with a field outside its expected physical range",
		},
		[]string{"field"}, // field: voltage/temperature/power_output
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_ai_websocket_connections",
			Help: "Current number of active telemetry stream connections",
		},
	)
)
