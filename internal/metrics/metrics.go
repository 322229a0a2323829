// Package metrics provides Prometheus metrics collection for the powercast
// prediction service. All metrics are exposed on the /metrics endpoint of the
// API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	PredictionsTotal   prometheus.Counter   // Total number of predictions served
	PredictionFailures prometheus.Counter   // Total number of failed predictions
	InvalidInputs      prometheus.Counter   // Total number of rejected feature vectors
	PredictionLatency  prometheus.Histogram // End-to-end prediction latency in seconds
	ForecastValues     prometheus.Histogram // Distribution of combined forecast values
	TreeModelAge       prometheus.Gauge     // Age of the tree model artifact in seconds
	SeqModelAge        prometheus.Gauge     // Age of the sequence model artifact in seconds
	HistoryWrites      prometheus.Counter   // Total prediction records persisted
	HistoryWriteErrors prometheus.Counter   // Total prediction record persistence failures
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// This allows for isolated metric collection in tests without affecting the
// global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed predictions",
		}),
		InvalidInputs: factory.NewCounter(prometheus.CounterOpts{
			Name: "invalid_inputs_total",
			Help: "Total number of rejected feature vectors",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		ForecastValues: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forecast_values",
			Help:    "Distribution of combined forecast values",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 16),
		}),
		TreeModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tree_model_age_seconds",
			Help: "Age of the tree model artifact in seconds",
		}),
		SeqModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "seq_model_age_seconds",
			Help: "Age of the sequence model artifact in seconds",
		}),
		HistoryWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_writes_total",
			Help: "Total prediction records persisted",
		}),
		HistoryWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_write_errors_total",
			Help: "Total prediction record persistence failures",
		}),
	}
}
