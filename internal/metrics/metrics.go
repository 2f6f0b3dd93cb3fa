// Package metrics exposes Prometheus collectors for the cost model and the
// HTTP API. A nil *Recorder is valid and records nothing.
package metrics

import (
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
)

// Recorder owns every collector, registered on one registry.
type Recorder struct {
	registry *prometheus.Registry

	retrains        *prometheus.CounterVec
	retrainDuration prometheus.Histogram
	trainingRows    prometheus.Gauge
	modelMAE        prometheus.Gauge
	bootstraps      *prometheus.CounterVec
	predictions     *prometheus.CounterVec
	observations    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// New creates collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		retrains: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcost_model_retrains_total",
				Help: "Model retrain attempts by outcome",
			},
			[]string{"outcome"},
		),
		retrainDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tripcost_model_retrain_duration_seconds",
				Help:    "Time spent loading rows, fitting and persisting the model",
				Buckets: prometheus.DefBuckets,
			},
		),
		trainingRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tripcost_model_training_rows",
				Help: "Rows used by the most recent successful retrain",
			},
		),
		modelMAE: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tripcost_model_mae",
				Help: "Held-out mean absolute error of the current model, NaN when validation was skipped",
			},
		),
		bootstraps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcost_model_bootstraps_total",
				Help: "Seed bootstrap attempts by outcome",
			},
			[]string{"outcome"},
		),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcost_predictions_total",
				Help: "Cost predictions by outcome",
			},
			[]string{"outcome"},
		),
		observations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcost_observations_total",
				Help: "Training rows appended by source",
			},
			[]string{"source"},
		),

		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		httpInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_inflight_requests",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}
}

// Registry returns the registry to expose, or nil for a nil Recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Retrain records one retrain. mae is nil when validation was skipped.
func (r *Recorder) Retrain(outcome string, rows int, mae *float64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.retrains.WithLabelValues(outcome).Inc()
	r.retrainDuration.Observe(elapsed.Seconds())
	if outcome != OutcomeOK {
		return
	}
	r.trainingRows.Set(float64(rows))
	if mae != nil {
		r.modelMAE.Set(*mae)
	} else {
		r.modelMAE.Set(math.NaN())
	}
}

// Bootstrap records a seed bootstrap attempt.
func (r *Recorder) Bootstrap(outcome string) {
	if r == nil {
		return
	}
	r.bootstraps.WithLabelValues(outcome).Inc()
}

// Prediction records a prediction request.
func (r *Recorder) Prediction(outcome string) {
	if r == nil {
		return
	}
	r.predictions.WithLabelValues(outcome).Inc()
}

// Observations records n appended rows from source ("seed" or "user").
func (r *Recorder) Observations(source string, n int) {
	if r == nil {
		return
	}
	r.observations.WithLabelValues(source).Add(float64(n))
}

// HTTPStart marks a request in flight and returns the function that completes it.
func (r *Recorder) HTTPStart() func(method, route string, status int) {
	if r == nil {
		return func(string, string, int) {}
	}
	start := time.Now()
	r.httpInFlight.Inc()
	return func(method, route string, status int) {
		r.httpInFlight.Dec()
		labels := prometheus.Labels{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		r.httpRequests.With(labels).Inc()
		r.httpDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
