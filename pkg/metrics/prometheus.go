package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records pipeline metrics on its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	trainings        *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	predictions      *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	accuracy         prometheus.Gauge
	httpRequests     *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		trainings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorcast_trainings_total",
				Help: "Sector model trainings by outcome",
			},
			[]string{"sector", "outcome"},
		),
		trainingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sectorcast_training_duration_seconds",
				Help:    "Duration of a sector training run",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sector"},
		),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorcast_predictions_total",
				Help: "Sector predictions by outcome",
			},
			[]string{"outcome"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorcast_resolutions_total",
				Help: "Resolved predictions by direction result",
			},
			[]string{"result"},
		),
		accuracy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sectorcast_accuracy_rate",
				Help: "Most recently computed daily direction accuracy",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorcast_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
	}
}

// RecordTraining records one sector training outcome.
func (r *Recorder) RecordTraining(sector, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.trainings.WithLabelValues(sector, outcome).Inc()
	r.trainingDuration.WithLabelValues(sector).Observe(d.Seconds())
}

// RecordPrediction records a prediction outcome ("ok", "not_trained", "error").
func (r *Recorder) RecordPrediction(outcome string) {
	if r == nil {
		return
	}
	r.predictions.WithLabelValues(outcome).Inc()
}

// RecordResolution records whether a resolved prediction was correct.
func (r *Recorder) RecordResolution(correct bool) {
	if r == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	r.resolutions.WithLabelValues(result).Inc()
}

// SetAccuracy records the latest daily accuracy rate.
func (r *Recorder) SetAccuracy(rate float64) {
	if r == nil {
		return
	}
	r.accuracy.Set(rate)
}

// RecordHTTPRequest records a served request.
func (r *Recorder) RecordHTTPRequest(route, status string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, status).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
