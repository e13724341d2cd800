package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	stageDuration *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	trainingLoss  *prometheus.GaugeVec
	lastForecast  *prometheus.GaugeVec
	runsTotal     *prometheus.CounterVec
}

// New creates a recorder registered with reg. A nil reg leaves the
// collectors unregistered.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricecast_stage_duration_seconds",
				Help:    "Duration of forecast run stages in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"stage"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_errors_total",
				Help: "Total number of failed stages",
			},
			[]string{"stage"},
		),
		trainingLoss: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricecast_training_loss",
				Help: "Loss after the last training epoch",
			},
			[]string{"symbol"},
		),
		lastForecast: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricecast_last_forecast",
				Help: "Last predicted next-step close",
			},
			[]string{"symbol"},
		),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_runs_total",
				Help: "Forecast runs by result",
			},
			[]string{"symbol", "result"},
		),
	}
}

func (r *Recorder) RecordStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) RecordError(stage string) {
	r.errorsTotal.WithLabelValues(stage).Inc()
}

func (r *Recorder) RecordTrainingLoss(symbol string, loss float64) {
	r.trainingLoss.WithLabelValues(symbol).Set(loss)
}

func (r *Recorder) RecordForecast(symbol string, value float64) {
	r.lastForecast.WithLabelValues(symbol).Set(value)
}

func (r *Recorder) RecordRun(symbol, result string) {
	r.runsTotal.WithLabelValues(symbol, result).Inc()
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordStage(string, time.Duration)  {}
func (Nop) RecordError(string)                 {}
func (Nop) RecordTrainingLoss(string, float64) {}
func (Nop) RecordForecast(string, float64)     {}
func (Nop) RecordRun(string, string)           {}
