package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal    *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	predictions   *prometheus.CounterVec
	verifications prometheus.Counter
	accuracy      prometheus.Histogram
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	connected     prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpulse_ticks_total",
				Help: "Total number of price ticks collected",
			},
			[]string{"symbol"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goldpulse_last_price",
				Help: "Last collected price for a symbol",
			},
			[]string{"symbol"},
		),
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpulse_predictions_total",
				Help: "Total number of forecasts produced",
			},
			[]string{"method", "signal"},
		),
		verifications: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "goldpulse_verifications_total",
				Help: "Total number of forecasts verified",
			},
		),
		accuracy: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "goldpulse_forecast_accuracy",
				Help:    "Accuracy scores of verified forecasts",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		connected: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldpulse_terminal_connected",
				Help: "Whether the terminal connection is currently up",
			},
		),
	}
}

// RecordTick records a collected price tick.
func (r *Recorder) RecordTick(symbol string, price float64) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordPrediction records a produced forecast.
func (r *Recorder) RecordPrediction(method, signal string) {
	r.predictions.WithLabelValues(method, signal).Inc()
}

// RecordVerification records a verified forecast and its accuracy score.
func (r *Recorder) RecordVerification(accuracy float64) {
	r.verifications.Inc()
	r.accuracy.Observe(accuracy)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// SetConnected reports terminal connection state.
func (r *Recorder) SetConnected(connected bool) {
	if connected {
		r.connected.Set(1)
	} else {
		r.connected.Set(0)
	}
}
