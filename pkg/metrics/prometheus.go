package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal     *prometheus.CounterVec
	eligibleSignals  prometheus.Gauge
	transitionsTotal *prometheus.CounterVec
	dispatchesTotal  *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldeck_feed_fetches_total",
				Help: "Total number of feed fetch attempts",
			},
			[]string{"result"},
		),
		eligibleSignals: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "signaldeck_eligible_signals",
				Help: "Number of signals currently eligible for display",
			},
		),
		transitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldeck_phase_transitions_total",
				Help: "Total number of signal phase transitions",
			},
			[]string{"from", "to"},
		),
		dispatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldeck_generation_dispatches_total",
				Help: "Total number of generation dispatch attempts",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldeck_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldeck_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records a feed fetch attempt by result.
func (r *Recorder) RecordFetch(result string) {
	r.fetchesTotal.WithLabelValues(result).Inc()
}

// RecordIngest records the number of eligible signals after an ingest pass.
func (r *Recorder) RecordIngest(eligible int) {
	r.eligibleSignals.Set(float64(eligible))
}

// RecordTransition records a signal phase transition.
func (r *Recorder) RecordTransition(from, to string) {
	r.transitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordDispatch records a generation dispatch attempt by result.
func (r *Recorder) RecordDispatch(result string) {
	r.dispatchesTotal.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
