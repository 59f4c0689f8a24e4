package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the batch pipeline.
type Metrics struct {
	pairsTotal   *prometheus.CounterVec
	vectorsTotal prometheus.Counter
	pairSeconds  prometheus.Histogram
	inFlight     prometheus.Gauge
}

// NewMetrics registers the pipeline metrics with reg; a nil registerer
// uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		pairsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "openpiv",
				Subsystem: "batch",
				Name:      "pairs_total",
				Help:      "Image pairs handled, labeled by outcome",
			},
			[]string{"status"},
		),
		vectorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "openpiv",
				Subsystem: "batch",
				Name:      "vectors_total",
				Help:      "Displacement vectors produced",
			},
		),
		pairSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "openpiv",
				Subsystem: "batch",
				Name:      "pair_duration_seconds",
				Help:      "Per-pair correlation time in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "openpiv",
				Subsystem: "batch",
				Name:      "pairs_in_flight",
				Help:      "Pairs currently being correlated",
			},
		),
	}
}

func (m *Metrics) pairDone(status string) {
	if m != nil {
		m.pairsTotal.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) addVectors(n int) {
	if m != nil {
		m.vectorsTotal.Add(float64(n))
	}
}

func (m *Metrics) observePair(seconds float64) {
	if m != nil {
		m.pairSeconds.Observe(seconds)
	}
}

func (m *Metrics) flight(delta float64) {
	if m != nil {
		m.inFlight.Add(delta)
	}
}
