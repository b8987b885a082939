package gpbo

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds prometheus collectors for optimization runs. A nil *Metrics
// records nothing.
type Metrics struct {
	evaluations        prometheus.Counter
	evaluationDuration prometheus.Histogram
	fits               *prometheus.CounterVec
	bestValue          prometheus.Gauge
}

// Fit outcome labels.
const (
	fitConverged    = "converged"
	fitNotConverged = "not_converged"
	fitFailed       = "failed"
)

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which is useful in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gpbo",
			Name:      "objective_evaluations_total",
			Help:      "Number of objective function evaluations.",
		}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gpbo",
			Name:      "objective_evaluation_duration_seconds",
			Help:      "Wall time spent in the objective function.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 10),
		}),
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gpbo",
			Name:      "gp_fits_total",
			Help:      "Number of GP hyperparameter fits by outcome.",
		}, []string{"outcome"}),
		bestValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gpbo",
			Name:      "best_objective_value",
			Help:      "Best objective value of the most recent run.",
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.evaluations, m.evaluationDuration, m.fits, m.bestValue} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("NewMetrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) observeEvaluation(d time.Duration) {
	if m == nil {
		return
	}

	m.evaluations.Inc()
	m.evaluationDuration.Observe(d.Seconds())
}

func (m *Metrics) observeFit(outcome string) {
	if m == nil {
		return
	}

	m.fits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setBest(v float64) {
	if m == nil {
		return
	}

	m.bestValue.Set(v)
}
