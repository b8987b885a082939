package gpbo

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.observeEvaluation(20 * time.Millisecond)
	m.observeEvaluation(30 * time.Millisecond)
	m.observeFit(fitConverged)
	m.observeFit(fitNotConverged)
	m.observeFit(fitConverged)
	m.setBest(-1.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fits.WithLabelValues(fitConverged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fits.WithLabelValues(fitNotConverged)))
	assert.Equal(t, -1.5, testutil.ToFloat64(m.bestValue))
	assert.Equal(t, 1, testutil.CollectAndCount(m.evaluationDuration))

	// Registering twice on the same registry fails.
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.observeEvaluation(time.Second)
		m.observeFit(fitFailed)
		m.setBest(1)
	})
}

func TestUnregisteredMetrics(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	m.observeEvaluation(time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations))
}
