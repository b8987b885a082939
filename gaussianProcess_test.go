package gpbo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFitGPPredictIsRepeatable(t *testing.T) {
	ts := sinTrainingSet(t)
	query := mustPoints1D([]float64{0, 0.15, 0.4, 0.95, 1.2})

	run := func() *Prediction {
		gp, err := FitGP(Matern{}, ts, 0.01, Matern{}.Schema().Defaults(), DefaultFitConfig())
		require.NoError(t, err)

		pred, err := gp.Predict(query)
		require.NoError(t, err)

		return pred
	}

	a, b := run(), run()

	assert.Equal(t, a.Mean, b.Mean)
	assert.Equal(t, a.Variance, b.Variance)
	assert.True(t, mat.Equal(a.Covariance, b.Covariance))
}

func TestFitGPMatchesPosterior(t *testing.T) {
	ts := sinTrainingSet(t)
	query := mustPoints1D([]float64{0.05, 0.3, 0.6})

	gp, err := FitGP(RBF{}, ts, 0.01, RBF{}.Schema().Defaults(), DefaultFitConfig())
	require.NoError(t, err)

	pred, err := gp.Predict(query)
	require.NoError(t, err)

	ref, err := Posterior(RBF{}, query, ts.X(), ts.Y(), 0.01, gp.Params())
	require.NoError(t, err)

	assert.Equal(t, ref.Mean, pred.Mean)
	assert.Equal(t, ref.Variance, pred.Variance)
	assert.Equal(t, gp.Params().Values(), pred.Params.Values())

	assert.Equal(t, "rbf", gp.Kernel().Name())
	assert.Equal(t, 0.01, gp.Noise())
	assert.Equal(t, ts.Len(), gp.TrainingSet().Len())
	assert.Equal(t, gp.Params().Values(), gp.Fit().Params.Values())
}

func TestFittedGPIsUnaffectedByLaterObservations(t *testing.T) {
	ts := sinTrainingSet(t)
	query := mustPoints1D([]float64{0.6})

	gp, err := NewFittedGP(RBF{}, ts, 0.01, RBF{}.Schema().Defaults())
	require.NoError(t, err)

	before, err := gp.Predict(query)
	require.NoError(t, err)

	_, err = ts.Append([]float64{0.6}, 100)
	require.NoError(t, err)

	after, err := gp.Predict(query)
	require.NoError(t, err)

	assert.Equal(t, before.Mean, after.Mean)
}

func TestFittedGPConcurrentPredict(t *testing.T) {
	gp, err := NewFittedGP(Matern{}, sinTrainingSet(t), 0.01, Matern{}.Schema().Defaults())
	require.NoError(t, err)

	query := mustPoints1D([]float64{0.1, 0.5, 0.9})

	want, err := gp.Predict(query)
	require.NoError(t, err)

	var wg sync.WaitGroup

	results := make([]*Prediction, 8)

	for i := range results {
		i := i

		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i], _ = gp.Predict(query)
		}()
	}

	wg.Wait()

	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, want.Mean, got.Mean)
	}
}

func TestNewFittedGP(t *testing.T) {
	ts := sinTrainingSet(t)

	gp, err := NewFittedGP(RBF{}, ts, 0.01, RBF{}.Schema().Defaults())
	require.NoError(t, err)

	assert.Equal(t, "Fixed", gp.Fit().Status)
	assert.True(t, gp.Fit().Converged)
	assert.Equal(t, gp.Fit().NLL, gp.Fit().InitialNLL)

	_, err = NewFittedGP(RBF{}, TrainingSet{}, 0.01, RBF{}.Schema().Defaults())
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, err = NewFittedGP(RBF{}, ts, 0.01, Matern{}.Schema().Defaults())
	assert.ErrorIs(t, err, ErrParamMismatch)

	_, err = gp.Predict(mustPoint([]float64{1, 2}))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
