package gpbo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestSampleMVNRecoversCovariance(t *testing.T) {
	mu := []float64{1, -2, 0.5}
	sigma := mat.NewSymDense(3, []float64{
		2.0, 0.6, 0.3,
		0.6, 1.0, 0.2,
		0.3, 0.2, 0.5,
	})

	samples, err := SampleMVN(100000, mu, sigma, DefaultSampleJitter, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	r, c := samples.Dims()
	require.Equal(t, 100000, r)
	require.Equal(t, 3, c)

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, samples, nil)

	for i := 0; i < 3; i++ {
		assert.InDelta(t, mu[i], stat.Mean(mat.Col(nil, i, samples), nil), 0.02, "mean %d", i)

		for j := 0; j < 3; j++ {
			assert.InDelta(t, sigma.At(i, j), cov.At(i, j), 0.03, "cov (%d, %d)", i, j)
		}
	}
}

func TestSampleMVNDeterministic(t *testing.T) {
	sigma := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})

	a, err := SampleMVN(5, []float64{0, 0}, sigma, DefaultSampleJitter, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	b, err := SampleMVN(5, []float64{0, 0}, sigma, DefaultSampleJitter, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	assert.True(t, mat.Equal(a, b))
}

func TestSampleMVNSingularCovariance(t *testing.T) {
	// Rank one: both coordinates are the same variable.
	sigma := mat.NewSymDense(2, []float64{1, 1, 1, 1})

	samples, err := SampleMVN(50, []float64{0, 0}, sigma, DefaultSampleJitter, rand.New(rand.NewSource(4)))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.InDelta(t, samples.At(i, 0), samples.At(i, 1), 1e-3)
	}
}

func TestSampleMVNErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sigma := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	_, err := SampleMVN(1, []float64{0, 0, 0}, sigma, DefaultSampleJitter, rng)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = SampleMVN(0, []float64{0, 0}, sigma, DefaultSampleJitter, rng)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = SampleMVN(1, []float64{0, 0}, sigma, DefaultSampleJitter, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = SampleMVN(1, []float64{0, 0}, sigma, -1, rng)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	indefinite := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, err = SampleMVN(1, []float64{0, 0}, indefinite, DefaultSampleJitter, rng)
	assert.ErrorIs(t, err, ErrNotPositiveDefinite)
}
