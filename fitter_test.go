package gpbo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func sinTrainingSet(t *testing.T) TrainingSet {
	t.Helper()

	xs := []float64{0.1, 0.2, 0.35, 0.5, 0.7, 0.75, 0.9}
	y := make([]float64, len(xs))

	for i, x := range xs {
		y[i] = math.Sin(12*x)*x + 0.5*x*x
	}

	ts, err := NewTrainingSet(mustPoints1D(xs), y)
	require.NoError(t, err)

	return ts
}

func TestNegLogMarginalLikelihood(t *testing.T) {
	ts := sinTrainingSet(t)
	noise := 0.1

	p, err := NewParams(RBF{}.Schema(), 0.4, 1.2)
	require.NoError(t, err)

	got, err := NegLogMarginalLikelihood(RBF{}, ts.X(), ts.Y(), noise, p)
	require.NoError(t, err)

	K, err := Covariance(RBF{}, ts.X(), ts.X(), p)
	require.NoError(t, err)

	n := ts.Len()
	for i := 0; i < n; i++ {
		K.Set(i, i, K.At(i, i)+noise*noise+Jitter)
	}

	var inv mat.Dense
	require.NoError(t, inv.Inverse(K))

	var a mat.VecDense
	a.MulVec(&inv, mat.NewVecDense(n, ts.Y()))

	logDet, sign := mat.LogDet(K)
	require.Equal(t, 1.0, sign)

	want := 0.5*floats.Dot(ts.Y(), a.RawVector().Data) + 0.5*logDet + 0.5*float64(n)*math.Log(2*math.Pi)

	assert.InDelta(t, want, got, 1e-9)
}

func TestFitImprovesLikelihood(t *testing.T) {
	ts := sinTrainingSet(t)

	for _, k := range []Kernel{RBF{}, Matern{Nu: 2.5}} {
		res, err := Fit(k, ts, 0.01, k.Schema().Defaults(), DefaultFitConfig())
		require.NoError(t, err, k.Name())

		assert.LessOrEqual(t, res.NLL, res.InitialNLL, k.Name())
		assert.Positive(t, res.Evaluations)
		assert.NotEmpty(t, res.Status)

		nll, err := NegLogMarginalLikelihood(k, ts.X(), ts.Y(), 0.01, res.Params)
		require.NoError(t, err)
		assert.InDelta(t, nll, res.NLL, 1e-9)

		for i, ps := range k.Schema() {
			v := res.Params.Values()[i]
			assert.GreaterOrEqual(t, v, ps.Lower, ps.Name)
			assert.LessOrEqual(t, v, ps.Upper, ps.Name)
		}
	}
}

func TestFitIsDeterministic(t *testing.T) {
	ts := sinTrainingSet(t)

	a, err := Fit(RBF{}, ts, 0.01, RBF{}.Schema().Defaults(), DefaultFitConfig())
	require.NoError(t, err)

	b, err := Fit(RBF{}, ts, 0.01, RBF{}.Schema().Defaults(), DefaultFitConfig())
	require.NoError(t, err)

	assert.Equal(t, a.Params.Values(), b.Params.Values())
	assert.Equal(t, a.NLL, b.NLL)
}

func TestFitIterationLimitIsNotAnError(t *testing.T) {
	ts := sinTrainingSet(t)

	core, logs := observer.New(zap.WarnLevel)

	cfg := DefaultFitConfig()
	cfg.MaxIterations = 1
	cfg.Logger = zap.New(core)

	res, err := Fit(RBF{}, ts, 0.01, RBF{}.Schema().Defaults(), cfg)
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.LessOrEqual(t, res.NLL, res.InitialNLL)
	assert.Equal(t, 1, logs.FilterMessageSnippet("did not converge").Len())
}

func TestFitErrors(t *testing.T) {
	ts := sinTrainingSet(t)

	_, err := Fit(RBF{}, ts, 0.01, Matern{}.Schema().Defaults(), DefaultFitConfig())
	assert.ErrorIs(t, err, ErrParamMismatch)

	_, err = Fit(RBF{}, TrainingSet{}, 0.01, RBF{}.Schema().Defaults(), DefaultFitConfig())
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	// A kernel whose declared default lies outside its own bounds.
	k := outOfBoundsDefault{}

	_, err = Fit(k, ts, 0.01, k.Schema().Defaults(), DefaultFitConfig())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

type outOfBoundsDefault struct{ RBF }

func (outOfBoundsDefault) Schema() ParamSchema {
	s := RBF{}.Schema()
	s[0].Default = 1e9

	return s
}

func TestSearchSpaceRoundTrip(t *testing.T) {
	schema := ParamSchema{
		{Name: "positive", Default: 1, Lower: 1e-3, Upper: 1e3},
		{Name: "free", Default: 0, Lower: -5, Upper: 5},
	}

	theta := []float64{2.5, -1.5}
	phi := toSearchSpace(schema, theta)

	assert.InDelta(t, math.Log(2.5), phi[0], 1e-15)
	assert.Equal(t, -1.5, phi[1])
	assert.InDeltaSlice(t, theta, fromSearchSpace(schema, phi), 1e-12)

	// Out-of-range search points are clamped.
	assert.Equal(t, []float64{1e3, -5}, fromSearchSpace(schema, []float64{100, -100}))
}
