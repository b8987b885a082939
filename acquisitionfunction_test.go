package gpbo

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func sinObjective(x float64) float64 { return math.Sin(12*x)*x + 0.5*x*x }

// sinGP is fitted to four points of sin(12x)x + 0.5x².
func sinGP(t *testing.T) (*FittedGP, TrainingSet) {
	t.Helper()

	xs := []float64{0.1, 0.2, 0.7, 0.75}
	y := make([]float64, len(xs))

	for i, x := range xs {
		y[i] = sinObjective(x)
	}

	ts, err := NewTrainingSet(mustPoints1D(xs), y)
	require.NoError(t, err)

	gp, err := FitGP(RBF{}, ts, 1e-4, RBF{}.Schema().Defaults(), DefaultFitConfig())
	require.NoError(t, err)

	return gp, ts
}

func grid(n int) *mat.Dense {
	xs := make([]float64, n)
	floats.Span(xs, 0, 1)

	return mustPoints1D(xs)
}

func TestExpectedImprovementMatchesClosedForm(t *testing.T) {
	gp, ts := sinGP(t)
	candidates := grid(100)

	best, _, err := ts.Incumbent(Minimize)
	require.NoError(t, err)

	proposal, err := Propose(context.Background(), gp, candidates, EI, AcquisitionParams{
		Task:      Minimize,
		Incumbent: best,
		Xi:        DefaultXi,
	})
	require.NoError(t, err)

	// Reference: textbook posterior with an explicit inverse, then EI.
	x := ts.X()
	n := ts.Len()

	ktt, err := Covariance(RBF{}, x, x, gp.Params())
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		ktt.Set(i, i, ktt.At(i, i)+1e-4*1e-4+Jitter)
	}

	var inv mat.Dense
	require.NoError(t, inv.Inverse(ktt))

	ktp, err := Covariance(RBF{}, x, candidates, gp.Params())
	require.NoError(t, err)

	sf, _ := gp.Params().Get("sigma_f")

	var tmp mat.Dense
	tmp.Mul(ktp.T(), &inv)

	var mu mat.VecDense
	mu.MulVec(&tmp, mat.NewVecDense(n, ts.Y()))

	ref := make([]float64, 100)

	for j := range ref {
		v := sf*sf + Jitter - mat.Dot(tmp.RowView(j), ktp.ColView(j))
		s := math.Sqrt(math.Max(v, 0))

		if s == 0 {
			continue
		}

		imp := best - mu.AtVec(j) - DefaultXi
		z := imp / s
		ref[j] = imp*distuv.UnitNormal.CDF(z) + s*distuv.UnitNormal.Prob(z)
	}

	want := floats.MaxIdx(ref)

	assert.LessOrEqual(t, math.Abs(float64(proposal.Index-want)), 1.0,
		"EI arg-max at %d, reference at %d", proposal.Index, want)
	assert.Equal(t, candidates.At(proposal.Index, 0), proposal.Point[0])
	assert.Len(t, proposal.Scores, 100)
}

func TestConfidenceBoundWidth(t *testing.T) {
	gp, _ := sinGP(t)

	pred, err := gp.Predict(grid(100))
	require.NoError(t, err)

	std := pred.Std()

	ucb, err := UpperConfidenceBound(pred.Mean, std, 2)
	require.NoError(t, err)

	lcb, err := LowerConfidenceBound(pred.Mean, std, 2)
	require.NoError(t, err)

	for i := range ucb {
		// κσ is exact for κ = 2; only adding the mean rounds.
		assert.Equal(t, pred.Mean[i]+2*std[i], ucb[i])
		assert.Equal(t, pred.Mean[i]-2*std[i], lcb[i])
		assert.InDelta(t, 4*std[i], ucb[i]-lcb[i], 1e-12*math.Max(1, math.Abs(pred.Mean[i])))
	}

	cb, err := ConfidenceBound(pred.Mean, std, Maximize, 2)
	require.NoError(t, err)
	assert.Equal(t, ucb, cb)

	cb, err = ConfidenceBound(pred.Mean, std, Minimize, 2)
	require.NoError(t, err)
	assert.Equal(t, lcb, cb)

	// With a zero mean nothing rounds and the width is exactly 4σ.
	zero := make([]float64, len(std))

	ucb, err = UpperConfidenceBound(zero, std, 2)
	require.NoError(t, err)

	lcb, err = LowerConfidenceBound(zero, std, 2)
	require.NoError(t, err)

	for i := range ucb {
		assert.Equal(t, 4*std[i], ucb[i]-lcb[i])
	}
}

func TestExpectedImprovementProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	mean := make([]float64, 200)
	std := make([]float64, 200)

	for i := range mean {
		mean[i] = rng.NormFloat64() * 3
		if i%4 != 0 {
			std[i] = rng.Float64() * 2
		}
	}

	for _, task := range []Task{Minimize, Maximize} {
		for _, xi := range []float64{0, 0.01, 1} {
			ei, err := ExpectedImprovement(mean, std, 0.5, task, xi)
			require.NoError(t, err)

			for i, v := range ei {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.False(t, math.IsNaN(v))

				if std[i] == 0 {
					assert.Equal(t, 0.0, v)
				}
			}
		}
	}
}

func TestExpectedImprovementValue(t *testing.T) {
	// imp = 1 - 0 - 0 = 1, σ = 1: EI = Φ(1) + φ(1).
	ei, err := ExpectedImprovement([]float64{0}, []float64{1}, 1, Minimize, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.8413447460685429+0.24197072451914337, ei[0], 1e-12)

	// Maximizing mirrors the improvement.
	ei, err = ExpectedImprovement([]float64{2}, []float64{1}, 1, Maximize, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.8413447460685429+0.24197072451914337, ei[0], 1e-12)
}

func TestProbabilityOfImprovement(t *testing.T) {
	pi, err := ProbabilityOfImprovement(
		[]float64{0, 0, 2, 0.5},
		[]float64{1, 0, 0, 0},
		1, Minimize, 0,
	)
	require.NoError(t, err)

	assert.InDelta(t, 0.8413447460685429, pi[0], 1e-12)
	assert.Equal(t, []float64{1, 0, 1}, []float64{pi[1], pi[2], pi[3]})

	for _, v := range pi {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestAcquisitionErrors(t *testing.T) {
	_, err := ExpectedImprovement([]float64{0}, []float64{1, 2}, 0, Minimize, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = ExpectedImprovement([]float64{0}, []float64{1}, 0, "up", 0)
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = ProbabilityOfImprovement([]float64{0}, []float64{1}, 0, Minimize, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ProbabilityOfImprovement([]float64{0}, []float64{-1}, 0, Minimize, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = UpperConfidenceBound([]float64{0}, []float64{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ConfidenceBound([]float64{0}, []float64{1}, "", 2)
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = ThompsonSampling([]float64{0}, mat.NewSymDense(1, []float64{1}), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestThompsonSamplingDeterministic(t *testing.T) {
	gp, _ := sinGP(t)

	pred, err := gp.Predict(grid(20))
	require.NoError(t, err)

	a, err := ThompsonSampling(pred.Mean, pred.Covariance, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	b, err := ThompsonSampling(pred.Mean, pred.Covariance, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 20)
}

func TestProposeSelectionRule(t *testing.T) {
	gp, ts := sinGP(t)
	candidates := grid(50)

	best, _, err := ts.Incumbent(Minimize)
	require.NoError(t, err)

	for _, tt := range []struct {
		acq      Acquisition
		task     Task
		maximize bool
	}{
		{EI, Minimize, true},
		{PI, Minimize, true},
		{CB, Minimize, false},
		{CB, Maximize, true},
		{TS, Minimize, false},
		{TS, Maximize, true},
		{KG, Minimize, true},
	} {
		p, err := Propose(context.Background(), gp, candidates, tt.acq, AcquisitionParams{
			Task:        tt.task,
			Incumbent:   best,
			Xi:          DefaultXi,
			Kappa:       DefaultKappa,
			Samples:     20,
			Workers:     2,
			RandomState: rand.New(rand.NewSource(1)),
		})
		require.NoError(t, err, "%s/%s", tt.acq, tt.task)

		want := floats.MinIdx(p.Scores)
		if tt.maximize {
			want = floats.MaxIdx(p.Scores)
		}

		assert.Equal(t, want, p.Index, "%s/%s", tt.acq, tt.task)
		assert.Len(t, p.Prediction.Mean, 50)
	}

	_, err = Propose(context.Background(), gp, candidates, "ucb", AcquisitionParams{Task: Minimize})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Propose(context.Background(), gp, candidates, EI, AcquisitionParams{})
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestParseAcquisition(t *testing.T) {
	for _, s := range []string{"ei", "pi", "cb", "ts", "kg"} {
		a, err := ParseAcquisition(s)
		require.NoError(t, err)
		assert.Equal(t, Acquisition(s), a)
	}

	_, err := ParseAcquisition("ucb")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
