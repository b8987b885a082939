package gpbo

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

//////
// Available acquisition functions for Bayesian optimization.
// Each function scores candidate points from the GP posterior, balancing
// exploration (trying uncertain areas) and exploitation (refining known good
// areas). None of them mutate the GP or the training data.
//////

// Default acquisition parameters.
const (
	DefaultXi      = 0.01
	DefaultKappa   = 2.0
	DefaultSamples = 100
)

// Proposal is the candidate chosen by Propose.
type Proposal struct {
	// Index is the row of the chosen candidate.
	Index int

	// Point is a copy of the chosen candidate.
	Point []float64

	// Scores holds the acquisition score of every candidate.
	Scores []float64

	// Prediction is the posterior at the candidates.
	Prediction *Prediction
}

// ExpectedImprovement (EI) calculates the expected value of the improvement
// over the incumbent.
//
// How it works:
//   - For minimization imp = incumbent − μ − ξ, for maximization
//     imp = μ − incumbent − ξ
//   - EI = imp·Φ(imp/σ) + σ·φ(imp/σ)
//   - EI is exactly 0 wherever σ = 0
//
// Parameters:
// - mean, std: Posterior mean and standard deviation per candidate
// - incumbent: Best value observed so far
// - task: Minimize or Maximize
// - xi: Exploration margin ξ ≥ 0 (higher = more exploration)
//
// Returns:
// - []float64: Non-negative score per candidate (higher is better)
//
// Example:
//
//	ei, err := ExpectedImprovement(pred.Mean, pred.Std(), best, Minimize, DefaultXi)
func ExpectedImprovement(mean, std []float64, incumbent float64, task Task, xi float64) ([]float64, error) {
	if err := checkImprovementArgs(mean, std, task, xi); err != nil {
		return nil, fmt.Errorf("ExpectedImprovement: %w", err)
	}

	out := make([]float64, len(mean))

	for i := range mean {
		if std[i] == 0 {
			continue
		}

		imp := improvement(mean[i], incumbent, task, xi)
		z := imp / std[i]

		out[i] = math.Max(imp*normalCDF(z)+std[i]*normalPDF(z), 0)
	}

	return out, nil
}

// ProbabilityOfImprovement (PI) calculates the probability that a candidate
// improves on the incumbent by more than ξ.
//
// How it works:
//   - PI = Φ(imp/σ) with imp defined as in ExpectedImprovement
//   - At σ = 0 the limit is taken explicitly: 1 when imp > 0, else 0
//
// When to use:
// - When you want to be conservative in exploring new points
// - In problems where being "probably better" matters more than "how much"
func ProbabilityOfImprovement(mean, std []float64, incumbent float64, task Task, xi float64) ([]float64, error) {
	if err := checkImprovementArgs(mean, std, task, xi); err != nil {
		return nil, fmt.Errorf("ProbabilityOfImprovement: %w", err)
	}

	out := make([]float64, len(mean))

	for i := range mean {
		imp := improvement(mean[i], incumbent, task, xi)

		switch {
		case std[i] > 0:
			out[i] = normalCDF(imp / std[i])
		case imp > 0:
			out[i] = 1
		}
	}

	return out, nil
}

// LowerConfidenceBound returns μ − κσ per candidate. Lower is better when
// minimizing.
func LowerConfidenceBound(mean, std []float64, kappa float64) ([]float64, error) {
	return confidenceBound(mean, std, kappa, -1, "LowerConfidenceBound")
}

// UpperConfidenceBound returns μ + κσ per candidate. Higher is better when
// maximizing.
func UpperConfidenceBound(mean, std []float64, kappa float64) ([]float64, error) {
	return confidenceBound(mean, std, kappa, 1, "UpperConfidenceBound")
}

// ConfidenceBound returns the lower bound for Minimize and the upper bound
// for Maximize.
//
// Example:
//
//	cb, err := ConfidenceBound(pred.Mean, pred.Std(), Minimize, DefaultKappa)
//	next := floats.MinIdx(cb)
func ConfidenceBound(mean, std []float64, task Task, kappa float64) ([]float64, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("ConfidenceBound: %w", err)
	}

	if task == Maximize {
		return UpperConfidenceBound(mean, std, kappa)
	}

	return LowerConfidenceBound(mean, std, kappa)
}

// ThompsonSampling draws one joint sample of the objective at every candidate
// from N(mean, cov). The next point is the arg-min (or arg-max) of the
// returned vector.
//
// Unlike the other acquisition functions it needs the full posterior
// covariance: independent per-point draws would ignore correlations between
// neighbouring candidates.
//
// Warning:
// - rng must not be nil and must not be shared between concurrent runs
func ThompsonSampling(mean []float64, cov mat.Symmetric, rng *rand.Rand) ([]float64, error) {
	sample, err := SampleMVN(1, mean, cov, DefaultSampleJitter, rng)
	if err != nil {
		return nil, fmt.Errorf("ThompsonSampling: %w", err)
	}

	return sample.RawRowView(0), nil
}

// Propose scores every candidate with acq and returns the best one.
//
// Parameters:
// - ctx: Cancels the Knowledge Gradient; ignored by closed-form scores
// - gp: Fitted GP
// - candidates: Candidate points (m×d)
// - acq: Acquisition strategy
// - params: Acquisition parameters (Task is required)
//
// Returns:
//   - Proposal: Chosen index and point, all scores, posterior at candidates
//   - error: Input-contract violations or numerical failures from the
//     posterior
//
// Selection rule:
// - EI, PI, KG: arg-max of the score
// - CB, TS: arg-min when minimizing, arg-max when maximizing
func Propose(ctx context.Context, gp *FittedGP, candidates mat.Matrix, acq Acquisition, params AcquisitionParams) (Proposal, error) {
	if err := params.Task.Validate(); err != nil {
		return Proposal{}, fmt.Errorf("Propose: %w", err)
	}

	xc, err := AsPoints(candidates)
	if err != nil {
		return Proposal{}, fmt.Errorf("Propose: %w", err)
	}

	pred, err := gp.Predict(xc)
	if err != nil {
		return Proposal{}, fmt.Errorf("Propose: %w", err)
	}

	var (
		scores   []float64
		maximize = true
	)

	switch acq {
	case EI:
		scores, err = ExpectedImprovement(pred.Mean, pred.Std(), params.Incumbent, params.Task, params.Xi)
	case PI:
		scores, err = ProbabilityOfImprovement(pred.Mean, pred.Std(), params.Incumbent, params.Task, params.Xi)
	case CB:
		scores, err = ConfidenceBound(pred.Mean, pred.Std(), params.Task, params.Kappa)
		maximize = params.Task == Maximize
	case TS:
		scores, err = ThompsonSampling(pred.Mean, pred.Covariance, params.RandomState)
		maximize = params.Task == Maximize
	case KG:
		scores, err = knowledgeGradient(ctx, gp, xc, pred, params.Task, params.Samples, params.RandomState, params.Workers)
	default:
		err = fmt.Errorf("acquisition %q: %w", string(acq), ErrInvalidArgument)
	}

	if err != nil {
		return Proposal{}, fmt.Errorf("Propose: %w", err)
	}

	idx := bestIndex(scores, maximize)

	return Proposal{
		Index:      idx,
		Point:      mat.Row(nil, idx, xc),
		Scores:     scores,
		Prediction: pred,
	}, nil
}

//////
// Helpers.
//////

// improvement returns the signed improvement of mean over the incumbent,
// less the margin xi.
func improvement(mean, incumbent float64, task Task, xi float64) float64 {
	if task == Maximize {
		return mean - incumbent - xi
	}

	return incumbent - mean - xi
}

func checkImprovementArgs(mean, std []float64, task Task, xi float64) error {
	if err := task.Validate(); err != nil {
		return err
	}

	if xi < 0 {
		return fmt.Errorf("xi %g is negative: %w", xi, ErrInvalidArgument)
	}

	return checkMeanStd(mean, std)
}

func checkMeanStd(mean, std []float64) error {
	if len(mean) != len(std) {
		return fmt.Errorf("%d means, %d standard deviations: %w", len(mean), len(std), ErrDimensionMismatch)
	}

	for i, s := range std {
		if s < 0 || math.IsNaN(s) {
			return fmt.Errorf("standard deviation %g at %d: %w", s, i, ErrInvalidArgument)
		}
	}

	return nil
}

func confidenceBound(mean, std []float64, kappa, sign float64, op string) ([]float64, error) {
	if !(kappa > 0) {
		return nil, fmt.Errorf("%s: kappa %g must be positive: %w", op, kappa, ErrInvalidArgument)
	}

	if err := checkMeanStd(mean, std); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]float64, len(mean))
	for i := range mean {
		out[i] = mean[i] + sign*kappa*std[i]
	}

	return out, nil
}
