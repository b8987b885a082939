package gpbo

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

//////
// Const, vars, types.
//////

// nllPenalty replaces the likelihood wherever the covariance cannot be
// factorized, so the simplex walks away from that region.
const nllPenalty = 1e300

// FitConfig controls maximum-likelihood hyperparameter fitting.
type FitConfig struct {
	// MaxIterations bounds Nelder-Mead major iterations.
	MaxIterations int

	// MaxEvaluations bounds likelihood evaluations.
	MaxEvaluations int

	// Tolerance is the absolute NLL change below which the fit is
	// considered converged.
	Tolerance float64

	// SimplexSize is the initial simplex edge in search space (log space
	// for positive parameters).
	SimplexSize float64

	// Logger receives debug output for every fit. Nil disables logging.
	Logger *zap.Logger
}

// FitResult reports the outcome of a hyperparameter fit.
type FitResult struct {
	// Params are the best parameters found, clamped to the schema bounds.
	Params Params

	// NLL is the negative log marginal likelihood at Params.
	NLL float64

	// InitialNLL is the negative log marginal likelihood at the start point.
	InitialNLL float64

	// Converged is false when the optimizer stopped on an iteration or
	// evaluation limit. The parameters are still the best found.
	Converged bool

	// Status is the optimizer's termination status.
	Status string

	// Evaluations counts likelihood evaluations.
	Evaluations int
}

//////
// Exported functionalities.
//////

// DefaultFitConfig returns a default configuration.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		MaxIterations:  1000,
		MaxEvaluations: 4000,
		Tolerance:      1e-9,
		SimplexSize:    0.5,
	}
}

// NegLogMarginalLikelihood returns the negative log marginal likelihood of y
// under a zero-mean GP with kernel k and parameters p:
//
//	NLL = 0.5·yᵀ(K + noise²I)⁻¹y + Σ log diag(L) + 0.5·n·log(2π)
//
// where L is the Cholesky factor of K + (noise² + Jitter)·I. The quadratic
// form is evaluated through the factor, never an explicit inverse.
func NegLogMarginalLikelihood(k Kernel, x mat.Matrix, y []float64, noise float64, p Params) (float64, error) {
	theta, err := p.checkSchema(k)
	if err != nil {
		return 0, fmt.Errorf("NegLogMarginalLikelihood: %w", err)
	}

	xt, err := AsPoints(x)
	if err != nil {
		return 0, fmt.Errorf("NegLogMarginalLikelihood: %w", err)
	}

	if err := checkTraining(xt, y); err != nil {
		return 0, fmt.Errorf("NegLogMarginalLikelihood: %w", err)
	}

	v, err := negLogLikelihood(k, xt, y, noise, theta)
	if err != nil {
		return 0, fmt.Errorf("NegLogMarginalLikelihood: %w", err)
	}

	return v, nil
}

// Fit finds maximum-likelihood kernel hyperparameters for a training set.
//
// Parameters:
// - k: Kernel whose Schema fixes the parameter order
// - ts: Training data
// - noise: Observation-noise standard deviation (not fitted)
// - initial: Complete starting point bound to k.Schema()
// - cfg: Optimizer limits and logger
//
// Returns:
// - FitResult: Best parameters found and termination details
// - error: Input-contract violations, or ErrIllConditioned when the
// likelihood cannot be evaluated at the starting point
//
// Important notes:
//   - The minimizer is Nelder-Mead, unconstrained; parameters with a positive
//     lower bound are searched as log values so they stay positive
//   - The likelihood surface is often multimodal; the result is a local
//     optimum reachable from initial, with no multi-start
//   - Hitting an iteration limit is reported through Converged, not an error
//   - The result is never worse than initial
func Fit(k Kernel, ts TrainingSet, noise float64, initial Params, cfg FitConfig) (FitResult, error) {
	theta0, err := initial.checkSchema(k)
	if err != nil {
		return FitResult{}, fmt.Errorf("Fit: %w", err)
	}

	if ts.Len() == 0 {
		return FitResult{}, fmt.Errorf("Fit: %w", ErrEmptyTrainingSet)
	}

	schema := k.Schema()
	for i, v := range theta0 {
		if v < schema[i].Lower || v > schema[i].Upper {
			return FitResult{}, fmt.Errorf("Fit: %s=%g outside [%g, %g]: %w",
				schema[i].Name, v, schema[i].Lower, schema[i].Upper, ErrInvalidArgument)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger = logger.Named("fitter")

	x, y := ts.x, ts.y

	nll0, err := negLogLikelihood(k, x, y, noise, theta0)
	if err != nil {
		return FitResult{}, fmt.Errorf("Fit: initial parameters %v: %w", initial, err)
	}

	logger.Debug("fitting hyperparameters",
		zap.String("kernel", k.Name()),
		zap.Int("points", ts.Len()),
		zap.Stringer("initial", initial),
		zap.Float64("initial_nll", nll0),
	)

	evaluations := 0
	problem := optimize.Problem{
		Func: func(phi []float64) float64 {
			evaluations++

			v, err := negLogLikelihood(k, x, y, noise, fromSearchSpace(schema, phi))
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nllPenalty
			}

			return v
		},
	}

	settings := &optimize.Settings{
		MajorIterations: cfg.MaxIterations,
		FuncEvaluations: cfg.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   cfg.Tolerance,
			Iterations: 50,
		},
	}

	method := &optimize.NelderMead{SimplexSize: cfg.SimplexSize}

	result, optErr := optimize.Minimize(problem, toSearchSpace(schema, theta0), settings, method)
	if result == nil {
		return FitResult{}, fmt.Errorf("Fit: optimizer: %v: %w", optErr, ErrInvalidArgument)
	}

	best := fromSearchSpace(schema, result.X)

	nll, err := negLogLikelihood(k, x, y, noise, best)
	if err != nil || nll > nll0 {
		best, nll = append([]float64(nil), theta0...), nll0
	}

	params, err := NewParams(schema, best...)
	if err != nil {
		return FitResult{}, fmt.Errorf("Fit: %w", err)
	}

	res := FitResult{
		Params:      params,
		NLL:         nll,
		InitialNLL:  nll0,
		Converged:   optErr == nil && converged(result.Status),
		Status:      result.Status.String(),
		Evaluations: evaluations,
	}

	fields := []zap.Field{
		zap.String("kernel", k.Name()),
		zap.Stringer("params", params),
		zap.Float64("nll", nll),
		zap.String("status", res.Status),
		zap.Int("evaluations", evaluations),
	}

	if !res.Converged {
		logger.Warn("hyperparameter fit did not converge, using best found", append(fields, zap.NamedError("optimizer_error", optErr))...)
	} else {
		logger.Debug("hyperparameter fit finished", fields...)
	}

	return res, nil
}

//////
// Helpers.
//////

func negLogLikelihood(k Kernel, x *mat.Dense, y []float64, noise float64, theta []float64) (float64, error) {
	c, err := newConditioner(k, x, theta, noise)
	if err != nil {
		return 0, err
	}

	a, err := c.alpha(y)
	if err != nil {
		return 0, err
	}

	n := float64(len(y))

	// LogDet is 2·Σ log diag(L).
	return 0.5*floats.Dot(y, a.RawVector().Data) + 0.5*c.chol.LogDet() + 0.5*n*math.Log(2*math.Pi), nil
}

// toSearchSpace maps parameters to the optimizer's unconstrained vector.
func toSearchSpace(schema ParamSchema, theta []float64) []float64 {
	phi := make([]float64, len(theta))
	for i, v := range theta {
		if schema[i].Lower > 0 {
			phi[i] = math.Log(v)
		} else {
			phi[i] = v
		}
	}

	return phi
}

// fromSearchSpace is the inverse of toSearchSpace followed by clamping to
// the schema bounds.
func fromSearchSpace(schema ParamSchema, phi []float64) []float64 {
	theta := make([]float64, len(phi))
	for i, v := range phi {
		if schema[i].Lower > 0 {
			v = math.Exp(v)
		}

		theta[i] = schema.clamp(i, v)
	}

	return theta
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.FunctionThreshold,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	}

	return false
}
