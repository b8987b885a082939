package gpbo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

// Phases reported in ProgressUpdate and Evaluation.
const (
	PhaseInitialSampling = "InitialSampling"
	PhaseOptimization    = "Optimization"
)

// Evaluation is one call of the objective.
type Evaluation[T constraints.Integer | constraints.Float] struct {
	// Phase is PhaseInitialSampling or PhaseOptimization.
	Phase string

	// Params are the values the objective was called with.
	Params []T

	// Value is what the objective returned.
	Value float64

	// Duration is the wall time spent inside the objective.
	Duration time.Duration
}

// Result is the outcome of Optimize.
type Result[T constraints.Integer | constraints.Float] struct {
	// RunID identifies the run in logs and progress updates.
	RunID string

	// BestParams are the best parameters found, in the order of the ranges.
	BestParams []T

	// BestValue is the objective value at BestParams.
	BestValue float64

	// History holds every evaluation in call order.
	History []Evaluation[T]

	// Fit is the hyperparameter fit of the last round, zero when no
	// model-guided round ran.
	Fit FitResult
}

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration.
func DefaultConfig() OptimizationConfig {
	return OptimizationConfig{
		Task:           Minimize,
		Iterations:     50,
		InitialSamples: 10,
		InitialDesign:  LatinHypercubeSampling,
		NumCandidates:  500,
		Acquisition:    EI,
		AcqParams: AcquisitionParams{
			Xi:      DefaultXi,
			Kappa:   DefaultKappa,
			Samples: DefaultSamples,
			Workers: 4,
		},
		Kernel:       Matern{Nu: 2.5},
		Noise:        1e-3,
		Normalize:    true,
		Fit:          DefaultFitConfig(),
		Seed:         time.Now().UnixNano(),
		ProgressChan: nil, // Default to no progress updates.
	}
}

// Optimize uses Bayesian optimization to find the parameters that minimize
// (or maximize) an expensive objective. It combines Gaussian Process
// regression with acquisition functions to spend as few evaluations as
// possible.
//
// Type Parameter:
//   - T: The numeric type for parameters (integer or float)
//
// Parameters:
// - ctx: Stops the run between evaluations
// - config: OptimizationConfig controlling the optimization process
// - objective: The function being optimized
// - ranges: One ParameterRange per dimension of the search space
//
// Returns:
//   - Result[T]: Best parameters and value, plus the evaluation history
//   - error: Invalid configuration, an objective error, a numerical failure or
//     ctx cancellation. On failure after the first evaluation the Result holds
//     everything observed so far
//
// Usage example:
//
//	config := DefaultConfig()
//	config.Iterations = 30
//
//	res, err := Optimize(ctx, config, ObjectiveFunc[float64](func(p ...float64) (float64, error) {
//	    return trainModel(p[0], p[1])
//	}),
//	    ParameterRange[float64]{Min: 0.0001, Max: 0.1}, // Learning rate
//	    ParameterRange[float64]{Min: 0.0, Max: 1.0},    // Momentum
//	)
//
// How it works:
//  1. Evaluates InitialSamples points laid out by InitialDesign
//  2. For each iteration:
//     - Builds a new TrainingSet from every observation so far
//     - Fits the GP hyperparameters, warm-started from the previous round
//     - Scores NumCandidates random candidates with the acquisition function
//     - Evaluates the chosen candidate
//  3. Returns the best parameters found
//
// Important notes:
//   - The GP works on the unit hypercube; ranges are mapped onto it
//   - Integer parameters are rounded to the nearest value before the
//     objective is called, and the model is trained on the rounded point
//   - Deterministic for a given Seed and a deterministic objective
//   - Safe to call concurrently with different configs
func Optimize[T constraints.Integer | constraints.Float](
	ctx context.Context,
	config OptimizationConfig,
	objective ObjectiveFunc[T],
	ranges ...ParameterRange[T],
) (Result[T], error) {
	if err := validateConfig(config, objective, ranges); err != nil {
		return Result[T]{}, fmt.Errorf("Optimize: %w", err)
	}

	runID := uuid.NewString()

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger = logger.Named("optimizer").With(zap.String("run_id", runID))

	if config.Fit.Logger == nil {
		config.Fit.Logger = logger
	}

	rng := rand.New(rand.NewSource(config.Seed))

	r := &run[T]{
		config:    config,
		objective: objective,
		ranges:    ranges,
		logger:    logger,
		result:    Result[T]{RunID: runID},
	}

	logger.Info("starting optimization",
		zap.String("task", string(config.Task)),
		zap.String("acquisition", string(config.Acquisition)),
		zap.String("kernel", config.Kernel.Name()),
		zap.Int("dimensions", len(ranges)),
		zap.Int("initial_samples", config.InitialSamples),
		zap.Int("iterations", config.Iterations),
	)

	// Phase 1: Initial design.
	design, err := config.InitialDesign.Generate(config.InitialSamples, unitBounds(len(ranges)), rng)
	if err != nil {
		return r.result, fmt.Errorf("Optimize: %w", err)
	}

	for i, u := range rowsOf(design) {
		if err := r.evaluate(ctx, PhaseInitialSampling, i+1, config.InitialSamples, u); err != nil {
			return r.result, fmt.Errorf("Optimize: %w", err)
		}
	}

	// Phase 2: Bayesian optimization loop.
	warm := config.Kernel.Schema().Defaults()

	for i := 0; i < config.Iterations; i++ {
		gp, shift, scale, err := r.fit(warm)
		if err != nil {
			return r.result, fmt.Errorf("Optimize: iteration %d: %w", i+1, err)
		}

		warm = gp.Params()

		candidates, err := RandomDesign(config.NumCandidates, unitBounds(len(ranges)), rng)
		if err != nil {
			return r.result, fmt.Errorf("Optimize: %w", err)
		}

		acq := config.AcqParams
		acq.Task = config.Task
		acq.Incumbent = (r.result.BestValue - shift) / scale
		acq.RandomState = rng

		proposal, err := Propose(ctx, gp, candidates, config.Acquisition, acq)
		if err != nil {
			return r.result, fmt.Errorf("Optimize: iteration %d: %w", i+1, err)
		}

		logger.Debug("proposal",
			zap.Int("iteration", i+1),
			zap.Int("candidate", proposal.Index),
			zap.Float64("score", proposal.Scores[proposal.Index]),
			zap.Float64("predicted_mean", proposal.Prediction.Mean[proposal.Index]*scale+shift),
		)

		if err := r.evaluate(ctx, PhaseOptimization, i+1, config.Iterations, proposal.Point); err != nil {
			return r.result, fmt.Errorf("Optimize: %w", err)
		}
	}

	logger.Info("optimization finished",
		zap.Any("best_params", r.result.BestParams),
		zap.Float64("best_value", r.result.BestValue),
		zap.Int("evaluations", len(r.result.History)),
	)

	return r.result, nil
}

//////
// Run state.
//////

// run is the mutable state of one Optimize call. It is confined to the
// calling goroutine.
type run[T constraints.Integer | constraints.Float] struct {
	config    OptimizationConfig
	objective ObjectiveFunc[T]
	ranges    []ParameterRange[T]
	logger    *zap.Logger

	train  TrainingSet
	result Result[T]
}

// evaluate calls the objective at the unit-cube point u and records the
// observation.
func (r *run[T]) evaluate(ctx context.Context, phase string, iteration, total int, u []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := fromUnit(u, r.ranges)

	value, took, err := measureEvaluation(r.objective, params)
	if err != nil {
		return fmt.Errorf("objective at %v: %w", params, err)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("objective at %v returned %g: %w", params, value, ErrInvalidArgument)
	}

	r.config.Metrics.observeEvaluation(took)

	// The model sees the point actually evaluated, after rounding.
	train, err := r.train.Append(toUnit(params, r.ranges), value)
	if err != nil {
		return err
	}

	r.train = train

	r.result.History = append(r.result.History, Evaluation[T]{
		Phase:    phase,
		Params:   params,
		Value:    value,
		Duration: took,
	})

	if len(r.result.History) == 1 || r.config.Task.better(value, r.result.BestValue) {
		r.result.BestValue = value
		r.result.BestParams = params

		r.config.Metrics.setBest(value)
	}

	r.logger.Debug("evaluated",
		zap.String("phase", phase),
		zap.Int("iteration", iteration),
		zap.Any("params", params),
		zap.Float64("value", value),
		zap.Duration("took", took),
	)

	r.sendProgress(phase, iteration, total, params, value)

	return nil
}

// fit builds this round's GP. It returns the shift and scale applied to the
// observations.
//
// The fit starts from warm, the previous round's parameters. When those
// cannot factorize the new training covariance, it restarts from the
// kernel's defaults.
func (r *run[T]) fit(warm Params) (*FittedGP, float64, float64, error) {
	y, shift, scale := r.train.Y(), 0.0, 1.0
	if r.config.Normalize {
		y, shift, scale = standardize(y)
	}

	ts, err := NewTrainingSet(r.train.x, y)
	if err != nil {
		return nil, 0, 0, err
	}

	gp, err := FitGP(r.config.Kernel, ts, r.config.Noise, warm, r.config.Fit)
	if errors.Is(err, ErrIllConditioned) {
		r.config.Metrics.observeFit(fitFailed)

		defaults := r.config.Kernel.Schema().Defaults()

		r.logger.Warn("warm start is ill-conditioned, refitting from defaults",
			zap.Stringer("warm", warm),
			zap.Stringer("defaults", defaults),
			zap.Error(err),
		)

		gp, err = FitGP(r.config.Kernel, ts, r.config.Noise, defaults, r.config.Fit)
	}

	if err != nil {
		r.config.Metrics.observeFit(fitFailed)

		return nil, 0, 0, err
	}

	outcome := fitConverged
	if !gp.Fit().Converged {
		outcome = fitNotConverged
	}

	r.config.Metrics.observeFit(outcome)
	r.result.Fit = gp.Fit()

	return gp, shift, scale, nil
}

// sendProgress performs a non-blocking send of a ProgressUpdate.
func (r *run[T]) sendProgress(phase string, iteration, total int, current []T, value float64) {
	if r.config.ProgressChan == nil {
		return
	}

	update := ProgressUpdate{
		RunID:             r.result.RunID,
		Phase:             phase,
		CurrentIteration:  iteration,
		TotalIterations:   total,
		CurrentParams:     toFloats(current),
		CurrentBestParams: toFloats(r.result.BestParams),
		CurrentBestValue:  r.result.BestValue,
		LastValue:         value,
	}

	select {
	case r.config.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}

//////
// Helpers.
//////

func validateConfig[T constraints.Integer | constraints.Float](config OptimizationConfig, objective ObjectiveFunc[T], ranges []ParameterRange[T]) error {
	if err := config.Task.Validate(); err != nil {
		return err
	}

	if objective == nil {
		return fmt.Errorf("nil objective: %w", ErrInvalidArgument)
	}

	if len(ranges) == 0 {
		return fmt.Errorf("no parameter ranges: %w", ErrInvalidArgument)
	}

	for i, pr := range ranges {
		if pr.Min > pr.Max {
			return fmt.Errorf("range %d: min %v above max %v: %w", i, pr.Min, pr.Max, ErrInvalidArgument)
		}
	}

	if config.Kernel == nil {
		return fmt.Errorf("nil kernel: %w", ErrInvalidArgument)
	}

	if config.InitialSamples < 1 {
		return fmt.Errorf("%d initial samples: %w", config.InitialSamples, ErrInvalidArgument)
	}

	if config.Iterations < 0 {
		return fmt.Errorf("%d iterations: %w", config.Iterations, ErrInvalidArgument)
	}

	if config.Iterations > 0 && config.NumCandidates < 1 {
		return fmt.Errorf("%d candidates: %w", config.NumCandidates, ErrInvalidArgument)
	}

	if config.Noise < 0 || math.IsNaN(config.Noise) {
		return fmt.Errorf("noise %g: %w", config.Noise, ErrInvalidArgument)
	}

	if _, err := ParseDesign(string(config.InitialDesign)); err != nil {
		return err
	}

	if _, err := ParseAcquisition(string(config.Acquisition)); err != nil {
		return err
	}

	return nil
}

func unitBounds(d int) []Bound {
	b := make([]Bound, d)
	for i := range b {
		b[i] = Bound{Lower: 0, Upper: 1}
	}

	return b
}

// integral reports whether T is an integer type.
func integral[T constraints.Integer | constraints.Float]() bool {
	half := 0.5

	return T(half) == 0
}

// fromUnit maps a point of the unit hypercube onto the ranges.
func fromUnit[T constraints.Integer | constraints.Float](u []float64, ranges []ParameterRange[T]) []T {
	params := make([]T, len(ranges))
	round := integral[T]()

	for i, pr := range ranges {
		lo, hi := float64(pr.Min), float64(pr.Max)

		v := lo + u[i]*(hi-lo)
		if round {
			v = math.Round(v)
		}

		params[i] = T(math.Min(math.Max(v, lo), hi))
	}

	return params
}

// toUnit is the inverse of fromUnit. Degenerate ranges map to 0.
func toUnit[T constraints.Integer | constraints.Float](params []T, ranges []ParameterRange[T]) []float64 {
	u := make([]float64, len(ranges))

	for i, pr := range ranges {
		lo, hi := float64(pr.Min), float64(pr.Max)
		if hi > lo {
			u[i] = (float64(params[i]) - lo) / (hi - lo)
		}
	}

	return u
}
