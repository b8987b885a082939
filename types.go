package gpbo

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

// Task is the optimization direction.
type Task string

const (
	// Minimize looks for the lowest objective value.
	Minimize Task = "min"

	// Maximize looks for the highest objective value.
	Maximize Task = "max"
)

// Validate returns ErrInvalidTask unless t is Minimize or Maximize.
func (t Task) Validate() error {
	switch t {
	case Minimize, Maximize:
		return nil
	}

	return fmt.Errorf("task %q: %w", string(t), ErrInvalidTask)
}

// better reports whether a improves on b for t.
func (t Task) better(a, b float64) bool {
	if t == Maximize {
		return a > b
	}

	return a < b
}

// Acquisition names an acquisition strategy understood by Propose.
type Acquisition string

const (
	// EI is Expected Improvement.
	EI Acquisition = "ei"

	// PI is Probability of Improvement.
	PI Acquisition = "pi"

	// CB is the Confidence Bound: LCB for minimization, UCB for maximization.
	CB Acquisition = "cb"

	// TS is Thompson Sampling from the joint posterior.
	TS Acquisition = "ts"

	// KG is the Monte-Carlo Knowledge Gradient.
	KG Acquisition = "kg"
)

// ParseAcquisition converts a name such as "ei" to an Acquisition.
func ParseAcquisition(s string) (Acquisition, error) {
	switch a := Acquisition(s); a {
	case EI, PI, CB, TS, KG:
		return a, nil
	}

	return "", fmt.Errorf("acquisition %q: %w", s, ErrInvalidArgument)
}

// ProgressUpdate represents the current state of the optimization process.
type ProgressUpdate struct {
	// RunID identifies the optimization run
	RunID string

	// Phase is "InitialSampling" or "Optimization"
	Phase string

	// CurrentIteration is the current iteration number
	CurrentIteration int

	// TotalIterations is the total number of iterations of this phase
	TotalIterations int

	// CurrentParams holds the parameter values just evaluated
	CurrentParams []float64

	// CurrentBestParams holds the best parameters found so far
	CurrentBestParams []float64

	// CurrentBestValue holds the best objective value found so far
	CurrentBestValue float64

	// LastValue holds the objective value of the last evaluation
	LastValue float64
}

// ParameterRange defines the valid range for one dimension of the search
// space.
//
// Type Parameter:
//   - T: The numeric type for this parameter range (integer or float)
//
// Fields:
// - Min: The minimum (inclusive) value
// - Max: The maximum (inclusive) value
//
// Usage:
//
//	// Learning rate range from 0.0001 to 0.1
//	learningRateRange := ParameterRange[float64]{
//	    Min: 0.0001,
//	    Max: 0.1,
//	}
//
// Validation:
// - Min must be less than or equal to Max
//
// Integer ranges are searched continuously and rounded before the objective
// is called.
type ParameterRange[T constraints.Integer | constraints.Float] struct {
	// Min defines the minimum allowed value (inclusive).
	Min T

	// Max defines the maximum allowed value (inclusive).
	Max T
}

// ObjectiveFunc is the function being optimized.
//
// Type Parameter:
//   - T: The numeric type for parameters
//
// Parameters:
//   - params: One value per ParameterRange passed to Optimize, in order
//
// Returns:
// - float64: Objective value at params
// - error: Aborts the optimization run
//
// Usage example:
//
//	objective := ObjectiveFunc[float64](func(params ...float64) (float64, error) {
//	    return math.Sin(3*params[0]) + params[1]*params[1], nil
//	})
type ObjectiveFunc[T constraints.Integer | constraints.Float] func(params ...T) (float64, error)

// AcquisitionParams holds parameters used by the acquisition functions.
type AcquisitionParams struct {
	// Task selects minimization or maximization.
	Task Task

	// Incumbent is the best value observed so far. Used by EI and PI; the
	// optimization loop keeps it up to date.
	Incumbent float64

	// Xi (ξ ≥ 0) is the improvement margin for EI and PI.
	// - Higher values (e.g. 0.1) encourage exploration
	// - Lower values (e.g. 0.01) favour local refinement
	Xi float64

	// Kappa (κ > 0) weights the standard deviation in the Confidence Bound.
	// Typical values range from 0.1 to 5.0, 2.0 being a good default.
	Kappa float64

	// Samples is the Monte-Carlo sample count M of the Knowledge Gradient.
	Samples int

	// Workers bounds concurrent Knowledge Gradient candidates. Values < 1
	// mean one.
	Workers int

	// RandomState is the source for Thompson Sampling and Knowledge Gradient.
	//
	// Warning:
	// - Do NOT use a nil RandomState with TS or KG
	// - Do NOT share RandomState between concurrent optimization runs
	RandomState *rand.Rand
}

// OptimizationConfig holds all configuration parameters for the Bayesian
// optimization loop.
//
// Usage example:
//
//	config := DefaultConfig()
//	config.Iterations = 50
//	config.Acquisition = KG
//	config.AcqParams.Samples = 50
//
// Note:
// - Create separate configs for parallel optimizations.
type OptimizationConfig struct {
	// Task selects minimization or maximization of the objective.
	Task Task

	// Iterations is the number of model-guided evaluations after the
	// initial design.
	Iterations int

	// InitialSamples is the size of the initial design.
	InitialSamples int

	// InitialDesign picks how the initial samples are laid out.
	InitialDesign Design

	// NumCandidates is how many random candidates are scored per iteration.
	NumCandidates int

	// Acquisition is the strategy used to pick the next point.
	Acquisition Acquisition

	// AcqParams holds the parameters for the acquisition function. Task,
	// Incumbent and RandomState are managed by the loop.
	AcqParams AcquisitionParams

	// Kernel is the GP covariance function.
	Kernel Kernel

	// Noise is the observation-noise standard deviation of the GP.
	Noise float64

	// Normalize standardizes observations before each fit.
	Normalize bool

	// Fit configures hyperparameter fitting.
	Fit FitConfig

	// Seed seeds the run's random source.
	Seed int64

	// Logger receives structured run logs. Nil disables logging.
	Logger *zap.Logger

	// Metrics, if set, records run metrics.
	Metrics *Metrics

	// ProgressChan is used to send progress updates during optimization.
	// If nil, no updates will be sent. Updates are dropped when it is full.
	ProgressChan chan<- ProgressUpdate
}
