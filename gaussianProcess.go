package gpbo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// FittedGP is a Gaussian Process whose kernel hyperparameters have been fitted
// to a training set by maximum likelihood.
//
// Fields:
// - kernel: Covariance function
// - train: Training data, immutable
// - noise: Observation-noise standard deviation
// - fit: Outcome of the hyperparameter fit, including the fitted Params
// - cond: Training covariance factorized once with the fitted parameters
//
// Thread safety:
//   - A FittedGP never changes after FitGP returns
//   - Predict only reads it and is safe for concurrent use
//
// Lifecycle:
//   - Built once per optimization round, since the training data grows every
//     round; to refit, build a new FittedGP from the new TrainingSet.
type FittedGP struct {
	kernel Kernel
	train  TrainingSet
	noise  float64
	fit    FitResult
	cond   *conditioner
}

//////
// Factory.
//////

// FitGP fits kernel hyperparameters to ts and returns a reusable predictor.
//
// Parameters:
// - k: Covariance function
// - ts: Training data
// - noise: Observation-noise standard deviation
// - initial: Complete starting point for the fit, bound to k.Schema()
// - cfg: Fitter configuration
//
// Returns:
// - *FittedGP: Predictor owning its data, kernel and parameters
// - error: Any error from Fit, or ErrIllConditioned if the fitted
// parameters cannot be factorized
//
// Usage example:
//
//	x, _ := Points1D([]float64{-4.33, -2.1, 2.1})
//	ts, _ := NewTrainingSet(x, y)
//	gp, err := FitGP(RBF{}, ts, 0, RBF{}.Schema().Defaults(), DefaultFitConfig())
//	if err != nil {
//	    return err
//	}
//	origin, _ := Point([]float64{0})
//	pred, err := gp.Predict(origin)
func FitGP(k Kernel, ts TrainingSet, noise float64, initial Params, cfg FitConfig) (*FittedGP, error) {
	fit, err := Fit(k, ts, noise, initial, cfg)
	if err != nil {
		return nil, fmt.Errorf("FitGP: %w", err)
	}

	return newFittedGP(k, ts, noise, fit)
}

// NewFittedGP builds a predictor from already known hyperparameters, skipping
// the likelihood optimization.
func NewFittedGP(k Kernel, ts TrainingSet, noise float64, p Params) (*FittedGP, error) {
	theta, err := p.checkSchema(k)
	if err != nil {
		return nil, fmt.Errorf("NewFittedGP: %w", err)
	}

	if ts.Len() == 0 {
		return nil, fmt.Errorf("NewFittedGP: %w", ErrEmptyTrainingSet)
	}

	nll, err := negLogLikelihood(k, ts.x, ts.y, noise, theta)
	if err != nil {
		return nil, fmt.Errorf("NewFittedGP: %w", err)
	}

	return newFittedGP(k, ts, noise, FitResult{
		Params:     p,
		NLL:        nll,
		InitialNLL: nll,
		Converged:  true,
		Status:     "Fixed",
	})
}

func newFittedGP(k Kernel, ts TrainingSet, noise float64, fit FitResult) (*FittedGP, error) {
	cond, err := newConditioner(k, ts.x, fit.Params.values, noise)
	if err != nil {
		return nil, fmt.Errorf("FitGP: fitted parameters %v: %w", fit.Params, err)
	}

	return &FittedGP{
		kernel: k,
		train:  ts,
		noise:  noise,
		fit:    fit,
		cond:   cond,
	}, nil
}

//////
// Methods.
//////

// Predict returns the posterior at xQuery.
//
// Parameters:
// - xQuery: Query points (m×d); a mat.Vector is one point
//
// Returns:
// - *Prediction: Mean, variance, full covariance and fitted parameters
// - error: ErrDimensionMismatch if xQuery has the wrong number of columns
//
// Important notes:
// - Pure function of xQuery for the life of the FittedGP
// - O(n²·m + n·m²) time for n training and m query points
func (gp *FittedGP) Predict(xQuery mat.Matrix) (*Prediction, error) {
	xq, err := AsPoints(xQuery)
	if err != nil {
		return nil, fmt.Errorf("Predict: %w", err)
	}

	pred, err := gp.cond.predict(xq, gp.train.y)
	if err != nil {
		return nil, fmt.Errorf("Predict: %w", err)
	}

	pred.Params = gp.fit.Params

	return pred, nil
}

// Params returns the fitted hyperparameters.
func (gp *FittedGP) Params() Params { return gp.fit.Params }

// Fit returns the hyperparameter fit report.
func (gp *FittedGP) Fit() FitResult { return gp.fit }

// Kernel returns the covariance function.
func (gp *FittedGP) Kernel() Kernel { return gp.kernel }

// Noise returns the observation-noise standard deviation.
func (gp *FittedGP) Noise() float64 { return gp.noise }

// TrainingSet returns the data the GP was fitted to.
func (gp *FittedGP) TrainingSet() TrainingSet { return gp.train }
