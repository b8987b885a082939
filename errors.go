package gpbo

import "errors"

//////
// Sentinel errors.
//
// Every error returned by this package wraps one of these, so callers can
// branch with errors.Is regardless of the operation that produced it.
//////

var (
	// ErrDimensionMismatch is returned when two point sets, a point set and
	// its observations, or a mean and a covariance disagree in shape.
	ErrDimensionMismatch = errors.New("gpbo: dimension mismatch")

	// ErrParamMismatch is returned when a parameter vector does not match the
	// kernel's declared schema (wrong count, unknown or missing names).
	ErrParamMismatch = errors.New("gpbo: parameters do not match kernel schema")

	// ErrInvalidTask is returned for a task other than "min" or "max".
	ErrInvalidTask = errors.New("gpbo: task must be min or max")

	// ErrInvalidArgument covers remaining input-contract violations (negative
	// sample counts, empty candidate sets, nil random sources, ...).
	ErrInvalidArgument = errors.New("gpbo: invalid argument")

	// ErrEmptyTrainingSet is returned when a GP is requested without data.
	ErrEmptyTrainingSet = errors.New("gpbo: empty training set")

	// ErrIllConditioned is returned when the training covariance cannot be
	// Cholesky-factorised even after jitter. It usually means duplicate
	// training points or a pathological hyperparameter region.
	ErrIllConditioned = errors.New("gpbo: ill-conditioned covariance")

	// ErrNotPositiveDefinite is returned by the sampler when the covariance
	// has eigenvalues meaningfully below zero.
	ErrNotPositiveDefinite = errors.New("gpbo: covariance is not positive definite")
)
