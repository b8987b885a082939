package gpbo

import (
	"math"
	"time"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Helper functions.
//////

// Helper function used by PI and EI to compute the cumulative distribution
// function of the standard normal distribution.
func normalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// Helper function used by EI to compute the probability density function
// of the standard normal distribution.
func normalPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// bestIndex returns the index of the best score: the largest when maximize is
// true, otherwise the smallest. Ties go to the lowest index.
func bestIndex(scores []float64, maximize bool) int {
	if maximize {
		return floats.MaxIdx(scores)
	}

	return floats.MinIdx(scores)
}

// standardize returns (y − mean)/std and the shift and scale used. A constant
// y is only centred.
func standardize(y []float64) (out []float64, shift, scale float64) {
	shift, scale = stat.MeanStdDev(y, nil)
	if scale == 0 || math.IsNaN(scale) {
		scale = 1
	}

	out = make([]float64, len(y))
	for i, v := range y {
		out[i] = (v - shift) / scale
	}

	return out, shift, scale
}

// measureEvaluation calls the objective with params and measures how long
// it took.
//
// Returns:
// - float64: Objective value
// - time.Duration: Wall time spent inside f
// - error: Error from the objective, nil otherwise
//
// Thread safety:
// - Thread-safe if and only if the objective is thread-safe
func measureEvaluation[T constraints.Integer | constraints.Float](f ObjectiveFunc[T], params []T) (float64, time.Duration, error) {
	start := time.Now()

	value, err := f(params...)

	return value, time.Since(start), err
}

// toFloats converts parameters to float64 for the Gaussian Process.
//
// Important notes:
// - Creates a new slice; doesn't modify the input
// - Preserves order of elements
func toFloats[T constraints.Integer | constraints.Float](params []T) []float64 {
	out := make([]float64, len(params))

	for i, v := range params {
		out[i] = float64(v)
	}

	return out
}
