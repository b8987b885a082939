package gpbo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// TrainingSet is an immutable set of observed points and their values.
//
// Each optimization round works on its own TrainingSet: Append returns a new
// set and leaves the receiver untouched, so a FittedGP built from a set never
// sees later observations and can be shared across goroutines.
//
// Fields:
// - x: n×d observed points, one per row
// - y: Observed values aligned with the rows of x
//
// Memory usage:
// - Append copies the existing data, O(n·d) per call
type TrainingSet struct {
	x *mat.Dense
	y []float64
}

// NewTrainingSet copies x and y into a new TrainingSet.
//
// Returns:
// - ErrEmptyTrainingSet if x is nil or has no rows
// - ErrDimensionMismatch if len(y) differs from the number of rows
func NewTrainingSet(x mat.Matrix, y []float64) (TrainingSet, error) {
	if x == nil {
		return TrainingSet{}, fmt.Errorf("NewTrainingSet: %w", ErrEmptyTrainingSet)
	}

	if r, c := x.Dims(); r == 0 || c == 0 {
		return TrainingSet{}, fmt.Errorf("NewTrainingSet: %w", ErrEmptyTrainingSet)
	}

	xt, err := AsPoints(x)
	if err != nil {
		return TrainingSet{}, fmt.Errorf("NewTrainingSet: %w", err)
	}

	if err := checkTraining(xt, y); err != nil {
		return TrainingSet{}, fmt.Errorf("NewTrainingSet: %w", err)
	}

	ys := make([]float64, len(y))
	copy(ys, y)

	return TrainingSet{x: xt, y: ys}, nil
}

// Append returns a new TrainingSet with one more observation.
//
// Usage example:
//
//	next, err := ts.Append([]float64{0.3, 0.7}, f(0.3, 0.7))
//	// ts is unchanged; next has ts.Len()+1 rows
func (t TrainingSet) Append(x []float64, y float64) (TrainingSet, error) {
	if t.x == nil {
		p, err := Point(x)
		if err != nil {
			return TrainingSet{}, fmt.Errorf("Append: %w", err)
		}

		return NewTrainingSet(p, []float64{y})
	}

	n, d := t.x.Dims()
	if len(x) != d {
		return TrainingSet{}, fmt.Errorf("Append: point has %d columns, want %d: %w", len(x), d, ErrDimensionMismatch)
	}

	data := make([]float64, 0, (n+1)*d)
	for i := 0; i < n; i++ {
		data = append(data, t.x.RawRowView(i)...)
	}

	data = append(data, x...)

	ys := make([]float64, n+1)
	copy(ys, t.y)
	ys[n] = y

	return TrainingSet{x: mat.NewDense(n+1, d, data), y: ys}, nil
}

// Len returns the number of observations.
func (t TrainingSet) Len() int { return len(t.y) }

// Dim returns the input dimensionality, or 0 for an empty set.
func (t TrainingSet) Dim() int {
	if t.x == nil {
		return 0
	}

	_, d := t.x.Dims()

	return d
}

// X returns a copy of the observed points.
func (t TrainingSet) X() *mat.Dense {
	if t.x == nil {
		return nil
	}

	return mat.DenseCopyOf(t.x)
}

// Y returns a copy of the observed values.
func (t TrainingSet) Y() []float64 {
	out := make([]float64, len(t.y))
	copy(out, t.y)

	return out
}

// Incumbent returns the best observed value for task and its row index.
func (t TrainingSet) Incumbent(task Task) (float64, int, error) {
	if err := task.Validate(); err != nil {
		return 0, 0, err
	}

	if len(t.y) == 0 {
		return 0, 0, fmt.Errorf("Incumbent: %w", ErrEmptyTrainingSet)
	}

	best, idx := math.Inf(1), 0
	if task == Maximize {
		best = math.Inf(-1)
	}

	for i, v := range t.y {
		if task.better(v, best) {
			best, idx = v, i
		}
	}

	return best, idx, nil
}
