package gpbo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//////
// Point set normalization.
//
// All exported entry points accept mat.Matrix and normalize it here to a
// canonical n×d *mat.Dense with one observation per row.
//////

// Points builds an n×d point set from row slices.
//
// Returns ErrDimensionMismatch if rows have different lengths and
// ErrInvalidArgument if there are no rows or the rows are empty.
func Points(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("Points: no rows: %w", ErrInvalidArgument)
	}

	d := len(rows[0])
	data := make([]float64, 0, len(rows)*d)

	for i, r := range rows {
		if len(r) != d {
			return nil, fmt.Errorf("Points: row %d has %d columns, want %d: %w", i, len(r), d, ErrDimensionMismatch)
		}

		data = append(data, r...)
	}

	return mat.NewDense(len(rows), d, data), nil
}

// Points1D builds an n×1 point set from n scalar inputs. Use it to pass
// one-dimensional data: a mat.Vector is read as a single point, not as n
// scalar inputs (see AsPoints).
//
// Returns ErrInvalidArgument if xs is empty.
func Points1D(xs []float64) (*mat.Dense, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("Points1D: no inputs: %w", ErrInvalidArgument)
	}

	data := make([]float64, len(xs))
	copy(data, xs)

	return mat.NewDense(len(xs), 1, data), nil
}

// Point promotes a single d-dimensional point to a 1×d point set.
//
// Returns ErrInvalidArgument if x is empty.
func Point(x []float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("Point: no coordinates: %w", ErrInvalidArgument)
	}

	data := make([]float64, len(x))
	copy(data, x)

	return mat.NewDense(1, len(x), data), nil
}

// AsPoints normalizes any matrix to a point set owned by the caller.
//
// A mat.Vector is a single point (row-vector convention), so a length-d
// vector becomes 1×d, not d×1: n one-dimensional inputs must be passed as
// an n×1 matrix, e.g. from Points1D. Every other matrix is copied unchanged.
//
// Returns ErrInvalidArgument for an empty matrix.
func AsPoints(m mat.Matrix) (*mat.Dense, error) {
	if m == nil {
		return nil, fmt.Errorf("AsPoints: nil matrix: %w", ErrInvalidArgument)
	}

	if r, c := m.Dims(); r == 0 || c == 0 {
		return nil, fmt.Errorf("AsPoints: empty %d×%d matrix: %w", r, c, ErrInvalidArgument)
	}

	if v, ok := m.(mat.Vector); ok {
		x := make([]float64, v.Len())
		for i := range x {
			x[i] = v.AtVec(i)
		}

		return Point(x)
	}

	return mat.DenseCopyOf(m), nil
}

// rowsOf returns a view of every row of x. Used by code that walks points
// one at a time (designs, benchmark evaluation).
func rowsOf(x *mat.Dense) [][]float64 {
	n, _ := x.Dims()
	out := make([][]float64, n)

	for i := range out {
		out[i] = x.RawRowView(i)
	}

	return out
}
