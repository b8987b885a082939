package testfunctions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestKnownMinima(t *testing.T) {
	for _, f := range All() {
		for _, dim := range []int{2, 3} {
			if f.Dim() != 0 && f.Dim() != dim {
				continue
			}

			m, ok := f.Minimum(dim)
			if !ok || m.X == nil {
				continue
			}

			assert.InDelta(t, m.F, f.Func(m.X), 1e-6, "%s in %d dimensions", f.Name(), dim)
		}
	}
}

func TestMinimumIsLowerThanNeighbours(t *testing.T) {
	for _, f := range All() {
		dim := 2

		m, ok := f.Minimum(dim)
		if !ok || m.X == nil {
			continue
		}

		for j := 0; j < dim; j++ {
			for _, h := range []float64{-1e-3, 1e-3} {
				x := append([]float64(nil), m.X...)
				x[j] += h

				assert.GreaterOrEqual(t, f.Func(x), m.F-1e-9, "%s moved by %g on %d", f.Name(), h, j)
			}
		}
	}
}

func TestBraninHooHasThreeMinima(t *testing.T) {
	f := BraninHoo{}

	for _, x := range [][]float64{{-math.Pi, 12.275}, {math.Pi, 2.275}, {9.42478, 2.475}} {
		assert.InDelta(t, 0.397887, f.Func(x), 1e-5)
	}
}

func TestBounds(t *testing.T) {
	for _, f := range All() {
		dim := f.Dim()
		if dim == 0 {
			dim = 4
		}

		lower, upper := f.Bounds(dim)
		require.Len(t, lower, dim, f.Name())
		require.Len(t, upper, dim, f.Name())

		for i := range lower {
			assert.Less(t, lower[i], upper[i], f.Name())
		}
	}
}

func TestEvaluate(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		0, 0,
		1, 1,
		-1, 2,
	})

	got := Evaluate(Rastrigin{}, x)
	require.Len(t, got, 3)

	for i, want := range []float64{0, Rastrigin{}.Func([]float64{1, 1}), Rastrigin{}.Func([]float64{-1, 2})} {
		assert.InDelta(t, want, got[i], 1e-12)
	}
}

func TestByName(t *testing.T) {
	for _, f := range All() {
		got, err := ByName(f.Name())
		require.NoError(t, err)
		assert.Equal(t, f.Name(), got.Name())
	}

	_, err := ByName("nope")
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestFixedDimensionPanics(t *testing.T) {
	assert.Panics(t, func() { Shubert{}.Func([]float64{1, 2, 3}) })
	assert.Panics(t, func() { Ackley{}.Func(nil) })
}
