// Package testfunctions holds standard benchmark objectives for global
// optimizers. Every function is pure and minimized.
package testfunctions

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownFunction is returned by ByName.
var ErrUnknownFunction = errors.New("testfunctions: unknown function")

// Minimum is a known global minimum.
type Minimum struct {
	X []float64
	F float64
}

// Function is a benchmark objective.
type Function interface {
	// Name is the lookup key used by ByName.
	Name() string

	// Func evaluates the function at x. It panics if len(x) is not a
	// supported dimension.
	Func(x []float64) float64

	// Dim is the fixed dimension of the function, 0 when any dimension
	// is accepted.
	Dim() int

	// Bounds returns the usual search box for dim dimensions.
	Bounds(dim int) (lower, upper []float64)

	// Minimum returns a global minimum for dim dimensions, if known.
	Minimum(dim int) (Minimum, bool)
}

// Evaluate calls f on every row of x.
func Evaluate(f Function, x mat.Matrix) []float64 {
	n, d := x.Dims()
	out := make([]float64, n)
	row := make([]float64, d)

	for i := range out {
		mat.Row(row, i, x)
		out[i] = f.Func(row)
	}

	return out
}

// All returns every function, sorted by name.
func All() []Function {
	fs := []Function{
		Ackley{},
		BraninHoo{},
		Langermann{},
		Michalewicz{},
		Rastrigin{},
		Shubert{},
		StyblinskiTang{},
		Zakharov{},
	}

	sort.Slice(fs, func(i, j int) bool { return fs[i].Name() < fs[j].Name() })

	return fs
}

// ByName returns the function called name.
func ByName(name string) (Function, error) {
	for _, f := range All() {
		if f.Name() == name {
			return f, nil
		}
	}

	return nil, fmt.Errorf("%q: %w", name, ErrUnknownFunction)
}

// Ackley implements the Ackley function with a = 20, b = 0.2 and c = 2π. It is
// usually evaluated in [-32.768, 32.768]^d.
//
//	f(x) = -a exp(-b sqrt(Σx_i²/d)) - exp(Σcos(c x_i)/d) + a + e
//
// The global minimum is 0 at the origin.
//
// Reference:
//
//	https://www.sfu.ca/~ssurjano/ackley.html
type Ackley struct{}

func (Ackley) Name() string { return "ackley" }
func (Ackley) Dim() int     { return 0 }

func (Ackley) Func(x []float64) float64 {
	checkDim(x, 0)

	a, b, c := 20.0, 0.2, 2*math.Pi
	d := float64(len(x))

	var sumCos float64
	for _, v := range x {
		sumCos += math.Cos(c * v)
	}

	return -a*math.Exp(-b*math.Sqrt(floats.Dot(x, x)/d)) - math.Exp(sumCos/d) + a + math.E
}

func (Ackley) Bounds(dim int) (lower, upper []float64) { return box(dim, -32.768, 32.768) }

func (Ackley) Minimum(dim int) (Minimum, bool) {
	return Minimum{X: make([]float64, dim), F: 0}, dim > 0
}

// Rastrigin implements the Rastrigin function, usually evaluated in
// [-5.12, 5.12]^d.
//
//	f(x) = 10d + Σ(x_i² - 10 cos(2π x_i))
//
// The global minimum is 0 at the origin.
type Rastrigin struct{}

func (Rastrigin) Name() string { return "rastrigin" }
func (Rastrigin) Dim() int     { return 0 }

func (Rastrigin) Func(x []float64) float64 {
	checkDim(x, 0)

	f := 10 * float64(len(x))
	for _, v := range x {
		f += v*v - 10*math.Cos(2*math.Pi*v)
	}

	return f
}

func (Rastrigin) Bounds(dim int) (lower, upper []float64) { return box(dim, -5.12, 5.12) }

func (Rastrigin) Minimum(dim int) (Minimum, bool) {
	return Minimum{X: make([]float64, dim), F: 0}, dim > 0
}

// Michalewicz implements the Michalewicz function with steepness m = 10,
// usually evaluated in [0, π]^d.
//
//	f(x) = -Σ sin(x_i) sin(i x_i²/π)^(2m)
//
// Minima are known for d = 2, 5 and 10.
type Michalewicz struct{}

func (Michalewicz) Name() string { return "michalewicz" }
func (Michalewicz) Dim() int     { return 0 }

func (Michalewicz) Func(x []float64) float64 {
	checkDim(x, 0)

	const m = 10

	var f float64
	for i, v := range x {
		f -= math.Sin(v) * math.Pow(math.Sin(float64(i+1)*v*v/math.Pi), 2*m)
	}

	return f
}

func (Michalewicz) Bounds(dim int) (lower, upper []float64) { return box(dim, 0, math.Pi) }

func (Michalewicz) Minimum(dim int) (Minimum, bool) {
	switch dim {
	case 2:
		return Minimum{X: []float64{2.202905522185707, math.Pi / 2}, F: -1.8013034100985532}, true
	case 5:
		return Minimum{F: -4.687658}, true
	case 10:
		return Minimum{F: -9.66015}, true
	}

	return Minimum{}, false
}

// StyblinskiTang implements the Styblinski-Tang function, usually evaluated in
// [-5, 5]^d.
//
//	f(x) = 0.5 Σ(x_i⁴ - 16x_i² + 5x_i)
//
// The global minimum is -39.16616570377142·d at x_i = -2.903534026145935.
type StyblinskiTang struct{}

func (StyblinskiTang) Name() string { return "styblinski-tang" }
func (StyblinskiTang) Dim() int     { return 0 }

func (StyblinskiTang) Func(x []float64) float64 {
	checkDim(x, 0)

	var f float64
	for _, v := range x {
		v2 := v * v
		f += v2*v2 - 16*v2 + 5*v
	}

	return 0.5 * f
}

func (StyblinskiTang) Bounds(dim int) (lower, upper []float64) { return box(dim, -5, 5) }

func (StyblinskiTang) Minimum(dim int) (Minimum, bool) {
	x := make([]float64, dim)
	for i := range x {
		x[i] = -2.903534026145935
	}

	return Minimum{X: x, F: -39.166165703771426 * float64(dim)}, dim > 0
}

// Zakharov implements the Zakharov function, usually evaluated in [-5, 10]^d.
//
//	f(x) = Σx_i² + (Σ0.5 i x_i)² + (Σ0.5 i x_i)⁴
//
// The global minimum is 0 at the origin.
type Zakharov struct{}

func (Zakharov) Name() string { return "zakharov" }
func (Zakharov) Dim() int     { return 0 }

func (Zakharov) Func(x []float64) float64 {
	checkDim(x, 0)

	var s float64
	for i, v := range x {
		s += 0.5 * float64(i+1) * v
	}

	s2 := s * s

	return floats.Dot(x, x) + s2 + s2*s2
}

func (Zakharov) Bounds(dim int) (lower, upper []float64) { return box(dim, -5, 10) }

func (Zakharov) Minimum(dim int) (Minimum, bool) {
	return Minimum{X: make([]float64, dim), F: 0}, dim > 0
}

// A matrix and c weights of the Langermann function.
var (
	langermannA = [5][2]float64{{3, 5}, {5, 2}, {2, 1}, {1, 4}, {7, 9}}
	langermannC = [5]float64{1, 2, 5, 2, 3}
)

// Langermann implements the 2-dimensional Langermann function with m = 5,
// usually evaluated in [0, 10]².
//
//	f(x) = -Σ c_i exp(-‖x - A_i‖²/π) cos(π‖x - A_i‖²)
//
// The sign is flipped from the common definition so the function is
// minimized like the others.
type Langermann struct{}

func (Langermann) Name() string { return "langermann" }
func (Langermann) Dim() int     { return 2 }

func (Langermann) Func(x []float64) float64 {
	checkDim(x, 2)

	var f float64
	for i, a := range langermannA {
		d := floats.Distance(x, a[:], 2)
		d2 := d * d
		f -= langermannC[i] * math.Exp(-d2/math.Pi) * math.Cos(math.Pi*d2)
	}

	return f
}

func (Langermann) Bounds(int) (lower, upper []float64) { return box(2, 0, 10) }

func (Langermann) Minimum(dim int) (Minimum, bool) {
	return Minimum{X: []float64{2.002992115020752, 1.006095943301916}, F: -5.162126159963983}, dim == 2
}

// Shubert implements the 2-dimensional Shubert function, usually evaluated
// in [-10, 10]².
//
//	f(x) = Π_j Σ_{i=1..5} i cos((i+1) x_j + i)
//
// It has 18 global minima of -186.7309088310239; Minimum returns one.
type Shubert struct{}

func (Shubert) Name() string { return "shubert" }
func (Shubert) Dim() int     { return 2 }

func (Shubert) Func(x []float64) float64 {
	checkDim(x, 2)

	f := 1.0
	for _, v := range x {
		var s float64
		for i := 1.0; i <= 5; i++ {
			s += i * math.Cos((i+1)*v+i)
		}

		f *= s
	}

	return f
}

func (Shubert) Bounds(int) (lower, upper []float64) { return box(2, -10, 10) }

func (Shubert) Minimum(dim int) (Minimum, bool) {
	return Minimum{X: []float64{-0.8003210997581488, 4.8580568754673}, F: -186.7309088310239}, dim == 2
}

// BraninHoo implements the Branin-Hoo function, evaluated in
// x_0 ∈ [-5, 10], x_1 ∈ [0, 15].
//
//	f(x) = (x_1 - (5.1/(4π²))x_0² + (5/π)x_0 - 6)² + 10(1 - 1/(8π))cos(x_0) + 10
//
// It has three global minima of 0.397887 at (-π, 12.275), (π, 2.275) and
// (9.424778, 2.475).
type BraninHoo struct{}

func (BraninHoo) Name() string { return "branin" }
func (BraninHoo) Dim() int     { return 2 }

func (BraninHoo) Func(x []float64) float64 {
	checkDim(x, 2)

	a, b, c, r, s, t := 1.0, 5.1/(4*math.Pi*math.Pi), 5/math.Pi, 6.0, 10.0, 1/(8*math.Pi)

	term := x[1] - b*x[0]*x[0] + c*x[0] - r

	return a*term*term + s*(1-t)*math.Cos(x[0]) + s
}

func (BraninHoo) Bounds(int) (lower, upper []float64) {
	return []float64{-5, 0}, []float64{10, 15}
}

func (BraninHoo) Minimum(dim int) (Minimum, bool) {
	return Minimum{X: []float64{math.Pi, 2.275}, F: 0.39788735772973816}, dim == 2
}

//////
// Helpers.
//////

func checkDim(x []float64, want int) {
	if len(x) == 0 {
		panic("testfunctions: empty point")
	}

	if want > 0 && len(x) != want {
		panic(fmt.Sprintf("testfunctions: dimension of the problem must be %d", want))
	}
}

func box(dim int, lo, hi float64) (lower, upper []float64) {
	lower, upper = make([]float64, dim), make([]float64, dim)
	for i := 0; i < dim; i++ {
		lower[i], upper[i] = lo, hi
	}

	return lower, upper
}
