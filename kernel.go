package gpbo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// Kernel is a stationary covariance function.
//
// Implementations are pure and stateless: all hyperparameters arrive through
// theta, whose order is fixed by Schema. Cov must be safe for concurrent use.
type Kernel interface {
	// Name identifies the kernel in logs and errors.
	Name() string

	// Schema declares the hyperparameters in the order Cov expects them.
	Schema() ParamSchema

	// Cov returns the n×m covariance between the rows of x1 (n×d) and the
	// rows of x2 (m×d). A mat.Vector is one point; pass n one-dimensional
	// inputs as an n×1 matrix.
	Cov(x1, x2 mat.Matrix, theta []float64) (*mat.Dense, error)
}

var (
	_ Kernel = RBF{}
	_ Kernel = Matern{}
)

// smallArgument is the scaled distance below which the general Matérn
// formula is replaced by its limit σ².
const smallArgument = 1e-10

//////
// Exported functionalities.
//////

// Covariance evaluates k between two point sets using named parameters.
//
// Parameters:
// - k: The kernel to evaluate
// - x1, x2: Point sets (n×d and m×d); a mat.Vector is one point
// - p: Hyperparameters bound to k.Schema()
//
// Returns:
// - *mat.Dense: The n×m covariance matrix
// - error: ErrParamMismatch or ErrDimensionMismatch
//
// Usage example:
//
//	x, _ := Points1D([]float64{-1, 0, 1})
//	K, err := Covariance(RBF{}, x, x, RBF{}.Schema().Defaults())
func Covariance(k Kernel, x1, x2 mat.Matrix, p Params) (*mat.Dense, error) {
	theta, err := p.checkSchema(k)
	if err != nil {
		return nil, fmt.Errorf("Covariance: %w", err)
	}

	return k.Cov(x1, x2, theta)
}

// SquaredDistances returns the n×m matrix of squared Euclidean distances
// between the rows of x1 and x2, computed as ‖a‖² + ‖b‖² − 2a·b with one
// matrix product. Round-off negatives are clamped to zero.
//
// When x1 and x2 are the same matrix the result is exactly symmetric with a
// zero diagonal.
func SquaredDistances(x1, x2 mat.Matrix) (*mat.Dense, error) {
	a, err := AsPoints(x1)
	if err != nil {
		return nil, fmt.Errorf("SquaredDistances: %w", err)
	}

	same := sameMatrix(x1, x2)

	b := a
	if !same {
		if b, err = AsPoints(x2); err != nil {
			return nil, fmt.Errorf("SquaredDistances: %w", err)
		}
	}

	n, d1 := a.Dims()
	m, d2 := b.Dims()

	if d1 != d2 {
		return nil, fmt.Errorf("SquaredDistances: %d vs %d columns: %w", d1, d2, ErrDimensionMismatch)
	}

	na := rowNorms(a)

	nb := na
	if !same {
		nb = rowNorms(b)
	}

	var dist mat.Dense
	dist.Mul(a, b.T())

	for i := 0; i < n; i++ {
		row := dist.RawRowView(i)
		for j := 0; j < m; j++ {
			row[j] = math.Max(na[i]+nb[j]-2*row[j], 0)
		}
	}

	if same {
		for i := 0; i < n; i++ {
			dist.Set(i, i, 0)

			for j := i + 1; j < n; j++ {
				dist.Set(j, i, dist.At(i, j))
			}
		}
	}

	return &dist, nil
}

//////
// RBF.
//////

// RBF is the squared-exponential kernel
//
//	k(x, x') = σ_f² exp(−0.5 ‖x − x'‖² / l²)
//
// with parameters length_scale (l) and sigma_f (σ_f).
type RBF struct{}

// Name implements Kernel.
func (RBF) Name() string { return "rbf" }

// Schema implements Kernel.
func (RBF) Schema() ParamSchema {
	return ParamSchema{
		{Name: "length_scale", Default: 1, Lower: 1e-5, Upper: 1e5},
		{Name: "sigma_f", Default: 1, Lower: 1e-5, Upper: 1e5},
	}
}

// Cov implements Kernel.
func (k RBF) Cov(x1, x2 mat.Matrix, theta []float64) (*mat.Dense, error) {
	if len(theta) != 2 {
		return nil, fmt.Errorf("RBF: %d parameters, want 2: %w", len(theta), ErrParamMismatch)
	}

	l, sf := theta[0], theta[1]

	dist, err := SquaredDistances(x1, x2)
	if err != nil {
		return nil, fmt.Errorf("RBF: %w", err)
	}

	variance := sf * sf
	dist.Apply(func(_, _ int, r2 float64) float64 {
		return variance * math.Exp(-0.5*r2/(l*l))
	}, dist)

	return dist, nil
}

//////
// Matérn.
//////

// Matern is the Matérn kernel with fixed smoothness Nu and parameters
// length_scale (l) and variance (σ²):
//
//	k(r) = σ² 2^(1−ν)/Γ(ν) (√(2ν) r/l)^ν K_ν(√(2ν) r/l)
//
// Nu of 0.5, 1.5 and 2.5 use the usual closed forms. The formula is
// singular at r = 0, where σ² is returned directly. A zero Nu means 2.5.
type Matern struct {
	Nu float64
}

// Name implements Kernel.
func (k Matern) Name() string { return fmt.Sprintf("matern(nu=%g)", k.nu()) }

// Schema implements Kernel.
func (Matern) Schema() ParamSchema {
	return ParamSchema{
		{Name: "length_scale", Default: 1, Lower: 1e-5, Upper: 1e5},
		{Name: "variance", Default: 1, Lower: 1e-8, Upper: 1e8},
	}
}

// Cov implements Kernel.
func (k Matern) Cov(x1, x2 mat.Matrix, theta []float64) (*mat.Dense, error) {
	if len(theta) != 2 {
		return nil, fmt.Errorf("%s: %d parameters, want 2: %w", k.Name(), len(theta), ErrParamMismatch)
	}

	nu := k.nu()
	if nu <= 0 || math.IsInf(nu, 0) || math.IsNaN(nu) {
		return nil, fmt.Errorf("%s: smoothness must be positive and finite: %w", k.Name(), ErrInvalidArgument)
	}

	l, variance := theta[0], theta[1]

	dist, err := SquaredDistances(x1, x2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.Name(), err)
	}

	f := maternCorrelation(nu)
	dist.Apply(func(_, _ int, r2 float64) float64 {
		if r2 == 0 {
			return variance
		}

		return variance * f(math.Sqrt(r2)/l)
	}, dist)

	return dist, nil
}

func (k Matern) nu() float64 {
	if k.Nu == 0 {
		return 2.5
	}

	return k.Nu
}

// maternCorrelation returns the unit-variance Matérn correlation as a
// function of the scaled distance r/l.
func maternCorrelation(nu float64) func(float64) float64 {
	switch nu {
	case 0.5:
		return func(d float64) float64 { return math.Exp(-d) }
	case 1.5:
		return func(d float64) float64 {
			z := math.Sqrt(3) * d

			return (1 + z) * math.Exp(-z)
		}
	case 2.5:
		return func(d float64) float64 {
			z := math.Sqrt(5) * d

			return (1 + z + z*z/3) * math.Exp(-z)
		}
	}

	lg, _ := math.Lgamma(nu)
	logScale := (1-nu)*math.Ln2 - lg

	return func(d float64) float64 {
		z := math.Sqrt(2*nu) * d
		if z < smallArgument {
			return 1
		}

		return math.Exp(logScale + nu*math.Log(z) + logBesselK(nu, z))
	}
}

func rowNorms(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	out := make([]float64, n)

	for i := range out {
		r := x.RawRowView(i)
		out[i] = floats.Dot(r, r)
	}

	return out
}

// sameMatrix reports whether x1 and x2 are the same *mat.Dense.
func sameMatrix(x1, x2 mat.Matrix) bool {
	a, ok := x1.(*mat.Dense)
	if !ok {
		return false
	}

	b, ok := x2.(*mat.Dense)

	return ok && a == b
}
