package gpbo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// Jitter is added to the diagonal of every self-covariance before it is
// factorized or returned, on top of the observation-noise variance.
const Jitter = 1e-8

// Prediction is the GP posterior at a set of query points. It is owned by the
// caller and is only valid for the inputs that produced it.
type Prediction struct {
	// Mean holds the posterior mean, one entry per query row.
	Mean []float64

	// Variance is the diagonal of Covariance, clamped at zero.
	Variance []float64

	// Covariance is the full p×p posterior covariance. Sampling-based
	// acquisition functions need it; the others only use Variance.
	Covariance *mat.SymDense

	// Params are the kernel hyperparameters the posterior was computed with.
	Params Params
}

// Std returns the posterior standard deviation at every query point.
func (p *Prediction) Std() []float64 {
	out := make([]float64, len(p.Variance))
	for i, v := range p.Variance {
		out[i] = math.Sqrt(v)
	}

	return out
}

// conditioner holds a Cholesky-factorized training covariance so several
// posterior quantities can be derived from one factorization.
type conditioner struct {
	kernel Kernel
	theta  []float64
	x      *mat.Dense
	chol   mat.Cholesky
}

//////
// Exported functionalities.
//////

// Posterior conditions a zero-mean GP on training data and returns the
// posterior at xPred.
//
// Parameters:
// - k: Covariance function
// - xPred: Query points (m×d), a mat.Vector is one point
// - xTrain: Training points (n×d)
// - yTrain: Observations, one per training row
// - noise: Observation-noise standard deviation (noise² joins the diagonal)
// - p: Kernel hyperparameters bound to k.Schema()
//
// Returns:
// - *Prediction: Mean, variance and full covariance at xPred
// - error: ErrDimensionMismatch, ErrParamMismatch, ErrEmptyTrainingSet or
// ErrIllConditioned when the training covariance cannot be factorized
//
// Mathematical details (Rasmussen & Williams, Algorithm 2.1):
//
//	K_tt = k(X, X) + (noise² + Jitter)·I = LLᵀ
//	α    = Lᵀ \ (L \ y)
//	μ    = K_tpᵀ α
//	Σ    = K_pp + Jitter·I − K_tpᵀ K_tt⁻¹ K_tp
//
// K_tt⁻¹ K_tp is obtained from the Cholesky factor; no inverse is formed.
func Posterior(k Kernel, xPred, xTrain mat.Matrix, yTrain []float64, noise float64, p Params) (*Prediction, error) {
	theta, err := p.checkSchema(k)
	if err != nil {
		return nil, fmt.Errorf("Posterior: %w", err)
	}

	xt, err := AsPoints(xTrain)
	if err != nil {
		return nil, fmt.Errorf("Posterior: %w", err)
	}

	if err := checkTraining(xt, yTrain); err != nil {
		return nil, fmt.Errorf("Posterior: %w", err)
	}

	c, err := newConditioner(k, xt, theta, noise)
	if err != nil {
		return nil, fmt.Errorf("Posterior: %w", err)
	}

	xp, err := AsPoints(xPred)
	if err != nil {
		return nil, fmt.Errorf("Posterior: %w", err)
	}

	pred, err := c.predict(xp, yTrain)
	if err != nil {
		return nil, fmt.Errorf("Posterior: %w", err)
	}

	pred.Params = p

	return pred, nil
}

//////
// Conditioner.
//////

func newConditioner(k Kernel, x *mat.Dense, theta []float64, noise float64) (*conditioner, error) {
	ktt, err := k.Cov(x, x, theta)
	if err != nil {
		return nil, err
	}

	n, _ := x.Dims()
	sym := mat.NewSymDense(n, nil)
	diag := noise*noise + Jitter

	for i := 0; i < n; i++ {
		sym.SetSym(i, i, ktt.At(i, i)+diag)

		for j := i + 1; j < n; j++ {
			sym.SetSym(i, j, ktt.At(i, j))
		}
	}

	c := &conditioner{kernel: k, theta: theta, x: x}
	if ok := c.chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("%s on %d points: %w", k.Name(), n, ErrIllConditioned)
	}

	return c, nil
}

// alpha solves K_tt α = y.
func (c *conditioner) alpha(y []float64) (*mat.VecDense, error) {
	var a mat.VecDense
	if err := c.chol.SolveVecTo(&a, mat.NewVecDense(len(y), y)); err != nil {
		return nil, fmt.Errorf("solve: %v: %w", err, ErrIllConditioned)
	}

	return &a, nil
}

// weights returns K_tt⁻¹ K_tp for query points xp together with K_tp. The
// posterior mean for any observation vector y is weightsᵀ y.
func (c *conditioner) weights(xp *mat.Dense) (w, ktp *mat.Dense, err error) {
	ktp, err = c.kernel.Cov(c.x, xp, c.theta)
	if err != nil {
		return nil, nil, err
	}

	w = new(mat.Dense)
	if err := c.chol.SolveTo(w, ktp); err != nil {
		return nil, nil, fmt.Errorf("solve: %v: %w", err, ErrIllConditioned)
	}

	return w, ktp, nil
}

func (c *conditioner) predict(xp *mat.Dense, y []float64) (*Prediction, error) {
	m, d := xp.Dims()
	if _, dt := c.x.Dims(); d != dt {
		return nil, fmt.Errorf("query has %d columns, training has %d: %w", d, dt, ErrDimensionMismatch)
	}

	a, err := c.alpha(y)
	if err != nil {
		return nil, err
	}

	w, ktp, err := c.weights(xp)
	if err != nil {
		return nil, err
	}

	kpp, err := c.kernel.Cov(xp, xp, c.theta)
	if err != nil {
		return nil, err
	}

	var mu mat.VecDense
	mu.MulVec(ktp.T(), a)

	var reduction mat.Dense
	reduction.Mul(ktp.T(), w)

	cov := mat.NewSymDense(m, nil)
	variance := make([]float64, m)

	for i := 0; i < m; i++ {
		v := math.Max(kpp.At(i, i)+Jitter-reduction.At(i, i), 0)
		cov.SetSym(i, i, v)
		variance[i] = v

		for j := i + 1; j < m; j++ {
			cov.SetSym(i, j, kpp.At(i, j)-0.5*(reduction.At(i, j)+reduction.At(j, i)))
		}
	}

	return &Prediction{
		Mean:       mat.Col(nil, 0, &mu),
		Variance:   variance,
		Covariance: cov,
	}, nil
}

func checkTraining(x *mat.Dense, y []float64) error {
	n, _ := x.Dims()
	if n == 0 {
		return ErrEmptyTrainingSet
	}

	if len(y) != n {
		return fmt.Errorf("%d training points, %d observations: %w", n, len(y), ErrDimensionMismatch)
	}

	return nil
}
