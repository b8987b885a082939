package gpbo

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DefaultSampleJitter is the ε used when drawing from posterior covariances.
const DefaultSampleJitter = 1e-8

// SampleMVN draws n samples from the multivariate normal N(mu, sigma).
//
// Parameters:
// - n: Number of samples (rows of the result)
// - mu: Mean vector of length p
// - sigma: p×p covariance; must be positive semi-definite
// - eps: Tolerance for the PSD check and jitter added to the diagonal
// - rng: Explicit random source (required, never shared global state)
//
// Returns:
// - *mat.Dense: n×p matrix, one sample per row
// - error: ErrDimensionMismatch, ErrNotPositiveDefinite, ErrInvalidArgument
//
// How it works:
//  1. Checks every eigenvalue of sigma is ≥ −eps·|λ_max|
//  2. Factorizes sigma + eps·I = UᵀU with a Cholesky decomposition
//  3. Draws an n×p matrix Z of standard normals (row-major from rng)
//  4. Returns Z·U + 1μᵀ
//
// The decomposition is not cached between calls: posterior covariances
// change every round, so there is nothing to reuse.
func SampleMVN(n int, mu []float64, sigma mat.Symmetric, eps float64, rng *rand.Rand) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("SampleMVN: %d samples: %w", n, ErrInvalidArgument)
	}

	if rng == nil {
		return nil, fmt.Errorf("SampleMVN: nil random source: %w", ErrInvalidArgument)
	}

	if eps < 0 {
		return nil, fmt.Errorf("SampleMVN: negative eps %g: %w", eps, ErrInvalidArgument)
	}

	p := len(mu)
	if r, c := sigma.Dims(); r != p || c != p {
		return nil, fmt.Errorf("SampleMVN: covariance is %d×%d, mean has %d entries: %w", r, c, p, ErrDimensionMismatch)
	}

	if p == 0 {
		return nil, fmt.Errorf("SampleMVN: empty mean: %w", ErrInvalidArgument)
	}

	if err := checkPSD(sigma, eps); err != nil {
		return nil, fmt.Errorf("SampleMVN: %w", err)
	}

	jittered := mat.NewSymDense(p, nil)
	jittered.CopySym(sigma)

	for i := 0; i < p; i++ {
		jittered.SetSym(i, i, jittered.At(i, i)+eps)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(jittered); !ok {
		return nil, fmt.Errorf("SampleMVN: cholesky failed: %w", ErrNotPositiveDefinite)
	}

	z := mat.NewDense(n, p, nil)
	raw := z.RawMatrix().Data

	for i := range raw {
		raw[i] = rng.NormFloat64()
	}

	var out mat.Dense
	out.Mul(z, chol.RawU())

	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += mu[j]
		}
	}

	return &out, nil
}

// checkPSD verifies all eigenvalues of sigma are ≥ −eps·|λ_max|.
func checkPSD(sigma mat.Symmetric, eps float64) error {
	var eig mat.EigenSym
	if ok := eig.Factorize(sigma, false); !ok {
		return fmt.Errorf("eigendecomposition failed: %w", ErrNotPositiveDefinite)
	}

	values := eig.Values(nil)

	largest := 0.0
	for _, v := range values {
		largest = math.Max(largest, math.Abs(v))
	}

	for _, v := range values {
		if v < -eps*largest {
			return fmt.Errorf("eigenvalue %g below tolerance %g: %w", v, -eps*largest, ErrNotPositiveDefinite)
		}
	}

	return nil
}
