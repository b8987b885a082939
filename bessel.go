package gpbo

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// besselNodes is the Gauss-Legendre order used for K_ν.
const besselNodes = 256

// logBesselK returns log K_ν(z), the modified Bessel function of the
// second kind, for z > 0 from the integral representation
//
//	K_ν(z) = ∫₀^∞ exp(−z cosh t) cosh(νt) dt.
//
// The factor exp(−z) is pulled out of the integrand so large z do not
// underflow before the final logarithm.
func logBesselK(nu, z float64) float64 {
	upper := besselUpperLimit(nu, z)

	integral := quad.Fixed(func(t float64) float64 {
		return math.Exp(-z*(math.Cosh(t)-1)) * math.Cosh(nu*t)
	}, 0, upper, besselNodes, quad.Legendre{}, 0)

	return math.Log(integral) - z
}

// besselUpperLimit finds where the integrand has decayed below e^-40
// relative to its value at zero.
func besselUpperLimit(nu, z float64) float64 {
	t := 1.0
	for z*(math.Cosh(t)-1)-nu*t < 40 && t < 700/math.Max(nu, 1) {
		t += 0.5
	}

	return t
}
