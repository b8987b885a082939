package gpbo

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Bound is the closed interval [Lower, Upper] of one input dimension.
type Bound struct {
	Lower float64
	Upper float64
}

// Design names an initial experiment design.
type Design string

const (
	// RandomSampling draws points uniformly at random.
	RandomSampling Design = "random"

	// LatinHypercubeSampling stratifies every dimension into n bins with
	// exactly one point per bin.
	LatinHypercubeSampling Design = "lhs"

	// MaxMinSampling picks points greedily to maximize the minimum pairwise
	// distance from a random pool.
	MaxMinSampling Design = "maxmin"
)

// maxMinPoolFactor is the pool size of MaxMinDesign relative to n.
const maxMinPoolFactor = 20

// ParseDesign converts a name such as "lhs" to a Design.
func ParseDesign(s string) (Design, error) {
	switch d := Design(s); d {
	case RandomSampling, LatinHypercubeSampling, MaxMinSampling:
		return d, nil
	}

	return "", fmt.Errorf("design %q: %w", s, ErrInvalidArgument)
}

// Generate lays out n points inside bounds with design d.
func (d Design) Generate(n int, bounds []Bound, rng *rand.Rand) (*mat.Dense, error) {
	switch d {
	case RandomSampling:
		return RandomDesign(n, bounds, rng)
	case LatinHypercubeSampling:
		return LatinHypercube(n, bounds, rng)
	case MaxMinSampling:
		return MaxMinDesign(n, bounds, rng)
	}

	return nil, fmt.Errorf("Generate: design %q: %w", string(d), ErrInvalidArgument)
}

// RandomDesign draws n points uniformly inside bounds.
func RandomDesign(n int, bounds []Bound, rng *rand.Rand) (*mat.Dense, error) {
	if err := checkDesignArgs(n, bounds, rng); err != nil {
		return nil, fmt.Errorf("RandomDesign: %w", err)
	}

	x := mat.NewDense(n, len(bounds), nil)

	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j, b := range bounds {
			row[j] = b.Lower + rng.Float64()*(b.Upper-b.Lower)
		}
	}

	return x, nil
}

// LatinHypercube draws n points such that, in every dimension, each of the n
// equal-width strata holds exactly one point. Positions inside a stratum are
// uniform.
func LatinHypercube(n int, bounds []Bound, rng *rand.Rand) (*mat.Dense, error) {
	if err := checkDesignArgs(n, bounds, rng); err != nil {
		return nil, fmt.Errorf("LatinHypercube: %w", err)
	}

	x := mat.NewDense(n, len(bounds), nil)

	for j, b := range bounds {
		width := (b.Upper - b.Lower) / float64(n)

		for i, stratum := range rng.Perm(n) {
			x.Set(i, j, b.Lower+(float64(stratum)+rng.Float64())*width)
		}
	}

	return x, nil
}

// MaxMinDesign picks n points from a uniform pool of 20·n, starting from a
// random pool point and then repeatedly adding the pool point farthest from
// everything chosen so far.
func MaxMinDesign(n int, bounds []Bound, rng *rand.Rand) (*mat.Dense, error) {
	if err := checkDesignArgs(n, bounds, rng); err != nil {
		return nil, fmt.Errorf("MaxMinDesign: %w", err)
	}

	pool, err := RandomDesign(n*maxMinPoolFactor, bounds, rng)
	if err != nil {
		return nil, fmt.Errorf("MaxMinDesign: %w", err)
	}

	size, d := pool.Dims()

	// nearest[k] is the distance from pool point k to the closest
	// chosen point.
	nearest := make([]float64, size)
	for k := range nearest {
		nearest[k] = math.Inf(1)
	}

	x := mat.NewDense(n, d, nil)
	pick := rng.Intn(size)

	for i := 0; i < n; i++ {
		chosen := pool.RawRowView(pick)
		x.SetRow(i, chosen)

		for k := range nearest {
			nearest[k] = math.Min(nearest[k], floats.Distance(pool.RawRowView(k), chosen, 2))
		}

		pick = floats.MaxIdx(nearest)
	}

	return x, nil
}

func checkDesignArgs(n int, bounds []Bound, rng *rand.Rand) error {
	if n <= 0 {
		return fmt.Errorf("%d points: %w", n, ErrInvalidArgument)
	}

	if len(bounds) == 0 {
		return fmt.Errorf("no bounds: %w", ErrInvalidArgument)
	}

	if rng == nil {
		return fmt.Errorf("nil random source: %w", ErrInvalidArgument)
	}

	for i, b := range bounds {
		if !(b.Lower <= b.Upper) {
			return fmt.Errorf("bound %d: lower %g above upper %g: %w", i, b.Lower, b.Upper, ErrInvalidArgument)
		}
	}

	return nil
}
