// Package gpbo provides Bayesian optimization with Gaussian Processes: kernels,
// a numerically stable GP posterior, maximum-likelihood hyperparameter
// fitting and the usual acquisition functions, plus a ready-made optimization
// loop for expensive objectives.
//
// # Features
//
// The package includes the following key features:
//
//   - Kernels: RBF and Matérn (any ν > 0, closed forms for 1/2, 3/2 and 5/2)
//     with declared, bounded hyperparameter schemas
//   - Posterior: mean, variance and full covariance through a Cholesky
//     factorization, never an explicit inverse
//   - Fitting: Nelder-Mead on the negative log marginal likelihood, positive
//     parameters searched in log space
//   - Acquisition Functions: Expected Improvement (EI), Probability of
//     Improvement (PI), Confidence Bound (CB), Thompson Sampling (TS) and the
//     Monte-Carlo Knowledge Gradient (KG)
//   - Generic Loop: Optimize works with both integer and floating-point
//     parameters
//   - Progress Monitoring: Real-time updates on optimization progress via
//     channels, structured logs through zap and optional prometheus metrics
//
// # Building Blocks
//
// A typical round fits a GP to the observations and scores candidates:
//
//	ts, err := gpbo.NewTrainingSet(x, y)
//	gp, err := gpbo.FitGP(gpbo.Matern{Nu: 2.5}, ts, 1e-3,
//	    gpbo.Matern{}.Schema().Defaults(), gpbo.DefaultFitConfig())
//	best, _, err := ts.Incumbent(gpbo.Minimize)
//	p, err := gpbo.Propose(ctx, gp, candidates, gpbo.EI, gpbo.AcquisitionParams{
//	    Task:      gpbo.Minimize,
//	    Incumbent: best,
//	    Xi:        gpbo.DefaultXi,
//	})
//	// Evaluate p.Point, then ts, err = ts.Append(p.Point, value)
//
// # Acquisition Functions
//
// 1. Expected Improvement (EI):
//
//   - Balances improvement probability and magnitude
//
//   - Most commonly used in practice
//
//     config.Acquisition = gpbo.EI
//     config.AcqParams.Xi = 0.01 // Minimum improvement margin
//
// 2. Probability of Improvement (PI):
//
//   - Conservative, focuses on small reliable improvements
//
// 3. Confidence Bound (CB):
//
//   - μ − κσ when minimizing, μ + κσ when maximizing
//
//   - Controlled by Kappa (higher = more exploration)
//
// 4. Thompson Sampling (TS):
//
//   - One joint draw from the posterior over all candidates
//
//   - No parameter tuning required
//
// 5. Knowledge Gradient (KG):
//
//   - Expected gain of the posterior-mean optimum from one more observation
//
//   - Most expensive; candidates are evaluated by a bounded worker pool
//
// # Configuration
//
// Start from DefaultConfig and adjust:
//
//   - Iterations: 20-200 (more = better results but longer runtime)
//   - InitialSamples: 5-20 (more = better initial model)
//   - NumCandidates: 100-1000 (more = better search but slower iterations)
//
// # Thread Safety
//
//   - FittedGP and TrainingSet are immutable and safe to share
//   - Optimize is safe for concurrent runs with different configs
//   - A *rand.Rand must not be shared between concurrent runs
package gpbo
