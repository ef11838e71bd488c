package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/allocator/internal/domain"
)

// Strategy selects the portfolio the optimizer solves for.
type Strategy string

const (
	// MaxSharpe is the long-only tangency portfolio.
	MaxSharpe Strategy = "max_sharpe"
	// MinVolatility is the long-only minimum-variance portfolio.
	MinVolatility Strategy = "min_volatility"
)

// ParseStrategy maps a strategy name to a Strategy. Empty selects MaxSharpe.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", MaxSharpe:
		return MaxSharpe, nil
	case MinVolatility:
		return MinVolatility, nil
	default:
		return "", fmt.Errorf("unknown strategy: %s", s)
	}
}

// Solver names reported on an Allocation.
const (
	SolverTrivial   = "trivial"
	SolverActiveSet = "active_set"
	SolverPenalty   = "penalty"
)

const (
	// DefaultWeightCutoff is the weight below which allocations are dropped.
	DefaultWeightCutoff = 1e-4

	defaultActiveSetIterations = 500
	penaltyWeight              = 1000.0
)

// Options configures a single optimization.
type Options struct {
	RiskFreeRate float64
	Strategy     Strategy // empty means MaxSharpe
	WeightCutoff float64  // zero means DefaultWeightCutoff
}

// Allocation is an optimized long-only portfolio.
// Weights are aligned with Assets, non-negative and sum to 1.
type Allocation struct {
	Assets       []string
	Weights      []float64
	Performance  PerformanceSummary
	Strategy     Strategy     // strategy actually solved
	ReturnMethod ReturnMethod // how the expected returns were estimated
	Degenerate   bool         // no asset beat the risk-free rate; min variance was used
	Regularized  bool         // a ridge term was added to the covariance
	Ridge        float64
	Solver       string
}

// MVOptimizer performs long-only mean-variance portfolio optimization.
type MVOptimizer struct {
	maxActiveSetIter int
	log              zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer.
func NewMVOptimizer(log zerolog.Logger) *MVOptimizer {
	return &MVOptimizer{
		maxActiveSetIter: defaultActiveSetIterations,
		log:              log.With().Str("component", "mv_optimizer").Logger(),
	}
}

// Optimize solves for the portfolio selected by opts.Strategy.
//
// Mathematical formulation:
//   - min_volatility: minimize w'Σw
//   - max_sharpe: maximize (μ'w - r_f) / sqrt(w'Σw)
//
// Constraints:
//   - Σw = 1
//   - w_i ≥ 0
//
// Both reduce to minimizing x'Σx subject to a'x = 1, x ≥ 0, with a = 1 for
// min_volatility and a = μ - r_f for max_sharpe (w = x / Σx). When no asset
// has an expected return above r_f, max_sharpe falls back to min_volatility
// and the allocation is flagged Degenerate.
func (mvo *MVOptimizer) Optimize(est *MomentEstimates, opts Options) (*Allocation, error) {
	if est == nil || len(est.Assets) == 0 {
		return nil, &domain.OptimizationInfeasibleError{Reason: "no assets to allocate"}
	}
	n := len(est.Assets)
	if len(est.ExpectedReturns) != n {
		return nil, fmt.Errorf("expected returns size %d doesn't match assets count %d", len(est.ExpectedReturns), n)
	}
	if est.Covariance == nil || est.Covariance.SymmetricDim() != n {
		return nil, fmt.Errorf("covariance matrix doesn't match assets count %d", n)
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = MaxSharpe
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	cutoff := opts.WeightCutoff
	if cutoff <= 0 {
		cutoff = DefaultWeightCutoff
	}

	alloc := &Allocation{
		Assets:       append([]string(nil), est.Assets...),
		Strategy:     strategy,
		ReturnMethod: est.Method,
	}

	if n == 1 {
		alloc.Weights = []float64{1}
		alloc.Solver = SolverTrivial
		alloc.Performance = Performance(est, alloc.Weights, opts.RiskFreeRate)
		return alloc, nil
	}

	if strategy == MaxSharpe && !anyAbove(est.ExpectedReturns, opts.RiskFreeRate) {
		mvo.log.Warn().
			Float64("risk_free_rate", opts.RiskFreeRate).
			Msg("No asset beats the risk-free rate, using minimum variance portfolio")
		alloc.Strategy = MinVolatility
		alloc.Degenerate = true
	}

	sigma, ridge := regularize(est.Covariance)
	if ridge > 0 {
		mvo.log.Debug().Float64("ridge", ridge).Msg("Regularized ill-conditioned covariance")
		alloc.Regularized = true
		alloc.Ridge = ridge
	}

	a := make([]float64, n)
	for i := range a {
		if alloc.Strategy == MaxSharpe {
			a[i] = est.ExpectedReturns[i] - opts.RiskFreeRate
		} else {
			a[i] = 1
		}
	}

	weights, err := mvo.solveActiveSet(sigma, a)
	alloc.Solver = SolverActiveSet
	if err != nil {
		mvo.log.Warn().Err(err).Msg("Active-set solve failed, falling back to penalty method")
		weights, err = mvo.solvePenalty(est.ExpectedReturns, sigma, alloc.Strategy, opts.RiskFreeRate)
		if err != nil {
			return nil, &domain.OptimizationInfeasibleError{Reason: err.Error()}
		}
		alloc.Solver = SolverPenalty
	}

	alloc.Weights = cleanWeights(weights, cutoff)
	alloc.Performance = Performance(est, alloc.Weights, opts.RiskFreeRate)

	mvo.log.Debug().
		Str("strategy", string(alloc.Strategy)).
		Str("solver", alloc.Solver).
		Float64("expected_return", alloc.Performance.ExpectedReturn).
		Float64("volatility", alloc.Performance.Volatility).
		Msg("Optimized portfolio")

	return alloc, nil
}

// solveActiveSet solves the reduced QP and maps x back to weights.
func (mvo *MVOptimizer) solveActiveSet(sigma *mat.SymDense, a []float64) ([]float64, error) {
	x, err := solveSimplexQP(sigma, a, mvo.maxActiveSetIter)
	if err != nil {
		return nil, err
	}
	return normalize(x)
}

// solvePenalty minimizes the strategy objective with the weight-sum
// constraint folded in as a quadratic penalty and weights projected onto
// [0, 1]. BFGS is tried first, then Nelder-Mead.
func (mvo *MVOptimizer) solvePenalty(mu []float64, sigma *mat.SymDense, strategy Strategy, rf float64) ([]float64, error) {
	n := len(mu)

	objective := func(x []float64) float64 {
		xProj := projectToBounds(x)
		ret, variance, sum := moments(mu, sigma, xProj)

		var obj float64
		if strategy == MaxSharpe {
			obj = -(ret - rf) / math.Sqrt(math.Max(variance, 1e-10))
		} else {
			obj = variance
		}
		return obj + penaltyWeight*(sum-1.0)*(sum-1.0)
	}

	gradient := func(grad, x []float64) {
		xProj := projectToBounds(x)
		ret, variance, sum := moments(mu, sigma, xProj)
		stdDev := math.Sqrt(math.Max(variance, 1e-10))

		for i := 0; i < n; i++ {
			var sw float64
			for j := 0; j < n; j++ {
				sw += sigma.At(i, j) * xProj[j]
			}
			if strategy == MaxSharpe {
				grad[i] = -mu[i]/stdDev + (ret-rf)*sw/(stdDev*stdDev*stdDev)
			} else {
				grad[i] = 2 * sw
			}
			grad[i] += 2 * penaltyWeight * (sum - 1.0)
		}
	}

	problem := optimize.Problem{Func: objective, Grad: gradient}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	return normalize(projectToBounds(result.X))
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

func moments(mu []float64, sigma mat.Symmetric, x []float64) (ret, variance, sum float64) {
	n := len(x)
	for i := 0; i < n; i++ {
		ret += mu[i] * x[i]
		sum += x[i]
		for j := 0; j < n; j++ {
			variance += x[i] * x[j] * sigma.At(i, j)
		}
	}
	return ret, variance, sum
}

func projectToBounds(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(0, math.Min(1, v))
	}
	return out
}

func normalize(x []float64) ([]float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += math.Max(v, 0)
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("solution has no positive weight")
	}
	w := make([]float64, len(x))
	for i, v := range x {
		w[i] = math.Max(v, 0) / sum
	}
	return w, nil
}

// cleanWeights snaps weights below cutoff to zero and renormalizes the rest.
func cleanWeights(w []float64, cutoff float64) []float64 {
	out := make([]float64, len(w))
	sum := 0.0
	for i, v := range w {
		if v >= cutoff {
			out[i] = v
			sum += v
		}
	}
	if sum == 0 {
		copy(out, w)
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func anyAbove(values []float64, threshold float64) bool {
	for _, v := range values {
		if v > threshold {
			return true
		}
	}
	return false
}
