package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/allocator/internal/domain"
)

func estimates(assets []string, mu []float64, cov []float64) *MomentEstimates {
	return &MomentEstimates{
		Assets:          assets,
		ExpectedReturns: mu,
		Covariance:      mat.NewSymDense(len(assets), cov),
		Observations:    100,
		PeriodsPerYear:  252,
	}
}

func weightOf(a *Allocation, key string) float64 {
	for i, k := range a.Assets {
		if k == key {
			return a.Weights[i]
		}
	}
	return 0
}

func assertValidWeights(t *testing.T, alloc *Allocation) {
	t.Helper()
	require.Len(t, alloc.Weights, len(alloc.Assets))
	sum := 0.0
	for _, w := range alloc.Weights {
		assert.GreaterOrEqual(t, w, 0.0, "weights should be non-negative")
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6, "weights should sum to 1")
}

func TestMVOptimizer_MaxSharpeInterior(t *testing.T) {
	est := estimates([]string{"A", "B"}, []float64{0.10, 0.05}, []float64{
		0.04, 0,
		0, 0.01,
	})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{})
	require.NoError(t, err)
	assertValidWeights(t, alloc)

	// Tangency weights are proportional to Σ⁻¹μ = (2.5, 5).
	assert.InDelta(t, 1.0/3.0, weightOf(alloc, "A"), 1e-9)
	assert.InDelta(t, 2.0/3.0, weightOf(alloc, "B"), 1e-9)
	assert.Equal(t, MaxSharpe, alloc.Strategy)
	assert.Equal(t, SolverActiveSet, alloc.Solver)
	assert.False(t, alloc.Degenerate)
	assert.False(t, alloc.Regularized)

	assert.InDelta(t, 0.2/3.0, alloc.Performance.ExpectedReturn, 1e-9)
	assert.InDelta(t, math.Sqrt(0.08/9.0), alloc.Performance.Volatility, 1e-9)
	assert.InDelta(t, math.Sqrt(0.5), alloc.Performance.Sharpe, 1e-9)
}

func TestMVOptimizer_MaxSharpeLongOnlyBinds(t *testing.T) {
	// Unconstrained tangency would short B.
	est := estimates([]string{"A", "B"}, []float64{0.10, -0.05}, []float64{
		0.04, 0,
		0, 0.01,
	})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{})
	require.NoError(t, err)
	assertValidWeights(t, alloc)
	assert.InDelta(t, 1.0, weightOf(alloc, "A"), 1e-9)
	assert.Equal(t, 0.0, weightOf(alloc, "B"))
}

func TestMVOptimizer_MaxSharpeBeatsAlternatives(t *testing.T) {
	est := estimates([]string{"A", "B", "C"}, []float64{0.12, 0.08, 0.15}, []float64{
		0.04, 0.01, 0.02,
		0.01, 0.03, 0.005,
		0.02, 0.005, 0.09,
	})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{RiskFreeRate: 0.02})
	require.NoError(t, err)
	assertValidWeights(t, alloc)

	candidates := [][]float64{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{1.0 / 3, 1.0 / 3, 1.0 / 3},
		{0.5, 0.5, 0}, {0, 0.5, 0.5}, {0.5, 0, 0.5},
	}
	for _, w := range candidates {
		perf := Performance(est, w, 0.02)
		assert.GreaterOrEqual(t, alloc.Performance.Sharpe, perf.Sharpe-1e-9, "weights %v", w)
	}
}

func TestMVOptimizer_MinVolatility(t *testing.T) {
	est := estimates([]string{"A", "B"}, []float64{0.10, 0.05}, []float64{
		0.04, 0,
		0, 0.09,
	})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{Strategy: MinVolatility})
	require.NoError(t, err)
	assertValidWeights(t, alloc)
	assert.InDelta(t, 0.09/0.13, weightOf(alloc, "A"), 1e-9)
	assert.InDelta(t, 0.04/0.13, weightOf(alloc, "B"), 1e-9)
	assert.Equal(t, MinVolatility, alloc.Strategy)
	assert.False(t, alloc.Degenerate)
}

func TestMVOptimizer_MinVolatilityNotAboveUniform(t *testing.T) {
	est := estimates([]string{"A", "B", "C", "D"}, []float64{0.1, 0.2, 0.05, 0.07}, []float64{
		0.09, 0.02, 0.01, 0.03,
		0.02, 0.16, 0.04, 0.02,
		0.01, 0.04, 0.01, 0.005,
		0.03, 0.02, 0.005, 0.0625,
	})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{Strategy: MinVolatility})
	require.NoError(t, err)
	assertValidWeights(t, alloc)

	uniform := Performance(est, []float64{0.25, 0.25, 0.25, 0.25}, 0)
	assert.LessOrEqual(t, alloc.Performance.Volatility, uniform.Volatility+1e-12)
}

func TestMVOptimizer_DegenerateFallsBackToMinVolatility(t *testing.T) {
	est := estimates([]string{"A", "B"}, []float64{-0.10, -0.05}, []float64{
		0.04, 0,
		0, 0.09,
	})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{})
	require.NoError(t, err)
	assertValidWeights(t, alloc)
	assert.True(t, alloc.Degenerate)
	assert.Equal(t, MinVolatility, alloc.Strategy)
	assert.InDelta(t, 0.09/0.13, weightOf(alloc, "A"), 1e-9)
	assert.Less(t, alloc.Performance.Sharpe, 0.0)
}

func TestMVOptimizer_DegenerateWhenReturnsBelowRiskFreeRate(t *testing.T) {
	est := estimates([]string{"A", "B"}, []float64{0.03, 0.04}, []float64{
		0.04, 0,
		0, 0.09,
	})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{RiskFreeRate: 0.05})
	require.NoError(t, err)
	assert.True(t, alloc.Degenerate)
}

func TestMVOptimizer_SingleAsset(t *testing.T) {
	for _, mu := range []float64{0.2, -0.2} {
		est := estimates([]string{"A"}, []float64{mu}, []float64{0.04})

		alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{})
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, alloc.Weights)
		assert.Equal(t, SolverTrivial, alloc.Solver)
		assert.InDelta(t, mu, alloc.Performance.ExpectedReturn, 1e-12)
		assert.InDelta(t, 0.2, alloc.Performance.Volatility, 1e-12)
	}
}

func TestMVOptimizer_ZeroVolatilitySharpeIsNaN(t *testing.T) {
	est := estimates([]string{"A"}, []float64{0.05}, []float64{0})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, alloc.Performance.Volatility)
	assert.True(t, math.IsNaN(alloc.Performance.Sharpe))
}

func TestMVOptimizer_SingularCovarianceIsRegularized(t *testing.T) {
	// Two identical assets.
	est := estimates([]string{"A", "B"}, []float64{0.10, 0.10}, []float64{
		0.04, 0.04,
		0.04, 0.04,
	})

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{})
	require.NoError(t, err)
	assertValidWeights(t, alloc)
	assert.True(t, alloc.Regularized)
	assert.Greater(t, alloc.Ridge, 0.0)
	assert.InDelta(t, 0.5, weightOf(alloc, "A"), 1e-6)
	// Metrics use the unregularized covariance.
	assert.InDelta(t, 0.2, alloc.Performance.Volatility, 1e-9)
}

func TestMVOptimizer_ZeroCovarianceIsRegularized(t *testing.T) {
	est := estimates([]string{"A", "B", "C"}, []float64{0.1, 0.2, 0.3}, make([]float64, 9))

	alloc, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{})
	require.NoError(t, err)
	assertValidWeights(t, alloc)
	assert.True(t, alloc.Regularized)
	assert.True(t, math.IsNaN(alloc.Performance.Sharpe))
}

func TestMVOptimizer_Deterministic(t *testing.T) {
	est := estimates([]string{"A", "B", "C"}, []float64{0.12, 0.08, 0.15}, []float64{
		0.04, 0.01, 0.02,
		0.01, 0.03, 0.005,
		0.02, 0.005, 0.09,
	})
	optimizer := NewMVOptimizer(zerolog.Nop())

	first, err := optimizer.Optimize(est, Options{})
	require.NoError(t, err)
	second, err := optimizer.Optimize(est, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Weights, second.Weights)
}

func TestMVOptimizer_DustWeightsAreDropped(t *testing.T) {
	w := cleanWeights([]float64{0.49995, 0.49995, 0.00005, 0.00005}, DefaultWeightCutoff)
	assert.InDelta(t, 0.5, w[0], 1e-12)
	assert.InDelta(t, 0.5, w[1], 1e-12)
	assert.Equal(t, 0.0, w[2])
	assert.Equal(t, 0.0, w[3])
}

func TestMVOptimizer_PenaltyFallback(t *testing.T) {
	est := estimates([]string{"A", "B"}, []float64{0.10, 0.05}, []float64{
		0.04, 0,
		0, 0.09,
	})
	optimizer := NewMVOptimizer(zerolog.Nop())
	optimizer.maxActiveSetIter = 0

	alloc, err := optimizer.Optimize(est, Options{Strategy: MinVolatility})
	require.NoError(t, err)
	assertValidWeights(t, alloc)
	assert.Equal(t, SolverPenalty, alloc.Solver)
	assert.InDelta(t, 0.09/0.13, weightOf(alloc, "A"), 1e-2)
}

func TestMVOptimizer_NoAssetsIsInfeasible(t *testing.T) {
	_, err := NewMVOptimizer(zerolog.Nop()).Optimize(&MomentEstimates{}, Options{})
	require.Error(t, err)

	var infeasible *domain.OptimizationInfeasibleError
	assert.True(t, errors.As(err, &infeasible))
	assert.ErrorIs(t, err, domain.ErrOptimizationInfeasible)
}

func TestMVOptimizer_UnknownStrategy(t *testing.T) {
	est := estimates([]string{"A", "B"}, []float64{0.1, 0.1}, []float64{0.04, 0, 0, 0.04})
	_, err := NewMVOptimizer(zerolog.Nop()).Optimize(est, Options{Strategy: "efficient_risk"})
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, MaxSharpe, s)

	s, err = ParseStrategy("min_volatility")
	require.NoError(t, err)
	assert.Equal(t, MinVolatility, s)

	_, err = ParseStrategy("hrp")
	assert.Error(t, err)
}
