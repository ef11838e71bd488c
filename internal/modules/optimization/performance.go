package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PerformanceSummary reports annualized portfolio metrics.
// Sharpe is NaN when volatility is zero.
type PerformanceSummary struct {
	ExpectedReturn float64
	Volatility     float64
	Sharpe         float64
}

// Performance evaluates weights w against the estimates at riskFreeRate.
func Performance(est *MomentEstimates, w []float64, riskFreeRate float64) PerformanceSummary {
	wv := mat.NewVecDense(len(w), append([]float64(nil), w...))
	mu := mat.NewVecDense(len(est.ExpectedReturns), est.ExpectedReturns)

	ret := mat.Dot(wv, mu)
	variance := mat.Inner(wv, est.Covariance, wv)
	vol := math.Sqrt(math.Max(variance, 0))

	sharpe := math.NaN()
	if vol > zeroVolatility {
		sharpe = (ret - riskFreeRate) / vol
	}

	return PerformanceSummary{
		ExpectedReturn: ret,
		Volatility:     vol,
		Sharpe:         sharpe,
	}
}
