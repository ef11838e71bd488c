package formulas

import (
	"github.com/markcheno/go-talib"
)

// PeriodReturns returns the simple period-over-period returns of a price
// series using talib's rate of change. The result has len(prices)-1 values.
func PeriodReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	// Rocp leaves the first lookback slot at zero.
	return talib.Rocp(prices, 1)[1:]
}

// WorstPeriodReturn returns the most negative single-period return, or nil
// if fewer than two prices are available.
func WorstPeriodReturn(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}
	worst := MinValue(PeriodReturns(prices))
	return &worst
}

// CalculateMaxDrawdown calculates the maximum peak-to-trough decline
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// Returns the drawdown as a positive fraction (0.25 = 25% below peak) or nil.
func CalculateMaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			if drawdown := (peak - price) / peak; drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}
