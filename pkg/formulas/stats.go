// Package formulas holds small numeric helpers over price and return series.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// CalculateReturns converts prices to percentage returns
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// AnnualizedMean scales the arithmetic mean of per-period returns by the
// number of periods per year.
func AnnualizedMean(returns []float64, periodsPerYear float64) float64 {
	return Mean(returns) * periodsPerYear
}

// CompoundedAnnualReturn annualizes the cumulative growth of a return series:
// ((1+r1)*(1+r2)*...*(1+rN))^(periodsPerYear/N) - 1
func CompoundedAnnualReturn(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}
	if cumulative <= 0 {
		return -1
	}

	return math.Pow(cumulative, periodsPerYear/float64(len(returns))) - 1
}

// MinValue returns the smallest element, or NaN for an empty slice.
func MinValue(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
