package prices

import "math"

// sanitize marks non-finite and non-positive prices as missing.
func sanitize(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			out[i] = math.NaN()
		} else {
			out[i] = p
		}
	}
	return out
}

// fillGaps forward-fills then back-fills missing prices in place and returns
// how many points were missing and how many remain missing. Anything still
// missing afterwards means the column had no valid price at all.
func fillGaps(prices []float64) (missing, remaining int) {
	var lastValid float64
	hasLastValid := false
	for i := 0; i < len(prices); i++ {
		if math.IsNaN(prices[i]) {
			missing++
			if hasLastValid {
				prices[i] = lastValid
			}
		} else {
			lastValid = prices[i]
			hasLastValid = true
		}
	}

	var nextValid float64
	hasNextValid := false
	for i := len(prices) - 1; i >= 0; i-- {
		if math.IsNaN(prices[i]) {
			if hasNextValid {
				prices[i] = nextValid
			}
		} else {
			nextValid = prices[i]
			hasNextValid = true
		}
	}

	for _, p := range prices {
		if math.IsNaN(p) {
			remaining++
		}
	}
	return missing, remaining
}
