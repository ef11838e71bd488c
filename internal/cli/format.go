package cli

import (
	"math"

	"github.com/shopspring/decimal"
)

const notAvailable = "n/a"

// FormatPercent renders a fraction as a percentage with two decimals,
// rounding half away from zero.
func FormatPercent(fraction float64) string {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return notAvailable
	}
	return decimal.NewFromFloat(fraction).Shift(2).StringFixed(2) + "%"
}

// FormatPercentValue renders a value already expressed in percent.
func FormatPercentValue(percent float64) string {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return notAvailable
	}
	return decimal.NewFromFloat(percent).StringFixed(2) + "%"
}

// FormatRatio renders a unitless ratio with two decimals.
func FormatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatPrice renders a price with the precision its magnitude needs.
func FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	places := int32(2)
	if math.Abs(v) < 1 {
		places = 4
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
