package cli

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPercent(t *testing.T) {
	testCases := []struct {
		name     string
		input    float64
		expected string
	}{
		{"simple", 0.1234, "12.34%"},
		{"rounds half away from zero", 0.123450, "12.35%"},
		{"negative", -0.0525, "-5.25%"},
		{"zero", 0, "0.00%"},
		{"whole", 1, "100.00%"},
		{"nan", math.NaN(), "n/a"},
		{"inf", math.Inf(1), "n/a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatPercent(tc.input))
		})
	}
}

func TestFormatPercentValue(t *testing.T) {
	assert.Equal(t, "-15.00%", FormatPercentValue(-15))
	assert.Equal(t, "10.00%", FormatPercentValue(10))
	assert.Equal(t, "n/a", FormatPercentValue(math.NaN()))
}

func TestFormatRatio(t *testing.T) {
	assert.Equal(t, "0.71", FormatRatio(math.Sqrt(0.5)))
	assert.Equal(t, "-1.50", FormatRatio(-1.5))
	assert.Equal(t, "n/a", FormatRatio(math.NaN()))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "2040.00", FormatPrice(2040))
	assert.Equal(t, "0.5123", FormatPrice(0.51234))
	assert.Equal(t, "n/a", FormatPrice(math.Inf(-1)))
}

func TestAlignColumns(t *testing.T) {
	out := alignColumns([][]string{
		{"Asset", "Weight"},
		{"Gold", "60.00%"},
		{"US_Bond", "40.00%"},
	})
	assert.Equal(t, "Asset    Weight\nGold     60.00%\nUS_Bond  40.00%", out)
}
