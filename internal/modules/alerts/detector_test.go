package alerts

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/prices"
)

func twoAssetMatrix() *prices.PriceMatrix {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := &prices.PriceMatrix{Assets: []string{"A", "B"}}
	rows := [][]float64{
		{100, 50},
		{101, 50.5},
		{85.85, 51},
		{86, 50.8},
		{88, 51.2},
	}
	for i, row := range rows {
		m.Timestamps = append(m.Timestamps, start.AddDate(0, 0, i))
		m.Values = append(m.Values, row)
	}
	return m
}

func TestDetector_Detect(t *testing.T) {
	d := NewDetector(zerolog.Nop())

	records, err := d.Detect(twoAssetMatrix(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Asset)
	assert.InDelta(t, -15.0, records[0].MinDropPercent, 1e-9)
	assert.True(t, records[0].Triggered)

	records, err = d.Detect(twoAssetMatrix(), 20)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDetector_ScanReportsEveryAsset(t *testing.T) {
	records, err := NewDetector(zerolog.Nop()).Scan(twoAssetMatrix(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "A", records[0].Asset)
	assert.True(t, records[0].Triggered)
	assert.InDelta(t, 15.0, records[0].MaxDrawdownPercent, 1e-9)

	assert.Equal(t, "B", records[1].Asset)
	assert.False(t, records[1].Triggered)
	assert.Less(t, records[1].MinDropPercent, 0.0)
	assert.Greater(t, records[1].MinDropPercent, -1.0)
}

func TestDetector_ThresholdIsInclusive(t *testing.T) {
	records, err := NewDetector(zerolog.Nop()).Detect(twoAssetMatrix(), 15)
	require.NoError(t, err)
	// -15% is exactly at the threshold up to rounding.
	for _, r := range records {
		assert.Equal(t, "A", r.Asset)
	}
}

func TestDetector_InvalidThreshold(t *testing.T) {
	d := NewDetector(zerolog.Nop())
	for _, threshold := range []float64{0, 0.5, 50.5, 100, -10} {
		_, err := d.Detect(twoAssetMatrix(), threshold)
		assert.ErrorIs(t, err, domain.ErrInvalidThreshold, "threshold %v", threshold)
	}
	for _, threshold := range []float64{1, 50} {
		_, err := d.Scan(twoAssetMatrix(), threshold)
		assert.NoError(t, err, "threshold %v", threshold)
	}
}

func TestDetector_InsufficientData(t *testing.T) {
	d := NewDetector(zerolog.Nop())

	_, err := d.Detect(prices.Empty([]string{"A", "B"}), 10)
	require.Error(t, err)
	var insufficient *domain.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 0, insufficient.Rows)

	single := twoAssetMatrix()
	single.Timestamps = single.Timestamps[:1]
	single.Values = single.Values[:1]
	_, err = d.Detect(single, 10)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestDetector_DoesNotMutateInput(t *testing.T) {
	m := twoAssetMatrix()
	before := m.Column("A")

	_, err := NewDetector(zerolog.Nop()).Scan(m, 10)
	require.NoError(t, err)
	assert.Equal(t, before, m.Column("A"))
}
