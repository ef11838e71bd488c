package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, 5, r.Len())
	assert.Equal(t, []string{"VNM_Fund", "Gold", "Bitcoin", "Ethereum", "US_Bond"}, r.Keys())
	assert.Equal(t, []string{"FUEVFVND.VN", "GC=F", "BTC-USD", "ETH-USD", "IEF"}, r.Tickers())

	key, ok := r.KeyForTicker("GC=F")
	require.True(t, ok)
	assert.Equal(t, "Gold", key)

	ticker, ok := r.TickerForKey("US_Bond")
	require.True(t, ok)
	assert.Equal(t, "IEF", ticker)

	_, ok = r.KeyForTicker("SPY")
	assert.False(t, ok)
}

func TestRegistry_AssetsReturnsCopy(t *testing.T) {
	r := DefaultRegistry()

	assets := r.Assets()
	assets[0].Key = "mutated"

	assert.Equal(t, "VNM_Fund", r.Keys()[0])
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name   string
		assets []Asset
	}{
		{"empty", nil},
		{"blank key", []Asset{{Key: " ", Ticker: "IEF"}}},
		{"blank ticker", []Asset{{Key: "Bond", Ticker: ""}}},
		{"duplicate key", []Asset{{Key: "A", Ticker: "X"}, {Key: "A", Ticker: "Y"}}},
		{"duplicate ticker", []Asset{{Key: "A", Ticker: "X"}, {Key: "B", Ticker: "X"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.assets...)
			assert.Error(t, err)
		})
	}
}

func TestParseRegistry(t *testing.T) {
	r, err := ParseRegistry("Gold=GC=F, Bitcoin=BTC-USD")
	require.NoError(t, err)

	assert.Equal(t, []string{"Gold", "Bitcoin"}, r.Keys())
	assert.Equal(t, []string{"GC=F", "BTC-USD"}, r.Tickers())
	assert.Equal(t, "Gold=GC=F,Bitcoin=BTC-USD", r.String())

	_, err = ParseRegistry("Gold")
	assert.Error(t, err)
}

func TestRegistry_SubsetKeepsOrder(t *testing.T) {
	r := DefaultRegistry()

	sub, err := r.Subset("US_Bond", "Gold", "Gold")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gold", "US_Bond"}, sub.Keys())

	_, err = r.Subset("Silver")
	assert.Error(t, err)
}
