package prices

import (
	"time"

	"github.com/aristath/allocator/pkg/formulas"
)

// PriceMatrix is a gap-free, time-ordered price table with one column per
// registry asset. An empty matrix (no rows) is the fail-soft result of a
// retrieval failure and must be checked with IsEmpty before use.
type PriceMatrix struct {
	Timestamps []time.Time
	Assets     []string    // column keys, registry order
	Values     [][]float64 // Values[row][col]
}

// Empty returns an explicitly empty matrix over the given asset keys.
func Empty(assets []string) *PriceMatrix {
	return &PriceMatrix{Assets: append([]string(nil), assets...)}
}

// IsEmpty reports whether the matrix has no rows.
func (m *PriceMatrix) IsEmpty() bool {
	return m == nil || len(m.Timestamps) == 0
}

// Rows returns the number of timestamps.
func (m *PriceMatrix) Rows() int {
	if m == nil {
		return 0
	}
	return len(m.Timestamps)
}

// Cols returns the number of assets.
func (m *PriceMatrix) Cols() int {
	if m == nil {
		return 0
	}
	return len(m.Assets)
}

// Column returns a copy of the price series for asset key, or nil.
func (m *PriceMatrix) Column(key string) []float64 {
	for j, a := range m.Assets {
		if a == key {
			return m.columnAt(j)
		}
	}
	return nil
}

func (m *PriceMatrix) columnAt(j int) []float64 {
	col := make([]float64, len(m.Values))
	for i, row := range m.Values {
		col[i] = row[j]
	}
	return col
}

// Raw converts the matrix back into a flat provider table keyed by ticker.
// tickerFor maps asset keys to tickers; keys it cannot map are used as-is.
func (m *PriceMatrix) Raw(tickerFor func(string) (string, bool)) *RawTable {
	raw := &RawTable{Timestamps: append([]time.Time(nil), m.Timestamps...)}
	for j, key := range m.Assets {
		ticker := key
		if tickerFor != nil {
			if t, ok := tickerFor(key); ok {
				ticker = t
			}
		}
		raw.Columns = append(raw.Columns, RawColumn{Ticker: ticker, Values: m.columnAt(j)})
	}
	return raw
}

// ReturnSeries holds per-period simple returns derived from a PriceMatrix.
// It has one row fewer than its source; row t is the change from t to t+1
// of the source, stamped with the later timestamp.
type ReturnSeries struct {
	Timestamps []time.Time
	Assets     []string
	Values     [][]float64 // Values[row][col]
}

// Rows returns the number of return observations.
func (r *ReturnSeries) Rows() int { return len(r.Timestamps) }

// Column returns a copy of one asset's returns by column index.
func (r *ReturnSeries) Column(j int) []float64 {
	col := make([]float64, len(r.Values))
	for i, row := range r.Values {
		col[i] = row[j]
	}
	return col
}

// Returns derives the ReturnSeries. Matrices with fewer than two rows yield
// an empty series.
func (m *PriceMatrix) Returns() *ReturnSeries {
	rs := &ReturnSeries{Assets: append([]string(nil), m.Assets...)}
	if m.Rows() < 2 {
		return rs
	}

	rs.Timestamps = append([]time.Time(nil), m.Timestamps[1:]...)
	rs.Values = make([][]float64, m.Rows()-1)
	for i := range rs.Values {
		rs.Values[i] = make([]float64, m.Cols())
	}
	for j := range m.Assets {
		for i, r := range formulas.CalculateReturns(m.columnAt(j)) {
			rs.Values[i][j] = r
		}
	}
	return rs
}
