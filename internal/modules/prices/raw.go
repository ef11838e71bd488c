package prices

import (
	"fmt"
	"time"
)

// Field names used by market-data providers for price columns.
const (
	FieldClose    = "Close"
	FieldAdjClose = "Adj Close"
)

// RawColumn is one provider column. Field is empty for flat single-price
// tables; Ticker is empty when the provider returned a single-ticker table
// without a ticker level.
type RawColumn struct {
	Field  string    `msgpack:"field" json:"field"`
	Ticker string    `msgpack:"ticker" json:"ticker"`
	Values []float64 `msgpack:"values" json:"values"`
}

// RawTable is provider output before normalization. Timestamps need not be
// sorted or unique and values may be NaN where a ticker did not trade.
type RawTable struct {
	Timestamps []time.Time `msgpack:"timestamps" json:"timestamps"`
	Columns    []RawColumn `msgpack:"columns" json:"columns"`
}

// IsEmpty reports whether the table carries no rows or no columns.
func (t *RawTable) IsEmpty() bool {
	return t == nil || len(t.Timestamps) == 0 || len(t.Columns) == 0
}

// Validate checks that every column is aligned with the timestamp index.
func (t *RawTable) Validate() error {
	for _, c := range t.Columns {
		if len(c.Values) != len(t.Timestamps) {
			return fmt.Errorf("column %s/%s has %d values for %d timestamps",
				c.Field, c.Ticker, len(c.Values), len(t.Timestamps))
		}
	}
	return nil
}

// Fields returns the distinct column fields in first-seen order.
func (t *RawTable) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, c := range t.Columns {
		if !seen[c.Field] {
			seen[c.Field] = true
			fields = append(fields, c.Field)
		}
	}
	return fields
}

// closeColumns picks the closing-price columns regardless of table shape:
// a Close field wins, then Adj Close, then a flat table whose columns carry
// no field at all.
func (t *RawTable) closeColumns() (string, []RawColumn, error) {
	for _, field := range []string{FieldClose, FieldAdjClose, ""} {
		var cols []RawColumn
		for _, c := range t.Columns {
			if c.Field == field {
				cols = append(cols, c)
			}
		}
		if len(cols) > 0 {
			return field, cols, nil
		}
	}
	return "", nil, fmt.Errorf("no closing-price field among %v", t.Fields())
}
