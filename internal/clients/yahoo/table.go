// Package yahoo retrieves daily/weekly/monthly closing prices from Yahoo
// Finance and shapes them into provider tables for the price normalizer.
package yahoo

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/aristath/allocator/internal/modules/prices"
)

// bar is the provider-neutral subset of a Yahoo price bar.
type bar struct {
	Date     time.Time
	Close    float64
	AdjClose float64
}

// sessionDate collapses a bar timestamp to its calendar date in UTC so that
// exchanges with different session opens land on the same row.
func sessionDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// buildTable assembles a RawTable with a Close and an Adj Close column per
// ticker over the union of all bar dates. Dates a ticker lacks are NaN.
// Use it for providers whose Close is already split and dividend adjusted.
func buildTable(tickers []string, bars map[string][]bar) *prices.RawTable {
	dates, row := dateIndex(bars)

	table := &prices.RawTable{Timestamps: dates}
	for _, ticker := range tickers {
		closes := nanSlice(len(dates))
		adj := nanSlice(len(dates))
		for _, b := range bars[ticker] {
			i := row[sessionDate(b.Date)]
			closes[i] = positiveOrNaN(b.Close)
			adj[i] = positiveOrNaN(b.AdjClose)
		}
		table.Columns = append(table.Columns,
			prices.RawColumn{Field: prices.FieldClose, Ticker: ticker, Values: closes},
			prices.RawColumn{Field: prices.FieldAdjClose, Ticker: ticker, Values: adj},
		)
	}
	return table
}

// buildAdjustedTable assembles a RawTable with only an Adj Close column per
// ticker, for providers that report raw closes next to adjusted ones. A
// ticker with no usable adjusted close at all falls back to its raw close.
func buildAdjustedTable(tickers []string, bars map[string][]bar) *prices.RawTable {
	dates, row := dateIndex(bars)

	table := &prices.RawTable{Timestamps: dates}
	for _, ticker := range tickers {
		series := bars[ticker]
		useAdj := false
		for _, b := range series {
			if !math.IsNaN(positiveOrNaN(b.AdjClose)) {
				useAdj = true
				break
			}
		}

		values := nanSlice(len(dates))
		for _, b := range series {
			v := b.Close
			if useAdj {
				v = b.AdjClose
			}
			values[row[sessionDate(b.Date)]] = positiveOrNaN(v)
		}
		table.Columns = append(table.Columns,
			prices.RawColumn{Field: prices.FieldAdjClose, Ticker: ticker, Values: values})
	}
	return table
}

// dateIndex returns the sorted union of session dates and each date's row.
func dateIndex(bars map[string][]bar) ([]time.Time, map[time.Time]int) {
	seen := make(map[time.Time]struct{})
	for _, series := range bars {
		for _, b := range series {
			seen[sessionDate(b.Date)] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	row := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		row[d] = i
	}
	return dates, row
}

// missingTickers lists the tickers with no bars at all.
func missingTickers(tickers []string, bars map[string][]bar) []string {
	var missing []string
	for _, t := range tickers {
		if len(bars[t]) == 0 {
			missing = append(missing, t)
		}
	}
	return missing
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func positiveOrNaN(v float64) float64 {
	if v > 0 && !math.IsInf(v, 0) {
		return v
	}
	return math.NaN()
}

// withContext runs a blocking call that has no context support and returns
// early when ctx is done. The call itself keeps running in the background.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn()
		done <- result{val, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}
