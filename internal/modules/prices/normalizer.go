// Package prices turns provider output into gap-free price matrices.
//
// Retrieval is fail-soft: Normalizer.Load never returns an error. Network
// failures, unknown tickers and empty responses all produce an empty
// PriceMatrix which callers check with IsEmpty before estimating anything.
package prices

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
)

// DefaultFetchTimeout bounds a single provider call when none is configured.
const DefaultFetchTimeout = 20 * time.Second

// Fetcher is the market-data collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, tickers []string, period domain.Period, interval domain.Interval) (*RawTable, error)
}

// Request selects the window, frequency and universe to load.
type Request struct {
	Period   domain.Period
	Interval domain.Interval
	Assets   *domain.Registry // nil selects the normalizer's registry
}

// Normalizer loads and cleans price history for a registry.
type Normalizer struct {
	fetcher  Fetcher
	registry *domain.Registry
	timeout  time.Duration
	log      zerolog.Logger
}

// NewNormalizer creates a normalizer. A non-positive timeout selects DefaultFetchTimeout.
func NewNormalizer(fetcher Fetcher, registry *domain.Registry, timeout time.Duration, log zerolog.Logger) *Normalizer {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Normalizer{
		fetcher:  fetcher,
		registry: registry,
		timeout:  timeout,
		log:      log.With().Str("component", "normalizer").Logger(),
	}
}

// Registry returns the configured universe.
func (n *Normalizer) Registry() *domain.Registry {
	return n.registry
}

// Load fetches and normalizes prices. It never fails: any retrieval or
// normalization problem is logged and an empty matrix is returned.
func (n *Normalizer) Load(ctx context.Context, req Request) *PriceMatrix {
	registry := req.Assets
	if registry == nil {
		registry = n.registry
	}
	if req.Interval == "" {
		req.Interval = domain.DefaultInterval
	}

	m, err := n.load(ctx, registry, req)
	if err != nil {
		n.log.Warn().
			Err(err).
			Str("period", string(req.Period)).
			Str("interval", string(req.Interval)).
			Msg("Price data unavailable, returning empty matrix")
		if registry == nil {
			return Empty(nil)
		}
		return Empty(registry.Keys())
	}

	n.log.Info().
		Int("rows", m.Rows()).
		Int("assets", m.Cols()).
		Str("period", string(req.Period)).
		Msg("Loaded price matrix")
	return m
}

func (n *Normalizer) load(ctx context.Context, registry *domain.Registry, req Request) (*PriceMatrix, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, domain.NewDataUnavailable("empty asset universe", nil)
	}
	if n.fetcher == nil {
		return nil, domain.NewDataUnavailable("no market-data provider configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	raw, err := n.fetcher.Fetch(ctx, registry.Tickers(), req.Period, req.Interval)
	if err != nil {
		return nil, domain.NewDataUnavailable("fetch failed", err)
	}

	m, err := Normalize(raw, registry)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Normalize selects the closing-price field, aligns and sorts rows, fills
// gaps forward then backward and renames ticker columns to asset keys.
// The result has exactly the registry's columns and no missing values.
func Normalize(raw *RawTable, registry *domain.Registry) (*PriceMatrix, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, domain.NewDataUnavailable("empty asset universe", nil)
	}
	if raw.IsEmpty() {
		return nil, domain.NewDataUnavailable("empty response", nil)
	}
	if err := raw.Validate(); err != nil {
		return nil, domain.NewDataUnavailable("malformed response", err)
	}

	_, cols, err := raw.closeColumns()
	if err != nil {
		return nil, domain.NewDataUnavailable("unrecognized table schema", err)
	}

	byTicker := make(map[string]RawColumn, len(cols))
	for _, c := range cols {
		byTicker[c.Ticker] = c
	}
	// Single-ticker downloads come back without a ticker level.
	if registry.Len() == 1 {
		if c, ok := byTicker[""]; ok && len(cols) == 1 {
			byTicker[registry.Tickers()[0]] = c
		}
	}

	order, groups := sortedRowGroups(raw.Timestamps)

	assets := registry.Assets()
	columns := make([][]float64, len(assets))
	for j, a := range assets {
		c, ok := byTicker[a.Ticker]
		if !ok {
			return nil, domain.NewDataUnavailable(fmt.Sprintf("no prices for ticker %s", a.Ticker), nil)
		}
		series := collapseRows(sanitize(c.Values), groups)
		if _, remaining := fillGaps(series); remaining > 0 {
			return nil, domain.NewDataUnavailable(fmt.Sprintf("no valid prices for ticker %s", a.Ticker), nil)
		}
		columns[j] = series
	}

	m := &PriceMatrix{
		Timestamps: order,
		Assets:     registry.Keys(),
		Values:     make([][]float64, len(order)),
	}
	for i := range order {
		row := make([]float64, len(columns))
		for j := range columns {
			row[j] = columns[j][i]
		}
		m.Values[i] = row
	}
	return m, nil
}

// sortedRowGroups returns the strictly increasing distinct timestamps and,
// for each, the source row indices that carry it in original order.
func sortedRowGroups(ts []time.Time) ([]time.Time, [][]int) {
	idx := make([]int, len(ts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ts[idx[a]].Before(ts[idx[b]]) })

	var order []time.Time
	var groups [][]int
	for _, i := range idx {
		if len(order) > 0 && ts[i].Equal(order[len(order)-1]) {
			groups[len(groups)-1] = append(groups[len(groups)-1], i)
			continue
		}
		order = append(order, ts[i])
		groups = append(groups, []int{i})
	}
	return order, groups
}

// collapseRows projects a source column onto the grouped rows; within a
// group the last valid value wins.
func collapseRows(values []float64, groups [][]int) []float64 {
	out := make([]float64, len(groups))
	for g, rows := range groups {
		out[g] = values[rows[0]]
		for _, r := range rows[1:] {
			if !math.IsNaN(values[r]) {
				out[g] = values[r]
			}
		}
	}
	return out
}
