// Package domain holds the value types shared across the allocator modules:
// the asset registry, lookback periods, sampling intervals and the error taxonomy.
package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Asset is an internal key mapped 1:1 onto an external ticker symbol.
type Asset struct {
	Key    string `json:"key"`
	Ticker string `json:"ticker"`
}

// Registry is the immutable asset universe for a run.
// Order is significant: it fixes the column order of every PriceMatrix and
// the index order of every moment vector derived from it.
type Registry struct {
	assets   []Asset
	byKey    map[string]int
	byTicker map[string]int
}

// DefaultAssets is the universe the dashboard ships with.
func DefaultAssets() []Asset {
	return []Asset{
		{Key: "VNM_Fund", Ticker: "FUEVFVND.VN"},
		{Key: "Gold", Ticker: "GC=F"},
		{Key: "Bitcoin", Ticker: "BTC-USD"},
		{Key: "Ethereum", Ticker: "ETH-USD"},
		{Key: "US_Bond", Ticker: "IEF"},
	}
}

// DefaultRegistry returns a registry over DefaultAssets.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultAssets()...)
	if err != nil {
		panic(err) // static data
	}
	return r
}

// NewRegistry validates and freezes an asset list.
// Keys and tickers must be non-empty and unique.
func NewRegistry(assets ...Asset) (*Registry, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("registry requires at least one asset")
	}

	r := &Registry{
		assets:   make([]Asset, 0, len(assets)),
		byKey:    make(map[string]int, len(assets)),
		byTicker: make(map[string]int, len(assets)),
	}
	for _, a := range assets {
		key := strings.TrimSpace(a.Key)
		ticker := strings.TrimSpace(a.Ticker)
		if key == "" || ticker == "" {
			return nil, fmt.Errorf("asset %q has an empty key or ticker", a.Key+"="+a.Ticker)
		}
		if _, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate asset key %s", key)
		}
		if _, dup := r.byTicker[ticker]; dup {
			return nil, fmt.Errorf("duplicate ticker %s", ticker)
		}
		r.byKey[key] = len(r.assets)
		r.byTicker[ticker] = len(r.assets)
		r.assets = append(r.assets, Asset{Key: key, Ticker: ticker})
	}
	return r, nil
}

// ParseRegistry parses "Key=TICKER,Key=TICKER". Only the first '=' separates
// key from ticker, so futures tickers such as GC=F survive.
func ParseRegistry(spec string) (*Registry, error) {
	var assets []Asset
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid asset entry %q (want Key=TICKER)", part)
		}
		assets = append(assets, Asset{Key: kv[0], Ticker: kv[1]})
	}
	return NewRegistry(assets...)
}

// Len returns the number of assets.
func (r *Registry) Len() int { return len(r.assets) }

// Assets returns a copy of the ordered asset list.
func (r *Registry) Assets() []Asset {
	out := make([]Asset, len(r.assets))
	copy(out, r.assets)
	return out
}

// Keys returns the ordered asset keys.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.assets))
	for i, a := range r.assets {
		out[i] = a.Key
	}
	return out
}

// Tickers returns the ordered external tickers.
func (r *Registry) Tickers() []string {
	out := make([]string, len(r.assets))
	for i, a := range r.assets {
		out[i] = a.Ticker
	}
	return out
}

// KeyForTicker maps an external ticker back to its asset key.
func (r *Registry) KeyForTicker(ticker string) (string, bool) {
	i, ok := r.byTicker[ticker]
	if !ok {
		return "", false
	}
	return r.assets[i].Key, true
}

// TickerForKey maps an asset key to its external ticker.
func (r *Registry) TickerForKey(key string) (string, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return "", false
	}
	return r.assets[i].Ticker, true
}

// Index returns the column position of an asset key.
func (r *Registry) Index(key string) (int, bool) {
	i, ok := r.byKey[key]
	return i, ok
}

// Subset returns a new registry restricted to the given keys, keeping the
// original order.
func (r *Registry) Subset(keys ...string) (*Registry, error) {
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		i, ok := r.byKey[k]
		if !ok {
			return nil, fmt.Errorf("unknown asset %s", k)
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)

	assets := make([]Asset, 0, len(idx))
	for n, i := range idx {
		if n > 0 && idx[n-1] == i {
			continue
		}
		assets = append(assets, r.assets[i])
	}
	return NewRegistry(assets...)
}

// String renders the registry in ParseRegistry format.
func (r *Registry) String() string {
	parts := make([]string, len(r.assets))
	for i, a := range r.assets {
		parts[i] = a.Key + "=" + a.Ticker
	}
	return strings.Join(parts, ",")
}
