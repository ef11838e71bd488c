package clientdata

import (
	"context"
	"time"
)

// PriceCache adapts the repository's price_history table to prices.Cache.
type PriceCache struct {
	repo *Repository
}

// NewPriceCache creates a SQLite-backed price cache.
func NewPriceCache(repo *Repository) *PriceCache {
	return &PriceCache{repo: repo}
}

// Load implements prices.Cache.
func (c *PriceCache) Load(ctx context.Context, key string, dst interface{}) (bool, error) {
	return c.repo.GetIfFresh(ctx, TablePriceHistory, key, dst)
}

// Store implements prices.Cache.
func (c *PriceCache) Store(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.repo.Store(ctx, TablePriceHistory, key, value, ttl)
}
