package prices

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
)

// Cache stores provider responses. Implementations encode values themselves.
type Cache interface {
	// Load decodes a fresh entry into dst and reports whether one existed.
	Load(ctx context.Context, key string, dst interface{}) (bool, error)
	Store(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedFetcher serves repeated requests for the same window from a Cache.
// Failed fetches are never cached and cache errors never fail a fetch.
type CachedFetcher struct {
	next     Fetcher
	cache    Cache
	provider string
	ttl      TTLFunc
	log      zerolog.Logger
}

// TTLFunc picks the cache lifetime for a bar interval.
type TTLFunc func(interval domain.Interval) time.Duration

// FixedTTL caches every interval for the same duration.
func FixedTTL(d time.Duration) TTLFunc {
	return func(domain.Interval) time.Duration { return d }
}

// NewCachedFetcher wraps next with cache. provider names the upstream source
// so tables from different providers never share an entry.
func NewCachedFetcher(next Fetcher, cache Cache, provider string, ttl TTLFunc, log zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{
		next:     next,
		cache:    cache,
		provider: provider,
		ttl:      ttl,
		log:      log.With().Str("component", "price_cache").Str("provider", provider).Logger(),
	}
}

// CacheKey identifies a provider request.
func CacheKey(provider string, tickers []string, period domain.Period, interval domain.Interval) string {
	return provider + "|" + strings.Join(tickers, ",") + "|" + string(period) + "|" + string(interval)
}

type refreshKey struct{}

// WithRefresh marks ctx so a CachedFetcher skips its cache read, fetches
// from the provider and overwrites the entry.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

func isRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

// Fetch implements Fetcher.
func (f *CachedFetcher) Fetch(ctx context.Context, tickers []string, period domain.Period, interval domain.Interval) (*RawTable, error) {
	key := CacheKey(f.provider, tickers, period, interval)

	if isRefresh(ctx) {
		f.log.Debug().Str("key", key).Msg("Refreshing cached prices")
	} else {
		var cached RawTable
		ok, err := f.cache.Load(ctx, key, &cached)
		if err != nil {
			f.log.Warn().Err(err).Str("key", key).Msg("Price cache read failed, fetching")
		} else if ok && !cached.IsEmpty() {
			f.log.Debug().Str("key", key).Int("rows", len(cached.Timestamps)).Msg("Using cached prices")
			return &cached, nil
		}
	}

	raw, err := f.next.Fetch(ctx, tickers, period, interval)
	if err != nil {
		return nil, err
	}

	if !raw.IsEmpty() {
		if err := f.cache.Store(ctx, key, raw, f.ttl(interval)); err != nil {
			f.log.Warn().Err(err).Str("key", key).Msg("Failed to cache prices")
		}
	}
	return raw, nil
}
