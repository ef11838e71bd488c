package clientdata

import "time"

// TTL constants for cached market data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLPriceHistory applies to daily bars; intraday refreshes are not needed.
	TTLPriceHistory = 15 * time.Minute
	// TTLPriceHistoryLong applies to weekly and monthly bars.
	TTLPriceHistoryLong = 6 * time.Hour
)

// PriceTTL picks the cache lifetime for a bar interval, preferring the
// configured override when set.
func PriceTTL(interval string, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	switch interval {
	case "1wk", "1mo":
		return TTLPriceHistoryLong
	default:
		return TTLPriceHistory
	}
}
