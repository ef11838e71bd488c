package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/optimization"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	t.Setenv("ALLOCATOR_DATA_DIR", t.TempDir())
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, nil)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8002, cfg.Port)
	assert.Equal(t, ProviderYFinance, cfg.MarketDataProvider)
	assert.Equal(t, 20*time.Second, cfg.MarketDataTimeout)
	assert.Equal(t, CacheSQLite, cfg.PriceCache)
	assert.Equal(t, time.Duration(0), cfg.PriceCacheTTL)
	assert.Equal(t, domain.Period1Year, cfg.DefaultPeriod)
	assert.Equal(t, 10.0, cfg.DefaultAlertThreshold)
	assert.Equal(t, 1e-4, cfg.WeightCutoff)
	assert.Equal(t, optimization.Arithmetic, cfg.ReturnMethod)
	assert.Equal(t, 0.0, cfg.RiskFreeRate)
	assert.Equal(t, domain.DefaultRegistry().Keys(), cfg.Assets.Keys())
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "@hourly", cfg.CacheCleanupSchedule)
	assert.Empty(t, cfg.PriceRefreshSchedule)
	assert.Contains(t, cfg.CacheDBPath(), "cache.db")
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"HTTP_PORT":               "9100",
		"MARKET_DATA_PROVIDER":    "chart",
		"MARKET_DATA_TIMEOUT":     "5s",
		"PRICE_CACHE":             "redis",
		"REDIS_ADDR":              "localhost:6379",
		"REDIS_DB":                "2",
		"PRICE_CACHE_TTL":         "1h",
		"RISK_FREE_RATE":          "0.03",
		"DEFAULT_PERIOD":          "5Y",
		"DEFAULT_ALERT_THRESHOLD": "25",
		"ASSETS":                  "Gold=GC=F,Bond=IEF",
		"LOG_PRETTY":              "false",
		"PRICE_REFRESH_SCHEDULE":  "@every 10m",
		"RETURN_METHOD":           "geometric",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, ProviderChart, cfg.MarketDataProvider)
	assert.Equal(t, 5*time.Second, cfg.MarketDataTimeout)
	assert.Equal(t, CacheRedis, cfg.PriceCache)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, time.Hour, cfg.PriceCacheTTL)
	assert.Equal(t, 0.03, cfg.RiskFreeRate)
	assert.Equal(t, domain.Period5Years, cfg.DefaultPeriod)
	assert.Equal(t, 25.0, cfg.DefaultAlertThreshold)
	assert.Equal(t, []string{"Gold", "Bond"}, cfg.Assets.Keys())
	assert.False(t, cfg.LogPretty)
	assert.Equal(t, "@every 10m", cfg.PriceRefreshSchedule)
	assert.Equal(t, optimization.Geometric, cfg.ReturnMethod)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"MARKET_DATA_PROVIDER": "bloomberg"}},
		{"unknown cache", map[string]string{"PRICE_CACHE": "memcached"}},
		{"redis without addr", map[string]string{"PRICE_CACHE": "redis"}},
		{"threshold too high", map[string]string{"DEFAULT_ALERT_THRESHOLD": "75"}},
		{"threshold too low", map[string]string{"DEFAULT_ALERT_THRESHOLD": "0.5"}},
		{"unknown period", map[string]string{"DEFAULT_PERIOD": "3y"}},
		{"malformed assets", map[string]string{"ASSETS": "Gold"}},
		{"cutoff out of range", map[string]string{"WEIGHT_CUTOFF": "0.5"}},
		{"port out of range", map[string]string{"HTTP_PORT": "70000"}},
		{"unknown return method", map[string]string{"RETURN_METHOD": "log"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "abc")
	t.Setenv("CFG_TEST_FLOAT", "1.5")
	t.Setenv("CFG_TEST_DURATION", "bogus")

	assert.Equal(t, 7, getEnvAsInt("CFG_TEST_INT", 7))
	assert.Equal(t, 1.5, getEnvAsFloat("CFG_TEST_FLOAT", 0))
	assert.Equal(t, time.Minute, getEnvAsDuration("CFG_TEST_DURATION", time.Minute))
	assert.Equal(t, "x", getEnv("CFG_TEST_UNSET", "x"))
}
