// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/alerts"
	"github.com/aristath/allocator/internal/modules/optimization"
)

// Market data providers
const (
	ProviderYFinance = "yfinance" // batch download via go-yfinance
	ProviderChart    = "chart"    // per-ticker chart API via finance-go
)

// Price cache backends
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for the cache database (always absolute)
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool

	MarketDataProvider string
	MarketDataTimeout  time.Duration

	PriceCache    string
	PriceCacheTTL time.Duration // zero selects a per-interval default
	Redis         RedisConfig

	// Cron specs for background jobs; an empty spec disables the job.
	CacheCleanupSchedule string
	PriceRefreshSchedule string

	RiskFreeRate          float64
	DefaultPeriod         domain.Period
	DefaultAlertThreshold float64
	WeightCutoff          float64
	ReturnMethod          optimization.ReturnMethod

	Assets *domain.Registry
}

// RedisConfig holds connection settings for the Redis price cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("ALLOCATOR_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	period, err := domain.ParsePeriod(getEnv("DEFAULT_PERIOD", string(domain.Period1Year)))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PERIOD: %w", err)
	}

	method, err := optimization.ParseReturnMethod(getEnv("RETURN_METHOD", string(optimization.Arithmetic)))
	if err != nil {
		return nil, fmt.Errorf("invalid RETURN_METHOD: %w", err)
	}

	assets := domain.DefaultRegistry()
	if spec := getEnv("ASSETS", ""); spec != "" {
		assets, err = domain.ParseRegistry(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid ASSETS: %w", err)
		}
	}

	cfg := &Config{
		DataDir:            dataDir,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvAsBool("LOG_PRETTY", true),
		Port:               getEnvAsInt("HTTP_PORT", 8002),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		MarketDataProvider: getEnv("MARKET_DATA_PROVIDER", ProviderYFinance),
		MarketDataTimeout:  getEnvAsDuration("MARKET_DATA_TIMEOUT", 20*time.Second),
		PriceCache:         getEnv("PRICE_CACHE", CacheSQLite),
		PriceCacheTTL:      getEnvAsDuration("PRICE_CACHE_TTL", 0),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		CacheCleanupSchedule:  getEnv("CACHE_CLEANUP_SCHEDULE", "@hourly"),
		PriceRefreshSchedule:  getEnv("PRICE_REFRESH_SCHEDULE", ""),
		RiskFreeRate:          getEnvAsFloat("RISK_FREE_RATE", 0),
		DefaultPeriod:         period,
		DefaultAlertThreshold: getEnvAsFloat("DEFAULT_ALERT_THRESHOLD", alerts.DefaultThresholdPercent),
		WeightCutoff:          getEnvAsFloat("WEIGHT_CUTOFF", 1e-4),
		ReturnMethod:          method,
		Assets:                assets,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	switch c.MarketDataProvider {
	case ProviderYFinance, ProviderChart:
	default:
		return fmt.Errorf("invalid MARKET_DATA_PROVIDER %q (want %s or %s)", c.MarketDataProvider, ProviderYFinance, ProviderChart)
	}

	switch c.PriceCache {
	case CacheSQLite, CacheNone:
	case CacheRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when PRICE_CACHE=redis")
		}
	default:
		return fmt.Errorf("invalid PRICE_CACHE %q", c.PriceCache)
	}

	if c.MarketDataTimeout <= 0 {
		return fmt.Errorf("MARKET_DATA_TIMEOUT must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.Port)
	}
	if err := alerts.ValidateThreshold(c.DefaultAlertThreshold); err != nil {
		return fmt.Errorf("invalid DEFAULT_ALERT_THRESHOLD: %w", err)
	}
	if c.WeightCutoff <= 0 || c.WeightCutoff >= 0.1 {
		return fmt.Errorf("WEIGHT_CUTOFF must be in (0, 0.1), got %v", c.WeightCutoff)
	}
	if c.Assets == nil || c.Assets.Len() == 0 {
		return fmt.Errorf("asset registry is empty")
	}

	return nil
}

// CacheDBPath returns the path of the SQLite price cache
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
