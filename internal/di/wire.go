package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/modules/prices"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open the price cache backend
// 2. Create the market-data client and engine services
//
// provider overrides the configured market-data client when non-nil.
func Wire(cfg *config.Config, log zerolog.Logger, provider prices.Fetcher) (*Container, error) {
	container := &Container{Config: cfg, Provider: provider}

	cache, err := InitializePriceCache(container, cfg, log)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize price cache: %w", err)
	}

	InitializeServices(container, cfg, cache, log)

	log.Info().
		Str("provider", cfg.MarketDataProvider).
		Str("cache", cfg.PriceCache).
		Int("assets", cfg.Assets.Len()).
		Msg("Dependency injection wiring completed successfully")

	return container, nil
}
