package di

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/clientdata"
	"github.com/aristath/allocator/internal/clients/yahoo"
	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/alerts"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/prices"
)

// NewProvider creates the market-data client selected by configuration.
func NewProvider(cfg *config.Config, log zerolog.Logger) prices.Fetcher {
	if cfg.MarketDataProvider == config.ProviderChart {
		return yahoo.NewChartClient(log)
	}
	return yahoo.NewBatchClient(log)
}

// InitializeServices creates the engine components and the dashboard service.
// cache may be nil.
func InitializeServices(container *Container, cfg *config.Config, cache prices.Cache, log zerolog.Logger) {
	if container.Provider == nil {
		container.Provider = NewProvider(cfg, log)
	}

	container.Fetcher = container.Provider
	if cache != nil {
		override := cfg.PriceCacheTTL
		ttl := func(interval domain.Interval) time.Duration {
			return clientdata.PriceTTL(string(interval), override)
		}
		container.Fetcher = prices.NewCachedFetcher(container.Provider, cache, cfg.MarketDataProvider, ttl, log)
	}

	container.Normalizer = prices.NewNormalizer(container.Fetcher, cfg.Assets, cfg.MarketDataTimeout, log)
	container.Estimator = optimization.NewEstimator(log)
	container.Optimizer = optimization.NewMVOptimizer(log)
	container.Detector = alerts.NewDetector(log)

	container.DashboardService = dashboard.NewService(
		container.Normalizer,
		container.Estimator,
		container.Optimizer,
		container.Detector,
		dashboard.Defaults{
			Period:           cfg.DefaultPeriod,
			Interval:         domain.DefaultInterval,
			ThresholdPercent: cfg.DefaultAlertThreshold,
			RiskFreeRate:     cfg.RiskFreeRate,
			WeightCutoff:     cfg.WeightCutoff,
			ReturnMethod:     cfg.ReturnMethod,
		},
		log,
	)
}
