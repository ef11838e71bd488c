// Package di provides dependency injection wiring for the allocator binaries.
package di

import (
	"github.com/redis/go-redis/v9"

	"github.com/aristath/allocator/internal/clientdata"
	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/database"
	"github.com/aristath/allocator/internal/modules/alerts"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/prices"
)

// Container holds all application dependencies.
// Cache fields are nil when the corresponding backend is disabled.
type Container struct {
	Config *config.Config

	// Price cache backends
	CacheDB        *database.DB
	ClientDataRepo *clientdata.Repository
	CleanupJob     *clientdata.CleanupJob
	Redis          *redis.Client

	// Market data
	Provider prices.Fetcher // raw provider client
	Fetcher  prices.Fetcher // provider behind the cache, if any

	// Engine
	Normalizer *prices.Normalizer
	Estimator  *optimization.Estimator
	Optimizer  *optimization.MVOptimizer
	Detector   *alerts.Detector

	DashboardService *dashboard.Service
}

// Close releases cache connections. It is safe to call on a partially wired container.
func (c *Container) Close() error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.CacheDB != nil {
		if err := c.CacheDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
