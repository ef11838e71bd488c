package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/clientdata"
	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/database"
	"github.com/aristath/allocator/internal/modules/prices"
)

// redisPingTimeout bounds the startup connectivity check.
const redisPingTimeout = 3 * time.Second

// InitializePriceCache opens the configured cache backend and records it on
// the container. A nil cache means caching is disabled.
func InitializePriceCache(container *Container, cfg *config.Config, log zerolog.Logger) (prices.Cache, error) {
	switch cfg.PriceCache {
	case config.CacheNone:
		log.Info().Msg("Price cache disabled")
		return nil, nil

	case config.CacheRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}

		container.Redis = rdb
		log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("Redis price cache connected")
		return clientdata.NewRedisCache(rdb, "prices"), nil

	default:
		cacheDB, err := database.New(database.Config{
			Path:    cfg.CacheDBPath(),
			Profile: database.ProfileCache,
			Name:    "cache",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache database: %w", err)
		}
		if err := cacheDB.Migrate(); err != nil {
			cacheDB.Close()
			return nil, fmt.Errorf("failed to migrate cache database: %w", err)
		}

		container.CacheDB = cacheDB
		container.ClientDataRepo = clientdata.NewRepository(cacheDB.Conn())
		container.CleanupJob = clientdata.NewCleanupJob(container.ClientDataRepo, log)

		log.Info().Str("path", cacheDB.Path()).Msg("SQLite price cache initialized")
		return clientdata.NewPriceCache(container.ClientDataRepo), nil
	}
}
