// Package main is the entry point for the allocator dashboard backend.
// It serves the normalized prices, optimized allocation and drawdown alerts
// of a fixed asset universe as JSON for a browser dashboard.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/di"
	"github.com/aristath/allocator/internal/scheduler"
	"github.com/aristath/allocator/internal/server"
	"github.com/aristath/allocator/pkg/logger"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting allocator")

	container, err := di.Wire(cfg, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	sched := scheduler.New(log)
	if container.CleanupJob != nil {
		if err := sched.RunNow(container.CleanupJob); err != nil {
			log.Warn().Err(err).Msg("Initial cache cleanup failed")
		}
		if err := sched.AddJob(cfg.CacheCleanupSchedule, container.CleanupJob); err != nil {
			log.Fatal().Err(err).Msg("Invalid CACHE_CLEANUP_SCHEDULE")
		}
	}
	if err := sched.AddJob(cfg.PriceRefreshSchedule, scheduler.NewPriceRefreshJob(container.DashboardService, log)); err != nil {
		log.Fatal().Err(err).Msg("Invalid PRICE_REFRESH_SCHEDULE")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		Version:        getEnv("VERSION", "dev"),
		Dashboard:      container.DashboardService,
		CacheDB:        container.CacheDB,
		RequestTimeout: cfg.MarketDataTimeout + 30*time.Second,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
