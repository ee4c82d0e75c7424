package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/api"
	"github.com/bobby-s-dev/grib-forecast-cache/internal/config"
	"github.com/bobby-s-dev/grib-forecast-cache/internal/scheduler"
	"github.com/bobby-s-dev/grib-forecast-cache/internal/services"
	"github.com/bobby-s-dev/grib-forecast-cache/pkg/gribsource"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting GRIB Forecast Cache Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// External grib tool client
	source := gribsource.NewClient(gribsource.ClientConfig{
		Binary:         cfg.Grib.Binary,
		CallTimeout:    cfg.Grib.CallTimeout,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
	}, logger)

	// Snapshot cache, refresh pipeline and query engine
	cache := services.NewSnapshotCache(logger)
	refresher := services.NewRefresher(source, cache, services.RefresherConfig{
		LatStep:     cfg.Refresh.LatStep,
		LngStep:     cfg.Refresh.LngStep,
		Concurrency: cfg.Refresh.Concurrency,
	}, logger)
	query := services.NewQueryService(cache, logger)

	// Periodic refresh scheduler
	refreshScheduler := scheduler.NewScheduler(refresher, cfg.Grib.File, cfg.Refresh.Schedule, logger)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: errorHandler,
	})

	// Setup handlers and routes
	handler := api.NewHandler(query, refresher, refreshScheduler, logger)
	api.SetupRoutes(app, handler, logger)

	// Start scheduler
	if err := refreshScheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	refreshScheduler.Stop()

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
