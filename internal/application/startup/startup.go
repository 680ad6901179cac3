// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/application/container"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/metrics"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/realtime"
	"github.com/AtRiskMedia/orderstack-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Channeled logger
	logger, err := logging.NewChanneledLogger(nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Startup().Info("Starting orderstack")

	// Step 2: Redis. Metrics, caching and the fanout backplane all ride on
	// this connection, so a failure here is fatal.
	logger.Startup().Info("Connecting to redis", "addr", config.RedisAddr)
	redisClient, err := caching.NewClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	tenantCache := caching.NewTenantCache(redisClient, logger)
	aggregator := metrics.NewAggregator(redisClient, logger)

	// Step 3: Database
	logger.Startup().Info("Opening database", "path", config.DBPath)
	db, err := database.NewConnection(config.DBPath, logger)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.EnsureSchema(); err != nil {
		return fmt.Errorf("schema setup failed: %w", err)
	}

	// Step 4: Realtime hub on the shared backplane
	logger.Startup().Info("Starting realtime hub", "channel", config.FanoutChannel)
	backplane := realtime.NewBackplane(redisClient, config.FanoutChannel, logger)
	hub := realtime.NewHub(backplane, logger)
	go hub.Run(ctx)

	// Step 5: Event publisher. The writer dials lazily, so reachability is
	// checked here; a broker that is down at boot is fatal.
	logger.Startup().Info("Initializing event publisher",
		"brokers", config.KafkaBrokers, "topic", config.KafkaTopic)
	if err := messaging.CheckBrokers(ctx, config.KafkaBrokers); err != nil {
		return fmt.Errorf("kafka broker check failed: %w", err)
	}
	publisher := messaging.NewKafkaPublisher(logger)

	// Step 6: Dependency injection container
	appContainer := container.NewContainer(logger, db, tenantCache, aggregator, publisher, hub)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 7: HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Cancel background tasks (hub, backplane subscription)
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	}

	logger.Shutdown().Info("Closing event publisher...")
	if err := publisher.Close(); err != nil {
		logger.Shutdown().Error("Error closing publisher", "error", err.Error())
	}

	logger.Shutdown().Info("Closing database...")
	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	}

	logger.Shutdown().Info("Closing redis connection...")
	if err := redisClient.Close(); err != nil {
		logger.Shutdown().Error("Error closing redis", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
