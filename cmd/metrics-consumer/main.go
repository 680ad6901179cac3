// Command metrics-consumer runs the order event consumer as a standalone
// worker. It shares a consumer group with its replicas, so each tenant's
// partition is processed by exactly one instance.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/metrics"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
)

func main() {
	logger, err := logging.NewChanneledLogger(nil)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Startup().Info("Starting metrics consumer",
		"brokers", config.KafkaBrokers,
		"topic", config.KafkaTopic,
		"groupId", config.KafkaGroupID)

	redisClient, err := caching.NewClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer redisClient.Close()

	aggregator := metrics.NewAggregator(redisClient, logger)
	consumer := messaging.NewConsumer(aggregator, logger)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-gracefulShutdown
		logger.Shutdown().Info("Shutdown signal received, stopping consumer...")
		cancel()
	}()

	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("Consumer stopped with error: %v", err)
	}

	logger.Shutdown().Info("Metrics consumer stopped")
}
