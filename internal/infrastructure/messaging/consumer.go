package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/domain/events"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/metrics"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/segmentio/kafka-go"
)

// fetcher is the slice of kafka.Reader the consumer depends on. Tests feed
// messages through a fake implementation.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer drains the order-events log and folds each event into the
// metrics aggregator. It processes messages one at a time in partition
// (tenant) order; the consumer group assigns each partition to at most one
// member, which is what makes the aggregator's read-modify-free updates
// safe per tenant.
//
// There is no offset-idempotency tracking: a restart mid-batch replays
// uncommitted events and double-counts them. Accepted tradeoff for
// approximate analytics.
type Consumer struct {
	reader     fetcher
	aggregator *metrics.Aggregator
	logger     *logging.ChanneledLogger
	retryDelay time.Duration
}

// NewConsumer creates a group consumer on the order-events topic.
func NewConsumer(aggregator *metrics.Aggregator, logger *logging.ChanneledLogger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  config.KafkaBrokers,
		GroupID:  config.KafkaGroupID,
		Topic:    config.KafkaTopic,
		MinBytes: config.KafkaMinBytes,
		MaxBytes: config.KafkaMaxBytes,
	})

	if logger != nil {
		logger.Events().Info("Kafka consumer initialized",
			"brokers", config.KafkaBrokers,
			"topic", config.KafkaTopic,
			"groupId", config.KafkaGroupID,
		)
	}

	return &Consumer{reader: reader, aggregator: aggregator, logger: logger, retryDelay: fetchRetryDelay}
}

// newConsumerWithFetcher wires a consumer onto an arbitrary message source.
func newConsumerWithFetcher(reader fetcher, aggregator *metrics.Aggregator, logger *logging.ChanneledLogger) *Consumer {
	return &Consumer{reader: reader, aggregator: aggregator, logger: logger, retryDelay: fetchRetryDelay}
}

// fetchRetryDelay spaces out fetch attempts after a transient broker error.
const fetchRetryDelay = time.Second

// Run consumes until the context is cancelled. A malformed or failing
// message is logged and committed so it never halts the subscription, and a
// transient fetch error is logged and retried after a short delay: the
// worker stays up through broker hiccups and rebalances.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Events().Error("Failed to fetch message, retrying",
				"delay", c.retryDelay, "error", err.Error())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Events().Error("Failed to commit offset",
				"partition", msg.Partition, "offset", msg.Offset, "error", err.Error())
		}
	}
}

// handleMessage decodes and folds a single event. Decode and processing
// errors are contained here.
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) {
	var event events.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Events().Error("Failed to decode order event",
			"partition", msg.Partition, "offset", msg.Offset, "error", err.Error())
		return
	}
	c.processEvent(ctx, event)
}

// processEvent applies the per-tenant metrics fold.
func (c *Consumer) processEvent(ctx context.Context, event events.OrderEvent) {
	log := c.logger.WithTenant(logging.ChannelEvents, event.TenantID)
	log.Debug("Processing order event", "eventType", event.EventType, "orderId", event.OrderID)

	switch event.EventType {
	case events.TypeOrderCreated:
		c.aggregator.IncrementOrderCount(ctx, event.TenantID)

	case events.TypeOrderStatusUpdated:
		if event.PreparationTime > 0 {
			c.aggregator.RecordPreparationTime(ctx, event.TenantID, event.PreparationTime)
		}

	default:
		log.Warn("Unknown event type, ignoring", "eventType", event.EventType)
	}
}

// Close shuts down the underlying reader and leaves the consumer group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
