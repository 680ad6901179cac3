// Package messaging provides the durable order-event log on kafka: a
// fire-and-forget publisher for the write path and a group consumer that
// drives the metrics aggregator.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/domain/events"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Publisher appends order lifecycle events to the durable log.
//
// Publish is fire-and-forget by contract: event publication is a side
// effect of a successful primary write and must never fail that write's
// response. A transport failure is observable only through logs — the
// event is dropped (at-most-once on the publish side).
type Publisher interface {
	Publish(event events.OrderEvent)
}

// KafkaPublisher writes order events to the order-events topic, partitioned
// by tenant id so each tenant's events stay strictly ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logging.ChanneledLogger
}

// NewKafkaPublisher creates a publisher against the configured brokers. The
// writer dials lazily; callers that need boot-time verification run
// CheckBrokers first.
func NewKafkaPublisher(logger *logging.ChanneledLogger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.KafkaBrokers...),
		Topic:        config.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  config.KafkaMaxAttempts,
		WriteTimeout: config.KafkaWriteLimit,
	}

	if logger != nil {
		logger.Events().Info("Kafka publisher initialized",
			"brokers", config.KafkaBrokers, "topic", config.KafkaTopic)
	}

	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish appends one event under the tenant partition key. The append runs
// on its own goroutine so the caller never blocks on the broker; failures
// are logged and swallowed.
func (p *KafkaPublisher) Publish(event events.OrderEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logPublishError(event, err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.TenantID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.EventType)},
			{Key: "tenant-id", Value: []byte(event.TenantID)},
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.KafkaWriteLimit)
		defer cancel()

		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logPublishError(event, err)
			return
		}
		if p.logger != nil {
			p.logger.Events().Info("Published order event",
				"eventType", event.EventType,
				"tenantId", event.TenantID,
				"orderId", event.OrderID,
			)
		}
	}()
}

// CheckBrokers dials each configured broker once. Used by the startup
// sequence so an unreachable cluster fails the boot instead of the first
// publish.
func CheckBrokers(ctx context.Context, brokers []string) error {
	for _, broker := range brokers {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		conn, err := kafka.DialContext(dialCtx, "tcp", broker)
		cancel()
		if err != nil {
			return fmt.Errorf("broker %s unreachable: %w", broker, err)
		}
		conn.Close()
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) logPublishError(event events.OrderEvent, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Events().Error("Failed to publish order event",
		"eventType", event.EventType,
		"tenantId", event.TenantID,
		"orderId", event.OrderID,
		"error", err.Error(),
	)
}
