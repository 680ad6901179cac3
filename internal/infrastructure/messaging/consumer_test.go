package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/domain/events"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/metrics"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = slog.LevelError
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return logger
}

func newTestAggregator(t *testing.T) *metrics.Aggregator {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return metrics.NewAggregator(client, quietLogger(t))
}

// fakeFetcher replays a fixed message sequence, then reports EOF the way a
// closed reader does. Errors queued in fetchErrs are returned first, one per
// fetch, before any message.
type fakeFetcher struct {
	msgs      []kafka.Message
	fetchErrs []error
	next      int
	committed []int64
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if f.next >= len(f.msgs) {
		return kafka.Message{}, io.EOF
	}
	msg := f.msgs[f.next]
	f.next++
	return msg, nil
}

func (f *fakeFetcher) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		f.committed = append(f.committed, msg.Offset)
	}
	return nil
}

func (f *fakeFetcher) Close() error { return nil }

func eventMessage(t *testing.T, offset int64, event events.OrderEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Key: []byte(event.TenantID), Value: value, Offset: offset}
}

func TestConsumerFoldsEvents(t *testing.T) {
	agg := newTestAggregator(t)
	fetcher := &fakeFetcher{msgs: []kafka.Message{
		eventMessage(t, 0, events.NewOrderCreated("acme", "o1", "ORD-1", "r1", "c1", 25.50, 2)),
		eventMessage(t, 1, events.NewOrderCreated("acme", "o2", "ORD-2", "r1", "c2", 14.00, 1)),
		eventMessage(t, 2, events.NewOrderStatusUpdated("acme", "o1", "ORD-1", "ready", 12.5)),
	}}

	consumer := newConsumerWithFetcher(fetcher, agg, quietLogger(t))
	if err := consumer.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snapshot := agg.GetTenantMetrics(context.Background(), "acme")
	if snapshot.TotalOrders != 2 {
		t.Errorf("total = %d, want 2", snapshot.TotalOrders)
	}
	if snapshot.AvgPrepTime != 12.5 {
		t.Errorf("avg = %v, want 12.5", snapshot.AvgPrepTime)
	}
	if len(fetcher.committed) != 3 {
		t.Errorf("committed %d offsets, want 3", len(fetcher.committed))
	}
}

func TestConsumerSkipsMalformedMessage(t *testing.T) {
	agg := newTestAggregator(t)
	fetcher := &fakeFetcher{msgs: []kafka.Message{
		{Key: []byte("acme"), Value: []byte("{truncated"), Offset: 0},
		eventMessage(t, 1, events.NewOrderCreated("acme", "o1", "ORD-1", "r1", "c1", 9.99, 1)),
	}}

	consumer := newConsumerWithFetcher(fetcher, agg, quietLogger(t))
	if err := consumer.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snapshot := agg.GetTenantMetrics(context.Background(), "acme")
	if snapshot.TotalOrders != 1 {
		t.Errorf("total = %d, want 1", snapshot.TotalOrders)
	}
	// The malformed message is committed too: it must not wedge the group.
	if len(fetcher.committed) != 2 {
		t.Errorf("committed %d offsets, want 2", len(fetcher.committed))
	}
}

func TestConsumerIgnoresUnknownEventType(t *testing.T) {
	agg := newTestAggregator(t)
	fetcher := &fakeFetcher{msgs: []kafka.Message{
		eventMessage(t, 0, events.OrderEvent{EventType: "order_archived", TenantID: "acme", OrderID: "o1"}),
	}}

	consumer := newConsumerWithFetcher(fetcher, agg, quietLogger(t))
	if err := consumer.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if total := agg.GetTenantMetrics(context.Background(), "acme").TotalOrders; total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
}

func TestConsumerIgnoresZeroPreparationTime(t *testing.T) {
	agg := newTestAggregator(t)
	fetcher := &fakeFetcher{msgs: []kafka.Message{
		eventMessage(t, 0, events.NewOrderStatusUpdated("acme", "o1", "ORD-1", "confirmed", 0)),
	}}

	consumer := newConsumerWithFetcher(fetcher, agg, quietLogger(t))
	if err := consumer.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if avg := agg.GetTenantMetrics(context.Background(), "acme").AvgPrepTime; avg != 0 {
		t.Errorf("avg = %v, want 0", avg)
	}
}

// A broker hiccup mid-subscription must not kill the worker: the fetch is
// retried after the backoff and consumption resumes where it left off.
func TestConsumerRetriesTransientFetchError(t *testing.T) {
	agg := newTestAggregator(t)
	fetcher := &fakeFetcher{
		fetchErrs: []error{
			errors.New("read tcp: connection reset by peer"),
			errors.New("rebalance in progress"),
		},
		msgs: []kafka.Message{
			eventMessage(t, 0, events.NewOrderCreated("acme", "o1", "ORD-1", "r1", "c1", 25.50, 2)),
		},
	}

	consumer := newConsumerWithFetcher(fetcher, agg, quietLogger(t))
	consumer.retryDelay = time.Millisecond
	if err := consumer.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if total := agg.GetTenantMetrics(context.Background(), "acme").TotalOrders; total != 1 {
		t.Errorf("total = %d, want 1 after retried fetch", total)
	}
	if len(fetcher.committed) != 1 {
		t.Errorf("committed %d offsets, want 1", len(fetcher.committed))
	}
}

// Cancellation during the retry backoff stops the loop cleanly.
func TestConsumerStopsDuringRetryBackoff(t *testing.T) {
	agg := newTestAggregator(t)
	fetcher := &fakeFetcher{fetchErrs: []error{errors.New("broker unavailable")}}

	consumer := newConsumerWithFetcher(fetcher, agg, quietLogger(t))
	consumer.retryDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

// A restart before the commit replays the uncommitted message and counts it
// again. That is the documented at-least-once tradeoff; this pins it down so
// a future change to exactly-once is deliberate.
func TestConsumerReplayDoubleCounts(t *testing.T) {
	agg := newTestAggregator(t)
	created := events.NewOrderCreated("acme", "o1", "ORD-1", "r1", "c1", 25.50, 2)

	for run := 0; run < 2; run++ {
		fetcher := &fakeFetcher{msgs: []kafka.Message{eventMessage(t, 0, created)}}
		consumer := newConsumerWithFetcher(fetcher, agg, quietLogger(t))
		if err := consumer.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", run, err)
		}
	}

	if total := agg.GetTenantMetrics(context.Background(), "acme").TotalOrders; total != 2 {
		t.Errorf("total = %d, want 2 after replay", total)
	}
}
