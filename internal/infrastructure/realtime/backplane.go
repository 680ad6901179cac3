package realtime

import (
	"context"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/redis/go-redis/v9"
)

// Backplane links hubs across server processes through a redis pub/sub
// channel, so an emit on any process reaches clients connected to every
// process. No sticky sessions required.
type Backplane struct {
	client  *redis.Client
	channel string
	logger  *logging.ChanneledLogger
}

// NewBackplane creates a backplane on an established redis client.
func NewBackplane(client *redis.Client, channel string, logger *logging.ChanneledLogger) *Backplane {
	return &Backplane{client: client, channel: channel, logger: logger}
}

// Publish pushes a raw envelope to every subscribed process, including the
// caller's own.
func (b *Backplane) Publish(ctx context.Context, data []byte) error {
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Subscribe delivers every envelope on the channel to handler until ctx is
// cancelled. Run as a goroutine.
func (b *Backplane) Subscribe(ctx context.Context, handler func([]byte)) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if b.logger != nil {
		b.logger.Realtime().Info("Backplane subscribed", "channel", b.channel)
	}

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			handler([]byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}
