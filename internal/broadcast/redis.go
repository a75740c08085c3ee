package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jmehdipour/event-stream/internal/metrics"
	"github.com/jmehdipour/event-stream/internal/model"
)

// RedisBroadcaster publishes messages to a single Redis pub/sub channel.
// Every running server process subscribes to the same channel, which is how
// event changes reach listeners attached to other processes.
type RedisBroadcaster struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBroadcaster(rdb *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = "events"
	}
	return &RedisBroadcaster{rdb: rdb, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal broadcast message: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	metrics.BroadcastPublishedTotal.WithLabelValues("redis").Inc()
	return nil
}
