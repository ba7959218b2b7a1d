package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix namespaces the pub/sub channels; the full channel name
// is "<prefix>:<event type>".
const DefaultChannelPrefix = "arena:events"

type redisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher publishes events as JSON on Redis pub/sub, one channel
// per event type.
func NewRedisPublisher(client *redis.Client, prefix string) Publisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &redisPublisher{client: client, prefix: prefix}
}

func (p *redisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}

	channel := fmt.Sprintf("%s:%s", p.prefix, e.Type)
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event to redis: %w", e.Type, err)
	}
	return nil
}
