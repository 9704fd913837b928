package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher writes encoded envelopes to a Redis channel. It satisfies
// events.RawPublisher.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return fmt.Errorf("publish: empty channel")
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
