package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Bus publishes envelopes to a realtime channel.
type Bus interface {
	Publish(ctx context.Context, channel string, env Envelope) error
}

// RawPublisher is the transport under RedisBus.
type RawPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisBus publishes envelopes through Redis pub/sub. Every instance's
// bridge receives them and fans out to local subscribers.
type RedisBus struct {
	publisher RawPublisher
}

func NewRedisBus(publisher RawPublisher) *RedisBus {
	return &RedisBus{publisher: publisher}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.publisher.Publish(ctx, channel, data)
}

// NopBus drops everything.
type NopBus struct{}

func (NopBus) Publish(context.Context, string, Envelope) error { return nil }
