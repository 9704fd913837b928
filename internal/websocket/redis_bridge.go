package websocket

import (
	"context"

	"hivley/internal/events"
	"hivley/pkg/logger"
)

// RedisBridge feeds envelopes published by any instance into the local hub.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
	log        *logger.Logger
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub, log *logger.Logger) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub, log: log}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (b *RedisBridge) Run(ctx context.Context) error {
	b.log.Infof("realtime bridge subscribed to %s", events.ChannelPattern)
	return b.subscriber.Subscribe(ctx, []string{events.ChannelPattern}, func(channel string, payload []byte) {
		if err := b.hub.Dispatch(channel, payload); err != nil {
			b.log.Warnf("dropping realtime event: %v", err)
		}
	})
}
