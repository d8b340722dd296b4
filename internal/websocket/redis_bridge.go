package websocket

import (
	"context"

	"storefront-support/internal/events"
)

// RedisBridge relays events published by any instance to the clients connected here.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	patterns := []string{events.ChannelPrefixConversation + "*", events.ChannelAgents}
	return b.subscriber.Subscribe(ctx, patterns, b.hub.Broadcast)
}
