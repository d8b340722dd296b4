package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/pkg/logger"
)

// Publisher is satisfied by the redis publisher.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber delivers payloads from channel patterns until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, channels []string, handler func(channel string, payload []byte)) error
}

// Bus fans conversation events out over pub/sub. Delivery is best effort:
// clients that miss a push catch up through the since-poll.
type Bus struct {
	publisher Publisher
	resolver  ChannelResolver
}

func NewBus(publisher Publisher, resolver ChannelResolver) *Bus {
	if resolver == nil {
		resolver = NewSupportChannelResolver()
	}
	return &Bus{publisher: publisher, resolver: resolver}
}

func (b *Bus) PublishMessage(ctx context.Context, msg message.Message) error {
	env, err := NewEnvelope(EventTypeMessageCreated, AggregateTypeMessage, msg.ID.String(), msg)
	if err != nil {
		return err
	}
	return b.publish(ctx, env, msg.ConversationID.String())
}

func (b *Bus) PublishConversation(ctx context.Context, eventType string, conv conversation.Conversation) error {
	conv.Messages = nil
	env, err := NewEnvelope(eventType, AggregateTypeConversation, conv.ID.String(), conv)
	if err != nil {
		return err
	}
	return b.publish(ctx, env, conv.ID.String())
}

// PublishQueue notifies agent consoles that the waiting line changed.
func (b *Bus) PublishQueue(ctx context.Context, length int) error {
	env, err := NewEnvelope(EventTypeQueueChanged, AggregateTypeQueue, "support", map[string]int{"length": length})
	if err != nil {
		return err
	}
	return b.publish(ctx, env, "")
}

func (b *Bus) publish(ctx context.Context, env Envelope, conversationID string) error {
	if b == nil || b.publisher == nil {
		return nil
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var firstErr error
	for _, channel := range b.resolver.ResolveChannels(env, conversationID) {
		if err := b.publisher.Publish(ctx, channel, data); err != nil {
			logger.GetGlobalLogger().WarnCtx(ctx, "publish failed", zap.String("channel", channel), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
