package services

import (
	"context"
	"errors"
	"time"

	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/events"
	"storefront-support/internal/metrics"
	"storefront-support/internal/repository"
	support_errors "storefront-support/pkg/errors"
	"storefront-support/pkg/logger"

	"go.uber.org/zap"
)

// timeline appends to a conversation's message log. Callers hold the conversation lock.
type timeline struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	bus           *events.Bus
	metrics       *metrics.Metrics
	now           func() time.Time
}

// stamp gives each message a timestamp strictly after everything already stored,
// truncated to the store's microsecond precision.
func (t *timeline) stamp(ctx context.Context, conv *conversation.Conversation, msgs []message.Message) error {
	latest, err := t.messages.LatestTimestamp(ctx, conv.ID)
	if err != nil {
		return err
	}
	for i := range msgs {
		ts := msgs[i].Timestamp
		if ts.IsZero() {
			ts = t.now()
		}
		ts = ts.UTC().Truncate(time.Microsecond)
		if !ts.After(latest) {
			ts = latest.Add(time.Microsecond)
		}
		msgs[i].Timestamp = ts
		msgs[i].ConversationID = conv.ID
		latest = ts
	}
	return nil
}

// commit stores msgs in one batch, refreshes updated_at and pushes them to subscribers.
func (t *timeline) commit(ctx context.Context, conv *conversation.Conversation, msgs []message.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := t.stamp(ctx, conv, msgs); err != nil {
		return err
	}
	if err := t.messages.AppendBatch(ctx, msgs); err != nil {
		return err
	}
	if err := t.touch(ctx, conv, msgs[len(msgs)-1].Timestamp); err != nil {
		return err
	}
	for _, m := range msgs {
		t.metrics.Reply(string(m.SenderType))
		t.publish(ctx, m)
	}
	return nil
}

// touch bumps updated_at. A concurrent version bump is retried once against the fresh row.
func (t *timeline) touch(ctx context.Context, conv *conversation.Conversation, at time.Time) error {
	lang := conv.Language
	conv.UpdatedAt = at
	err := t.conversations.Update(ctx, conv)
	if !errors.Is(err, support_errors.ErrConflict) {
		return err
	}
	fresh, err := t.conversations.GetByID(ctx, conv.ID)
	if err != nil {
		return err
	}
	fresh.Language = lang
	fresh.UpdatedAt = at
	if err := t.conversations.Update(ctx, &fresh); err != nil {
		return err
	}
	*conv = fresh
	return nil
}

func (t *timeline) publish(ctx context.Context, m message.Message) {
	if err := t.bus.PublishMessage(ctx, m); err != nil {
		logger.GetGlobalLogger().WarnCtx(ctx, "push message failed",
			zap.String("message_id", m.ID.String()), zap.Error(err))
	}
}

func (t *timeline) publishConversation(ctx context.Context, eventType string, conv conversation.Conversation) {
	if err := t.bus.PublishConversation(ctx, eventType, conv); err != nil {
		logger.GetGlobalLogger().WarnCtx(ctx, "push conversation event failed",
			zap.String("conversation_id", conv.ID.String()), zap.String("event_type", eventType), zap.Error(err))
	}
}
