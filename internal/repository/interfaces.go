package repository

import (
	"context"
	"time"

	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	// FindActiveByCustomer returns the customer's most recently updated conversation that is not CLOSED.
	FindActiveByCustomer(ctx context.Context, customerID string) (conversation.Conversation, error)
	// Update writes status, mode, language, assignment and updated_at when c.Version matches the
	// stored row, then increments c.Version. Returns ErrConflict on a version mismatch.
	// queue_position is never written here.
	Update(ctx context.Context, c *conversation.Conversation) error
	// SetQueuePosition is owned by the queue lock holder and bypasses the version check.
	SetQueuePosition(ctx context.Context, id uuid.UUID, position *int) error
}

type MessageRepository interface {
	// Append stores m unless a message with the same id exists. created is false for duplicates.
	Append(ctx context.Context, m *message.Message) (created bool, err error)
	// AppendBatch stores all messages in one transaction.
	AppendBatch(ctx context.Context, msgs []message.Message) error
	// Get returns a stored message or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (message.Message, error)
	// ListSince returns messages strictly after since, oldest first. A zero since lists from the start.
	ListSince(ctx context.Context, conversationID uuid.UUID, since time.Time, limit int) ([]message.Message, error)
	// Recent returns the last n messages, oldest first.
	Recent(ctx context.Context, conversationID uuid.UUID, n int) ([]message.Message, error)
	// LatestTimestamp returns the newest message timestamp, or the zero time for an empty conversation.
	LatestTimestamp(ctx context.Context, conversationID uuid.UUID) (time.Time, error)
}
