package websocket

import (
	"context"
	"errors"

	"storefront-support/internal/repository"
	"storefront-support/internal/services"
	support_errors "storefront-support/pkg/errors"

	"github.com/google/uuid"
)

// ConversationAuthorizer decides who may watch a conversation stream.
type ConversationAuthorizer struct {
	conversations repository.ConversationRepository
}

func NewConversationAuthorizer(conversations repository.ConversationRepository) *ConversationAuthorizer {
	return &ConversationAuthorizer{conversations: conversations}
}

// CanSubscribe allows agents on any conversation and customers on their own.
func (a *ConversationAuthorizer) CanSubscribe(ctx context.Context, userID, role string, conversationID uuid.UUID) (bool, error) {
	if userID == "" {
		return false, nil
	}

	conv, err := a.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, support_errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if role == services.RoleAgent {
		return true, nil
	}
	return conv.CustomerID != nil && *conv.CustomerID == userID, nil
}
