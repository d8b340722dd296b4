package services

import (
	"context"
	"fmt"
	"strings"

	"storefront-support/internal/domain"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/repository"
	support_errors "storefront-support/pkg/errors"
	"storefront-support/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStore is satisfied by the S3 storage client.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

var allowedUploadTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
}

type UploadInput struct {
	CustomerID     string
	ConversationID uuid.UUID
	FileName       string
	Caption        string
	Data           []byte
}

type UploadResult struct {
	URL     string            `json:"url"`
	Type    string            `json:"type"`
	Replies []message.Message `json:"replies"`
}

// UploadService stores a customer attachment and posts it into the conversation as an IMAGE or FILE message.
type UploadService struct {
	store         ObjectStore
	conversations repository.ConversationRepository
	sessions      *SessionService
	maxBytes      int64
}

func NewUploadService(store ObjectStore, conversations repository.ConversationRepository, sessions *SessionService, maxBytes int64) *UploadService {
	return &UploadService{store: store, conversations: conversations, sessions: sessions, maxBytes: maxBytes}
}

func (s *UploadService) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	if in.CustomerID == "" {
		return UploadResult{}, support_errors.ErrAuthenticationRequired
	}
	if s.store == nil {
		return UploadResult{}, support_errors.ErrServiceUnavailable
	}
	if in.ConversationID == uuid.Nil || len(in.Data) == 0 {
		return UploadResult{}, support_errors.ErrInvalidInput
	}
	if s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes {
		return UploadResult{}, support_errors.ErrTooLarge
	}

	mtype := mimetype.Detect(in.Data)
	if !mimetype.EqualsAny(mtype.String(), allowedUploadTypes...) {
		return UploadResult{}, fmt.Errorf("%w: unsupported file type %s", support_errors.ErrInvalidInput, mtype.String())
	}

	// Check the conversation before anything reaches storage.
	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return UploadResult{}, err
	}
	if !conv.OwnedBy(in.CustomerID) {
		return UploadResult{}, support_errors.ErrForbidden
	}
	if conv.IsClosed() {
		return UploadResult{}, support_errors.ErrConversationClosed
	}

	msgType := domain.MessageTypeFile
	if strings.HasPrefix(mtype.String(), "image/") {
		msgType = domain.MessageTypeImage
	}

	messageID := uuid.New()
	key := fmt.Sprintf("uploads/%s/%s%s", conv.ID, messageID, mtype.Extension())
	url, err := s.store.Put(ctx, key, mtype.String(), in.Data)
	if err != nil {
		logger.GetGlobalLogger().ErrorCtx(ctx, "attachment upload failed", zap.String("key", key), zap.Error(err))
		return UploadResult{}, fmt.Errorf("%w: store attachment", support_errors.ErrServiceUnavailable)
	}

	replies, err := s.sessions.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		MessageID:      messageID,
		CustomerID:     in.CustomerID,
		Content:        in.Caption,
		Type:           msgType,
		AttachmentURL:  &url,
	})
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{URL: url, Type: string(msgType), Replies: replies}, nil
}
