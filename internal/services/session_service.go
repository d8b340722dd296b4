package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/escalation"
	"storefront-support/internal/events"
	"storefront-support/internal/intent"
	"storefront-support/internal/lock"
	"storefront-support/internal/metrics"
	"storefront-support/internal/repository"
	"storefront-support/internal/responder"
	support_errors "storefront-support/pkg/errors"
	"storefront-support/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Responder produces the automated reply for a classified customer message.
type Responder interface {
	Respond(ctx context.Context, req responder.Request) message.Message
}

type SessionConfig struct {
	HistoryWindow   int
	DefaultLanguage domain.LanguageCode
	// ReplyTimeout bounds the whole automated reply once it is detached from the caller.
	ReplyTimeout time.Duration
	Now          func() time.Time
}

type InboundMessage struct {
	ConversationID uuid.UUID
	// MessageID is optional. Clients that retry send the same id so the message is stored once.
	MessageID     uuid.UUID
	CustomerID    string
	Content       string
	Type          domain.MessageType
	AttachmentURL *string
	Language      string
}

type RequestHumanResult struct {
	Conversation conversation.Conversation
	Outcome      escalation.Outcome
}

// SessionService is the entry point for everything a customer sends.
type SessionService struct {
	timeline
	classifier intent.Classifier
	responder  Responder
	escalation *escalation.Manager
	locker     lock.Locker
	cfg        SessionConfig
}

func NewSessionService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	classifier intent.Classifier,
	resp Responder,
	manager *escalation.Manager,
	locker lock.Locker,
	bus *events.Bus,
	m *metrics.Metrics,
	cfg SessionConfig,
) *SessionService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 5
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 30 * time.Second
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = domain.LanguageCodeEn
	}
	return &SessionService{
		timeline: timeline{
			conversations: conversations,
			messages:      messages,
			bus:           bus,
			metrics:       m,
			now:           cfg.Now,
		},
		classifier: classifier,
		responder:  resp,
		escalation: manager,
		locker:     locker,
		cfg:        cfg,
	}
}

func (s *SessionService) language(raw string) domain.LanguageCode {
	if strings.TrimSpace(raw) == "" {
		return s.cfg.DefaultLanguage
	}
	return domain.NormalizeLanguage(raw)
}

// CreateConversation opens a new AI-mode conversation. customerID may be empty.
func (s *SessionService) CreateConversation(ctx context.Context, customerID, language string) (conversation.Conversation, error) {
	now := s.now().UTC()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		Status:    domain.ConversationStatusOpen,
		Mode:      domain.ConversationModeAI,
		Language:  s.language(language),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if customerID != "" {
		conv.CustomerID = &customerID
	}
	if err := s.conversations.Create(ctx, &conv); err != nil {
		return conversation.Conversation{}, err
	}
	s.publishConversation(ctx, events.EventTypeConversationCreated, conv)
	return conv, nil
}

// CurrentConversation returns the caller's most recent conversation that is not closed,
// creating one when there is none, with its full message history.
func (s *SessionService) CurrentConversation(ctx context.Context, customerID, language string) (conversation.Conversation, error) {
	if customerID == "" {
		return conversation.Conversation{}, support_errors.ErrAuthenticationRequired
	}

	release, err := s.locker.Acquire(ctx, lock.CustomerKey(customerID))
	if err != nil {
		return conversation.Conversation{}, err
	}
	defer release()

	conv, err := s.conversations.FindActiveByCustomer(ctx, customerID)
	if errors.Is(err, support_errors.ErrNotFound) {
		return s.CreateConversation(ctx, customerID, language)
	}
	if err != nil {
		return conversation.Conversation{}, err
	}

	msgs, err := s.messages.ListSince(ctx, conv.ID, time.Time{}, 0)
	if err != nil {
		return conversation.Conversation{}, err
	}
	conv.Messages = msgs
	return conv, nil
}

// Poll returns the messages stored after since, oldest first.
func (s *SessionService) Poll(ctx context.Context, customerID string, conversationID uuid.UUID, since time.Time, limit int) ([]message.Message, error) {
	if customerID == "" {
		return nil, support_errors.ErrAuthenticationRequired
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.OwnedBy(customerID) {
		return nil, support_errors.ErrForbidden
	}
	return s.messages.ListSince(ctx, conversationID, since, limit)
}

// HandleInbound stores a customer message and returns the messages synthesized in reply.
// A redelivered message id returns an empty list.
func (s *SessionService) HandleInbound(ctx context.Context, in InboundMessage) ([]message.Message, error) {
	if in.CustomerID == "" {
		return nil, support_errors.ErrAuthenticationRequired
	}
	if err := validateInbound(&in); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lock.ConversationKey(in.ConversationID.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	conv, err := s.loadOwned(ctx, in.ConversationID, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if conv.IsClosed() {
		return nil, support_errors.ErrConversationClosed
	}
	if in.Language != "" {
		conv.Language = domain.NormalizeLanguage(in.Language)
	}

	customerID := in.CustomerID
	inbound := message.Message{
		ID:            in.MessageID,
		Content:       strings.TrimSpace(in.Content),
		Type:          in.Type,
		SenderType:    domain.SenderTypeCustomer,
		SenderID:      &customerID,
		AttachmentURL: in.AttachmentURL,
	}
	if inbound.ID == uuid.Nil {
		inbound.ID = uuid.New()
	}
	batch := []message.Message{inbound}
	if err := s.stamp(ctx, &conv, batch); err != nil {
		return nil, err
	}
	inbound = batch[0]

	created, err := s.messages.Append(ctx, &inbound)
	if err != nil {
		return nil, err
	}
	// From here on the inbound message is stored; the rest of the turn must finish even if the caller goes away.
	work := context.WithoutCancel(ctx)
	if !created {
		return s.redelivered(work, conv, inbound.ID)
	}
	s.publish(work, inbound)
	return s.answer(work, conv, inbound)
}

// redelivered handles a retried message id. An AI-mode turn whose replies were
// never stored is answered again; otherwise the stored replies are returned.
func (s *SessionService) redelivered(ctx context.Context, conv conversation.Conversation, id uuid.UUID) ([]message.Message, error) {
	stored, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored.ConversationID != conv.ID {
		return nil, support_errors.ErrConflict
	}
	after, err := s.messages.ListSince(ctx, conv.ID, stored.Timestamp, 0)
	if err != nil {
		return nil, err
	}
	replies := []message.Message{}
	answered, collecting := false, true
	for _, m := range after {
		if m.SenderType == domain.SenderTypeCustomer {
			collecting = false
			continue
		}
		answered = true
		if collecting {
			replies = append(replies, m)
		}
	}
	if answered || conv.Mode == domain.ConversationModeHuman {
		return replies, nil
	}
	return s.answer(ctx, conv, stored)
}

// answer runs the automated part of a turn for an already stored inbound message.
func (s *SessionService) answer(work context.Context, conv conversation.Conversation, inbound message.Message) ([]message.Message, error) {
	if conv.Mode == domain.ConversationModeHuman {
		if err := s.touch(work, &conv, inbound.Timestamp); err != nil {
			return nil, err
		}
		return []message.Message{}, nil
	}

	detected := intent.General
	if inbound.Content != "" {
		detected = s.classifier.Classify(inbound.Content, conv.Language)
	}
	s.metrics.Inbound(string(detected))

	var replies []message.Message
	if detected == intent.HumanRequest {
		outcome, err := s.escalation.RequestHuman(work, &conv)
		if err != nil {
			return nil, err
		}
		s.announce(work, conv, outcome)
		if outcome.HasMessage() {
			replies = append(replies, outcome.Message)
		}
	} else {
		reply, err := s.respond(work, conv, inbound, detected)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}

	if len(replies) == 0 {
		if err := s.touch(work, &conv, inbound.Timestamp); err != nil {
			return nil, err
		}
		return []message.Message{}, nil
	}
	if err := s.commit(work, &conv, replies); err != nil {
		return nil, err
	}
	return replies, nil
}

func (s *SessionService) respond(ctx context.Context, conv conversation.Conversation, inbound message.Message, detected intent.Intent) (message.Message, error) {
	history, err := s.messages.Recent(ctx, conv.ID, s.cfg.HistoryWindow)
	if err != nil {
		return message.Message{}, err
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.ReplyTimeout)
	defer cancel()

	start := time.Now()
	reply := s.responder.Respond(rctx, responder.Request{
		Intent:       detected,
		Conversation: conv,
		Inbound:      inbound,
		History:      history,
	})
	s.metrics.ObserveResponder(time.Since(start).Seconds())
	return reply, nil
}

// RequestHuman escalates a conversation on explicit request.
func (s *SessionService) RequestHuman(ctx context.Context, customerID string, conversationID uuid.UUID) (RequestHumanResult, error) {
	if customerID == "" {
		return RequestHumanResult{}, support_errors.ErrAuthenticationRequired
	}
	if conversationID == uuid.Nil {
		return RequestHumanResult{}, support_errors.ErrInvalidInput
	}

	release, err := s.locker.Acquire(ctx, lock.ConversationKey(conversationID.String()))
	if err != nil {
		return RequestHumanResult{}, err
	}
	defer release()

	conv, err := s.loadOwned(ctx, conversationID, customerID)
	if err != nil {
		return RequestHumanResult{}, err
	}

	work := context.WithoutCancel(ctx)
	outcome, err := s.escalation.RequestHuman(work, &conv)
	if err != nil {
		return RequestHumanResult{}, err
	}
	s.announce(work, conv, outcome)
	if outcome.HasMessage() {
		msgs := []message.Message{outcome.Message}
		if err := s.commit(work, &conv, msgs); err != nil {
			return RequestHumanResult{}, err
		}
		outcome.Message = msgs[0]
	}
	return RequestHumanResult{Conversation: conv, Outcome: outcome}, nil
}

func (s *SessionService) announce(ctx context.Context, conv conversation.Conversation, outcome escalation.Outcome) {
	switch {
	case outcome.Assigned:
		s.publishConversation(ctx, events.EventTypeConversationAssigned, conv)
	case outcome.Queued:
		s.publishConversation(ctx, events.EventTypeConversationQueued, conv)
	}
}

func (s *SessionService) loadOwned(ctx context.Context, id uuid.UUID, customerID string) (conversation.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !conv.OwnedBy(customerID) {
		logger.GetGlobalLogger().WarnCtx(ctx, "conversation owned by another customer",
			zap.String("conversation_id", id.String()))
		return conversation.Conversation{}, support_errors.ErrForbidden
	}
	return conv, nil
}

func validateInbound(in *InboundMessage) error {
	if in.ConversationID == uuid.Nil {
		return support_errors.ErrInvalidInput
	}
	if in.Type == "" {
		in.Type = domain.MessageTypeText
		if in.AttachmentURL != nil {
			in.Type = domain.MessageTypeFile
		}
	}
	switch in.Type {
	case domain.MessageTypeText:
		if strings.TrimSpace(in.Content) == "" {
			return support_errors.ErrInvalidInput
		}
	case domain.MessageTypeImage, domain.MessageTypeFile:
		if in.AttachmentURL == nil || strings.TrimSpace(*in.AttachmentURL) == "" {
			return support_errors.ErrInvalidInput
		}
	default:
		// ORDER_INFO and PRODUCT_LINK are only produced by the assistant.
		return support_errors.ErrInvalidInput
	}
	return nil
}
