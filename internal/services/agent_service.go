package services

import (
	"context"
	"strings"
	"time"

	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/escalation"
	"storefront-support/internal/events"
	"storefront-support/internal/lock"
	"storefront-support/internal/metrics"
	"storefront-support/internal/repository"
	support_errors "storefront-support/pkg/errors"

	"github.com/google/uuid"
)

type AgentReplyInput struct {
	AgentID        string
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	Content        string
	Type           domain.MessageType
	AttachmentURL  *string
}

type QueueView struct {
	Entries []escalation.QueueEntry  `json:"entries"`
	Agents  []escalation.AgentStatus `json:"agents"`
}

// AgentService backs the agent console: taking conversations from the queue,
// replying and closing them.
type AgentService struct {
	timeline
	escalation *escalation.Manager
	registry   escalation.AgentRegistry
	locker     lock.Locker
	capacity   int
}

func NewAgentService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	manager *escalation.Manager,
	registry escalation.AgentRegistry,
	locker lock.Locker,
	bus *events.Bus,
	m *metrics.Metrics,
	defaultCapacity int,
	now func() time.Time,
) *AgentService {
	if now == nil {
		now = time.Now
	}
	return &AgentService{
		timeline: timeline{
			conversations: conversations,
			messages:      messages,
			bus:           bus,
			metrics:       m,
			now:           now,
		},
		escalation: manager,
		registry:   registry,
		locker:     locker,
		capacity:   defaultCapacity,
	}
}

// AcceptNext assigns the longest waiting conversation to the agent.
func (s *AgentService) AcceptNext(ctx context.Context, agentID string) (conversation.Conversation, error) {
	if agentID == "" {
		return conversation.Conversation{}, support_errors.ErrInvalidInput
	}
	work := context.WithoutCancel(ctx)
	conv, _, err := s.escalation.AcceptNext(work, agentID, func(ctx context.Context, conv *conversation.Conversation, outcome escalation.Outcome) error {
		return s.commitAssignment(ctx, conv, outcome)
	})
	if err != nil {
		return conversation.Conversation{}, err
	}
	return conv, nil
}

// Accept assigns a specific conversation to the agent. Accepting one already held by the same agent is a no-op.
func (s *AgentService) Accept(ctx context.Context, agentID string, conversationID uuid.UUID) (conversation.Conversation, error) {
	if agentID == "" || conversationID == uuid.Nil {
		return conversation.Conversation{}, support_errors.ErrInvalidInput
	}
	release, err := s.locker.Acquire(ctx, lock.ConversationKey(conversationID.String()))
	if err != nil {
		return conversation.Conversation{}, err
	}
	defer release()

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	work := context.WithoutCancel(ctx)
	outcome, err := s.escalation.Assign(work, &conv, agentID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if err := s.commitAssignment(work, &conv, outcome); err != nil {
		return conversation.Conversation{}, err
	}
	return conv, nil
}

func (s *AgentService) commitAssignment(ctx context.Context, conv *conversation.Conversation, outcome escalation.Outcome) error {
	if !outcome.HasMessage() {
		return nil
	}
	if err := s.commit(ctx, conv, []message.Message{outcome.Message}); err != nil {
		return err
	}
	s.publishConversation(ctx, events.EventTypeConversationAssigned, *conv)
	return nil
}

// Reply posts an agent message into a conversation the agent holds.
func (s *AgentService) Reply(ctx context.Context, in AgentReplyInput) (message.Message, error) {
	if in.AgentID == "" || in.ConversationID == uuid.Nil {
		return message.Message{}, support_errors.ErrInvalidInput
	}
	if in.Type == "" {
		in.Type = domain.MessageTypeText
	}
	if !in.Type.Valid() {
		return message.Message{}, support_errors.ErrInvalidInput
	}
	if strings.TrimSpace(in.Content) == "" && in.AttachmentURL == nil {
		return message.Message{}, support_errors.ErrInvalidInput
	}

	release, err := s.locker.Acquire(ctx, lock.ConversationKey(in.ConversationID.String()))
	if err != nil {
		return message.Message{}, err
	}
	defer release()

	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return message.Message{}, err
	}
	if conv.IsClosed() {
		return message.Message{}, support_errors.ErrConversationClosed
	}
	if conv.AssignedAgentID == nil || *conv.AssignedAgentID != in.AgentID {
		return message.Message{}, support_errors.ErrForbidden
	}

	agentID := in.AgentID
	msg := message.Message{
		ID:            in.MessageID,
		Content:       strings.TrimSpace(in.Content),
		Type:          in.Type,
		SenderType:    domain.SenderTypeAgent,
		SenderID:      &agentID,
		AttachmentURL: in.AttachmentURL,
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msgs := []message.Message{msg}
	if err := s.commit(context.WithoutCancel(ctx), &conv, msgs); err != nil {
		return message.Message{}, err
	}
	return msgs[0], nil
}

func (s *AgentService) Resolve(ctx context.Context, agentID string, conversationID uuid.UUID) (conversation.Conversation, error) {
	return s.release(ctx, agentID, conversationID, domain.ConversationStatusResolved)
}

func (s *AgentService) Close(ctx context.Context, agentID string, conversationID uuid.UUID) (conversation.Conversation, error) {
	return s.release(ctx, agentID, conversationID, domain.ConversationStatusClosed)
}

func (s *AgentService) release(ctx context.Context, agentID string, conversationID uuid.UUID, target domain.ConversationStatus) (conversation.Conversation, error) {
	if agentID == "" || conversationID == uuid.Nil {
		return conversation.Conversation{}, support_errors.ErrInvalidInput
	}
	release, err := s.locker.Acquire(ctx, lock.ConversationKey(conversationID.String()))
	if err != nil {
		return conversation.Conversation{}, err
	}
	defer release()

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if conv.AssignedAgentID != nil && *conv.AssignedAgentID != agentID {
		return conversation.Conversation{}, support_errors.ErrForbidden
	}

	work := context.WithoutCancel(ctx)
	outcome, err := s.escalation.Release(work, &conv, target)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !outcome.HasMessage() {
		return conv, nil
	}
	if err := s.commit(work, &conv, []message.Message{outcome.Message}); err != nil {
		return conversation.Conversation{}, err
	}
	eventType := events.EventTypeConversationResolved
	if target == domain.ConversationStatusClosed {
		eventType = events.EventTypeConversationClosed
	}
	s.publishConversation(work, eventType, conv)
	return conv, nil
}

// Conversation returns a conversation with its messages after since.
func (s *AgentService) Conversation(ctx context.Context, conversationID uuid.UUID, since time.Time) (conversation.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	msgs, err := s.messages.ListSince(ctx, conversationID, since, 0)
	if err != nil {
		return conversation.Conversation{}, err
	}
	conv.Messages = msgs
	return conv, nil
}

// SetPresence signs the agent in or out. A capacity of zero uses the configured default.
func (s *AgentService) SetPresence(ctx context.Context, agentID string, online bool, capacity int) error {
	if agentID == "" || capacity < 0 {
		return support_errors.ErrInvalidInput
	}
	if s.registry == nil {
		return support_errors.ErrServiceUnavailable
	}
	if !online {
		return s.registry.SetOffline(ctx, agentID)
	}
	if capacity == 0 {
		capacity = s.capacity
	}
	return s.registry.SetOnline(ctx, agentID, capacity)
}

func (s *AgentService) Queue(ctx context.Context) (QueueView, error) {
	entries, err := s.escalation.Snapshot(ctx)
	if err != nil {
		return QueueView{}, err
	}
	view := QueueView{Entries: entries, Agents: []escalation.AgentStatus{}}
	if s.registry != nil {
		agents, err := s.registry.Agents(ctx)
		if err != nil {
			return QueueView{}, err
		}
		view.Agents = agents
	}
	return view, nil
}
