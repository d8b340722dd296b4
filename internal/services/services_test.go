package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront-support/internal/availability"
	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/escalation"
	"storefront-support/internal/events"
	"storefront-support/internal/intent"
	"storefront-support/internal/lock"
	"storefront-support/internal/repository"
	"storefront-support/internal/responder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type mockResponder struct {
	RespondFunc func(ctx context.Context, req responder.Request) message.Message
	mu          sync.Mutex
	calls       int
}

func (m *mockResponder) Respond(ctx context.Context, req responder.Request) message.Message {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, req)
	}
	return message.Message{
		ID:         uuid.New(),
		Content:    "automated answer",
		Type:       domain.MessageTypeText,
		SenderType: domain.SenderTypeAI,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *mockResponder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	return nil
}

func (p *recordingPublisher) Count(channel string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.channels {
		if c == channel {
			n++
		}
	}
	return n
}

type harness struct {
	convs     *repository.MemoryConversationRepository
	msgs      *repository.MemoryMessageRepository
	queue     *escalation.MemoryQueue
	agents    *escalation.MemoryAgentPool
	publisher *recordingPublisher
	responder *mockResponder
	checker   *availability.Checker
	manager   *escalation.Manager
	session   *SessionService
	agent     *AgentService
}

var testNow = func() time.Time {
	loc, _ := time.LoadLocation("Africa/Cairo")
	// Sunday, on duty.
	return time.Date(2024, 1, 7, 10, 0, 0, 0, loc)
}

func newHarness(t *testing.T, resp Responder, cfg escalation.Config) *harness {
	t.Helper()
	cal, err := availability.DefaultCalendar()
	require.NoError(t, err)

	h := &harness{
		convs:     repository.NewMemoryConversationRepository(),
		msgs:      repository.NewMemoryMessageRepository(),
		queue:     escalation.NewMemoryQueue(),
		agents:    escalation.NewMemoryAgentPool(),
		publisher: &recordingPublisher{},
		responder: &mockResponder{},
		checker:   availability.NewChecker(cal, testNow),
	}
	if resp == nil {
		resp = h.responder
	}
	locker := lock.NewKeyedMutex()
	bus := events.NewBus(h.publisher, nil)
	h.manager = escalation.NewManager(h.convs, h.queue, h.agents, locker, h.checker, cfg, nil)
	h.session = NewSessionService(h.convs, h.msgs, intent.NewKeywordClassifier(), resp, h.manager, locker, bus, nil,
		SessionConfig{HistoryWindow: 5, Now: testNow})
	h.agent = NewAgentService(h.convs, h.msgs, h.manager, h.agents, locker, bus, nil, 2, testNow)
	return h
}

func (h *harness) openConversation(t *testing.T, customerID string) conversation.Conversation {
	t.Helper()
	conv, err := h.session.CreateConversation(context.Background(), customerID, "en")
	require.NoError(t, err)
	return conv
}

func (h *harness) stored(t *testing.T, id uuid.UUID) []message.Message {
	t.Helper()
	msgs, err := h.msgs.ListSince(context.Background(), id, time.Time{}, 0)
	require.NoError(t, err)
	return msgs
}

func (h *harness) reload(t *testing.T, id uuid.UUID) conversation.Conversation {
	t.Helper()
	conv, err := h.convs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return conv
}

func text(conv conversation.Conversation, customerID, content string) InboundMessage {
	return InboundMessage{
		ConversationID: conv.ID,
		CustomerID:     customerID,
		Content:        content,
		Type:           domain.MessageTypeText,
	}
}
