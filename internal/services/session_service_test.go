package services

import (
	"context"
	"errors"
	"testing"

	"storefront-support/internal/clients"
	"storefront-support/internal/domain"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/escalation"
	"storefront-support/internal/events"
	"storefront-support/internal/intent"
	"storefront-support/internal/locale"
	"storefront-support/internal/lock"
	"storefront-support/internal/repository"
	"storefront-support/internal/responder"
	support_errors "storefront-support/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, req clients.GenerationRequest) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req clients.GenerationRequest) (string, error) {
	return m.GenerateFunc(ctx, req)
}

func TestHandleInbound_AnonymousSenderIsRejected(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{AutoAssign: true})
	conv := h.openConversation(t, "")

	replies, err := h.session.HandleInbound(context.Background(), text(conv, "", "hello"))

	assert.ErrorIs(t, err, support_errors.ErrAuthenticationRequired)
	assert.Nil(t, replies)
	assert.Empty(t, h.stored(t, conv.ID))
	assert.Equal(t, domain.ConversationModeAI, h.reload(t, conv.ID).Mode)
	assert.Equal(t, 0, h.responder.Calls())
}

func TestHandleInbound_ClosedConversationStoresNothing(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	conv := h.openConversation(t, "cust-1")

	_, err := h.agent.Close(context.Background(), "agent-1", conv.ID)
	require.NoError(t, err)
	before := len(h.stored(t, conv.ID))

	_, err = h.session.HandleInbound(context.Background(), text(conv, "cust-1", "hello?"))

	assert.ErrorIs(t, err, support_errors.ErrConversationClosed)
	assert.Len(t, h.stored(t, conv.ID), before)
}

func TestHandleInbound_RedeliveredMessageIsStoredOnce(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	conv := h.openConversation(t, "cust-1")
	in := text(conv, "cust-1", "hello there")
	in.MessageID = uuid.New()

	first, err := h.session.HandleInbound(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := h.session.HandleInbound(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, second, 1, "the stored reply is returned again")
	assert.Equal(t, first[0].ID, second[0].ID)

	assert.Len(t, h.stored(t, conv.ID), 2, "one inbound plus one reply")
	assert.Equal(t, 1, h.responder.Calls())
}

type flakyMessages struct {
	*repository.MemoryMessageRepository
	failures int
}

func (f *flakyMessages) AppendBatch(ctx context.Context, msgs []message.Message) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("db blip")
	}
	return f.MemoryMessageRepository.AppendBatch(ctx, msgs)
}

func TestHandleInbound_RetryAfterFailedReplyCommitIsAnswered(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	msgs := &flakyMessages{MemoryMessageRepository: h.msgs, failures: 1}
	locker := lock.NewKeyedMutex()
	session := NewSessionService(h.convs, msgs, intent.NewKeywordClassifier(), h.responder, h.manager, locker,
		events.NewBus(h.publisher, nil), nil, SessionConfig{HistoryWindow: 5, Now: testNow})
	conv := h.openConversation(t, "cust-1")
	in := text(conv, "cust-1", "hello there")
	in.MessageID = uuid.New()

	_, err := session.HandleInbound(context.Background(), in)
	require.Error(t, err)
	require.Len(t, h.stored(t, conv.ID), 1, "inbound stored, reply lost")

	replies, err := session.HandleInbound(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, domain.SenderTypeAI, replies[0].SenderType)

	stored := h.stored(t, conv.ID)
	require.Len(t, stored, 2)
	assert.Equal(t, in.MessageID, stored[0].ID)
	assert.Equal(t, domain.SenderTypeAI, stored[1].SenderType)
	assert.Equal(t, domain.ConversationModeAI, h.reload(t, conv.ID).Mode)

	again, err := session.HandleInbound(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, replies[0].ID, again[0].ID)
	assert.Equal(t, 2, h.responder.Calls())
}

func TestHandleInbound_RedeliveredIdFromAnotherConversationConflicts(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	first := h.openConversation(t, "cust-1")
	in := text(first, "cust-1", "hello there")
	in.MessageID = uuid.New()
	_, err := h.session.HandleInbound(context.Background(), in)
	require.NoError(t, err)

	_, err = h.agent.Close(context.Background(), "agent-1", first.ID)
	require.NoError(t, err)
	second := h.openConversation(t, "cust-1")
	in.ConversationID = second.ID

	_, err = h.session.HandleInbound(context.Background(), in)
	assert.ErrorIs(t, err, support_errors.ErrConflict)
	assert.Empty(t, h.stored(t, second.ID))
}

func TestHandleInbound_GeneratorTimeoutFallsBackAndStaysAI(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req clients.GenerationRequest) (string, error) {
		return "", support_errors.ErrUpstreamTimeout
	}}
	resp := responder.New(nil, nil, gen, "https://shop.example", 5)
	h := newHarness(t, resp, escalation.Config{})
	conv := h.openConversation(t, "cust-1")

	replies, err := h.session.HandleInbound(context.Background(), text(conv, "cust-1", "hello there"))

	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.GeneralFallback), replies[0].Content)
	assert.Equal(t, domain.SenderTypeAI, replies[0].SenderType)

	reloaded := h.reload(t, conv.ID)
	assert.Equal(t, domain.ConversationModeAI, reloaded.Mode)
	assert.Nil(t, reloaded.QueuePosition)
}

func TestHandleInbound_ReplyIsStoredWhenCallerGoesAway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, nil, escalation.Config{})
	h.responder.RespondFunc = func(rctx context.Context, req responder.Request) message.Message {
		cancel()
		assert.NoError(t, rctx.Err(), "reply work is detached from the caller")
		return message.Message{ID: uuid.New(), Content: "done", Type: domain.MessageTypeText, SenderType: domain.SenderTypeAI}
	}
	conv := h.openConversation(t, "cust-1")

	replies, err := h.session.HandleInbound(ctx, text(conv, "cust-1", "hello there"))

	require.NoError(t, err)
	require.Len(t, replies, 1)
	stored := h.stored(t, conv.ID)
	require.Len(t, stored, 2)
	assert.Equal(t, "done", stored[1].Content)
}

func TestHandleInbound_HumanRequestQueuesAndStopsAutomatedReplies(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{AutoAssign: true})
	conv := h.openConversation(t, "cust-1")

	replies, err := h.session.HandleInbound(context.Background(), text(conv, "cust-1", "can I talk to a human please"))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, domain.SenderTypeSystem, replies[0].SenderType)
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.QueuedPosition, 1), replies[0].Content)
	assert.Equal(t, 0, h.responder.Calls())

	reloaded := h.reload(t, conv.ID)
	assert.Equal(t, domain.ConversationModeHuman, reloaded.Mode)
	assert.Equal(t, domain.ConversationStatusPending, reloaded.Status)
	require.NotNil(t, reloaded.QueuePosition)
	assert.Equal(t, 1, *reloaded.QueuePosition)

	replies, err = h.session.HandleInbound(context.Background(), text(conv, "cust-1", "anyone there? hello there"))
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.Equal(t, 0, h.responder.Calls())
	assert.Len(t, h.stored(t, conv.ID), 3)
}

func TestHandleInbound_OrderPrecedesHumanKeyword(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	conv := h.openConversation(t, "cust-1")
	var seen responder.Request
	h.responder.RespondFunc = func(ctx context.Context, req responder.Request) message.Message {
		seen = req
		return message.Message{ID: uuid.New(), Content: "order status", Type: domain.MessageTypeText, SenderType: domain.SenderTypeAI}
	}

	_, err := h.session.HandleInbound(context.Background(), text(conv, "cust-1", "where is my order, let me talk to a human"))

	require.NoError(t, err)
	assert.Equal(t, "ORDER_TRACKING", string(seen.Intent))
	assert.Equal(t, domain.ConversationModeAI, h.reload(t, conv.ID).Mode)
	require.NotEmpty(t, seen.History)
	assert.Equal(t, seen.Inbound.ID, seen.History[len(seen.History)-1].ID)
}

func TestHandleInbound_Validation(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	conv := h.openConversation(t, "cust-1")

	cases := map[string]InboundMessage{
		"missing conversation": {CustomerID: "cust-1", Content: "hi"},
		"blank text":           text(conv, "cust-1", "   "),
		"assistant only type":  {ConversationID: conv.ID, CustomerID: "cust-1", Content: "x", Type: domain.MessageTypeOrderInfo},
		"image without file":   {ConversationID: conv.ID, CustomerID: "cust-1", Type: domain.MessageTypeImage},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.session.HandleInbound(context.Background(), in)
			assert.ErrorIs(t, err, support_errors.ErrInvalidInput)
		})
	}

	_, err := h.session.HandleInbound(context.Background(), text(conv, "someone-else", "hi"))
	assert.ErrorIs(t, err, support_errors.ErrForbidden)

	unknown := text(conv, "cust-1", "hi")
	unknown.ConversationID = uuid.New()
	_, err = h.session.HandleInbound(context.Background(), unknown)
	assert.ErrorIs(t, err, support_errors.ErrNotFound)

	assert.Empty(t, h.stored(t, conv.ID))
}

func TestHandleInbound_TimestampsStrictlyIncrease(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	conv := h.openConversation(t, "cust-1")

	for i := 0; i < 3; i++ {
		_, err := h.session.HandleInbound(context.Background(), text(conv, "cust-1", "hello there"))
		require.NoError(t, err)
	}

	stored := h.stored(t, conv.ID)
	require.Len(t, stored, 6)
	for i := 1; i < len(stored); i++ {
		assert.True(t, stored[i].Timestamp.After(stored[i-1].Timestamp))
	}

	polled, err := h.session.Poll(context.Background(), "cust-1", conv.ID, stored[3].Timestamp, 0)
	require.NoError(t, err)
	require.Len(t, polled, 2)
	assert.Equal(t, stored[4].ID, polled[0].ID)
}

func TestHandleInbound_PublishesEveryStoredMessage(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	conv := h.openConversation(t, "cust-1")

	_, err := h.session.HandleInbound(context.Background(), text(conv, "cust-1", "hello there"))
	require.NoError(t, err)

	// created event, inbound, reply
	assert.Equal(t, 3, h.publisher.Count("channel:conversation:"+conv.ID.String()))
}

func TestCurrentConversation_FetchOrCreate(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	ctx := context.Background()

	_, err := h.session.CurrentConversation(ctx, "", "en")
	assert.ErrorIs(t, err, support_errors.ErrAuthenticationRequired)

	first, err := h.session.CurrentConversation(ctx, "cust-1", "ar")
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageCodeAr, first.Language)
	assert.Empty(t, first.Messages)

	_, err = h.session.HandleInbound(ctx, text(first, "cust-1", "hello there"))
	require.NoError(t, err)

	again, err := h.session.CurrentConversation(ctx, "cust-1", "en")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, again.Messages, 2)

	_, err = h.agent.Close(ctx, "agent-1", first.ID)
	require.NoError(t, err)
	fresh, err := h.session.CurrentConversation(ctx, "cust-1", "en")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestRequestHuman_ExplicitIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{AutoAssign: true})
	ctx := context.Background()
	c1 := h.openConversation(t, "cust-1")
	c2 := h.openConversation(t, "cust-2")

	_, err := h.session.RequestHuman(ctx, "", c1.ID)
	assert.ErrorIs(t, err, support_errors.ErrAuthenticationRequired)

	r1, err := h.session.RequestHuman(ctx, "cust-1", c1.ID)
	require.NoError(t, err)
	assert.True(t, r1.Outcome.Queued)
	assert.Equal(t, 1, r1.Outcome.Position)

	r2, err := h.session.RequestHuman(ctx, "cust-2", c2.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, r2.Outcome.Position)

	again, err := h.session.RequestHuman(ctx, "cust-1", c1.ID)
	require.NoError(t, err)
	assert.True(t, again.Outcome.Queued)
	assert.Equal(t, 1, again.Outcome.Position)

	n, err := h.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRequestHuman_AssignsFreeAgentImmediately(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{AutoAssign: true})
	ctx := context.Background()
	require.NoError(t, h.agent.SetPresence(ctx, "agent-1", true, 0))
	conv := h.openConversation(t, "cust-1")

	res, err := h.session.RequestHuman(ctx, "cust-1", conv.ID)
	require.NoError(t, err)
	assert.True(t, res.Outcome.Assigned)
	assert.Equal(t, "agent-1", res.Outcome.AgentID)
	assert.Equal(t, domain.ConversationStatusOpen, res.Conversation.Status)
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.AgentConnected), res.Outcome.Message.Content)
	assert.Equal(t, 1, h.publisher.Count("channel:agents"))
}
