package services

import (
	"context"
	"testing"

	"storefront-support/internal/domain"
	"storefront-support/internal/escalation"
	"storefront-support/internal/locale"
	support_errors "storefront-support/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentService_AcceptNextServesQueueInOrder(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	ctx := context.Background()
	c1 := h.openConversation(t, "cust-1")
	c2 := h.openConversation(t, "cust-2")
	_, err := h.session.RequestHuman(ctx, "cust-1", c1.ID)
	require.NoError(t, err)
	_, err = h.session.RequestHuman(ctx, "cust-2", c2.ID)
	require.NoError(t, err)

	got, err := h.agent.AcceptNext(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, got.ID)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, "agent-1", *got.AssignedAgentID)
	assert.Nil(t, got.QueuePosition)

	stored := h.stored(t, c1.ID)
	last := stored[len(stored)-1]
	assert.Equal(t, domain.SenderTypeSystem, last.SenderType)
	assert.Equal(t, locale.Text(domain.LanguageCodeEn, locale.AgentJoined), last.Content)

	waiting := h.reload(t, c2.ID)
	require.NotNil(t, waiting.QueuePosition)
	assert.Equal(t, 1, *waiting.QueuePosition)

	_, err = h.agent.AcceptNext(ctx, "agent-2")
	require.NoError(t, err)
	_, err = h.agent.AcceptNext(ctx, "agent-3")
	assert.ErrorIs(t, err, support_errors.ErrNotFound)
}

func TestAgentService_AcceptSpecificConversation(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	ctx := context.Background()
	conv := h.openConversation(t, "cust-1")
	_, err := h.session.RequestHuman(ctx, "cust-1", conv.ID)
	require.NoError(t, err)

	got, err := h.agent.Accept(ctx, "agent-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusOpen, got.Status)
	count := len(h.stored(t, conv.ID))

	again, err := h.agent.Accept(ctx, "agent-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.Len(t, h.stored(t, conv.ID), count, "re-accepting adds no message")

	_, err = h.agent.Accept(ctx, "agent-2", conv.ID)
	assert.ErrorIs(t, err, support_errors.ErrConflict)
}

func TestAgentService_ReplyRequiresAssignment(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	ctx := context.Background()
	conv := h.openConversation(t, "cust-1")

	_, err := h.agent.Reply(ctx, AgentReplyInput{AgentID: "agent-1", ConversationID: conv.ID, Content: "hi"})
	assert.ErrorIs(t, err, support_errors.ErrForbidden)

	_, err = h.agent.Accept(ctx, "agent-1", conv.ID)
	require.NoError(t, err)

	msg, err := h.agent.Reply(ctx, AgentReplyInput{AgentID: "agent-1", ConversationID: conv.ID, Content: "How can I help?"})
	require.NoError(t, err)
	assert.Equal(t, domain.SenderTypeAgent, msg.SenderType)
	require.NotNil(t, msg.SenderID)
	assert.Equal(t, "agent-1", *msg.SenderID)

	_, err = h.agent.Reply(ctx, AgentReplyInput{AgentID: "agent-2", ConversationID: conv.ID, Content: "me too"})
	assert.ErrorIs(t, err, support_errors.ErrForbidden)

	_, err = h.agent.Reply(ctx, AgentReplyInput{AgentID: "agent-1", ConversationID: conv.ID, Content: "  "})
	assert.ErrorIs(t, err, support_errors.ErrInvalidInput)
}

func TestAgentService_ResolveThenClose(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{AutoAssign: true})
	ctx := context.Background()
	require.NoError(t, h.agent.SetPresence(ctx, "agent-1", true, 1))
	conv := h.openConversation(t, "cust-1")
	_, err := h.session.RequestHuman(ctx, "cust-1", conv.ID)
	require.NoError(t, err)

	_, err = h.agent.Resolve(ctx, "agent-2", conv.ID)
	assert.ErrorIs(t, err, support_errors.ErrForbidden)

	resolved, err := h.agent.Resolve(ctx, "agent-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusResolved, resolved.Status)
	assert.Nil(t, resolved.AssignedAgentID)

	view, err := h.agent.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, view.Agents, 1)
	assert.Equal(t, 0, view.Agents[0].Load, "resolving frees the agent slot")

	closed, err := h.agent.Close(ctx, "agent-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusClosed, closed.Status)

	_, err = h.agent.Resolve(ctx, "agent-1", conv.ID)
	assert.ErrorIs(t, err, support_errors.ErrInvalidTransition)

	_, err = h.session.HandleInbound(ctx, text(conv, "cust-1", "hello there"))
	assert.ErrorIs(t, err, support_errors.ErrConversationClosed)
}

func TestAgentService_QueueSnapshot(t *testing.T) {
	h := newHarness(t, nil, escalation.Config{})
	ctx := context.Background()
	c1 := h.openConversation(t, "cust-1")
	c2 := h.openConversation(t, "cust-2")
	_, err := h.session.RequestHuman(ctx, "cust-1", c1.ID)
	require.NoError(t, err)
	_, err = h.session.RequestHuman(ctx, "cust-2", c2.ID)
	require.NoError(t, err)

	view, err := h.agent.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, c1.ID, view.Entries[0].ConversationID)
	assert.Equal(t, 2, view.Entries[1].Position)

	assert.ErrorIs(t, h.agent.SetPresence(ctx, "", true, 1), support_errors.ErrInvalidInput)
}
