package escalation

import (
	"context"
	"testing"
	"time"

	"storefront-support/internal/availability"
	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/lock"
	"storefront-support/internal/repository"
	support_errors "storefront-support/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo    *repository.MemoryConversationRepository
	queue   *MemoryQueue
	agents  *MemoryAgentPool
	manager *Manager
}

func checkerAt(t *testing.T, at time.Time) *availability.Checker {
	t.Helper()
	cal, err := availability.DefaultCalendar()
	require.NoError(t, err)
	return availability.NewChecker(cal, func() time.Time { return at })
}

func onDuty(t *testing.T) *availability.Checker {
	loc, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)
	return checkerAt(t, time.Date(2024, 1, 7, 10, 0, 0, 0, loc))
}

func newFixture(t *testing.T, checker *availability.Checker, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		repo:   repository.NewMemoryConversationRepository(),
		queue:  NewMemoryQueue(),
		agents: NewMemoryAgentPool(),
	}
	f.manager = NewManager(f.repo, f.queue, f.agents, lock.NewKeyedMutex(), checker, cfg, nil)
	return f
}

func (f *fixture) conversation(t *testing.T) *conversation.Conversation {
	t.Helper()
	customer := "customer-" + uuid.NewString()
	c := &conversation.Conversation{
		ID:         uuid.New(),
		CustomerID: &customer,
		Status:     domain.ConversationStatusOpen,
		Mode:       domain.ConversationModeAI,
		Language:   domain.LanguageCodeEn,
	}
	require.NoError(t, f.repo.Create(context.Background(), c))
	return c
}

func (f *fixture) position(t *testing.T, id uuid.UUID) *int {
	t.Helper()
	c, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c.QueuePosition
}

func TestRequestHuman_QueuesFIFOWithContiguousRanks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{})

	c1, c2, c3 := f.conversation(t), f.conversation(t), f.conversation(t)
	for i, c := range []*conversation.Conversation{c1, c2, c3} {
		out, err := f.manager.RequestHuman(ctx, c)
		require.NoError(t, err)
		assert.True(t, out.Queued)
		assert.Equal(t, i+1, out.Position)
		assert.Equal(t, domain.SenderTypeSystem, out.Message.SenderType)
		assert.Equal(t, domain.ConversationModeHuman, c.Mode)
		assert.Equal(t, domain.ConversationStatusPending, c.Status)
	}

	_, err := f.manager.Release(ctx, c1, domain.ConversationStatusClosed)
	require.NoError(t, err)

	assert.Nil(t, f.position(t, c1.ID))
	assert.Equal(t, 1, *f.position(t, c2.ID))
	assert.Equal(t, 2, *f.position(t, c3.ID))

	snapshot, err := f.manager.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []QueueEntry{{ConversationID: c2.ID, Position: 1}, {ConversationID: c3.ID, Position: 2}}, snapshot)
}

type recordingNotifier struct {
	lengths []int
}

func (n *recordingNotifier) PublishQueue(ctx context.Context, length int) error {
	n.lengths = append(n.lengths, length)
	return nil
}

func TestQueueChanges_AreAnnounced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{})
	notifier := &recordingNotifier{}
	f.manager.NotifyQueueChanges(notifier)

	c1, c2 := f.conversation(t), f.conversation(t)
	_, err := f.manager.RequestHuman(ctx, c1)
	require.NoError(t, err)
	_, err = f.manager.RequestHuman(ctx, c2)
	require.NoError(t, err)
	_, err = f.manager.RequestHuman(ctx, c2)
	require.NoError(t, err)
	_, err = f.manager.Assign(ctx, c1, "agent-1")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 1}, notifier.lengths, "re-requesting does not change the queue")
}

func TestRequestHuman_Anonymous(t *testing.T) {
	f := newFixture(t, onDuty(t), Config{})
	c := f.conversation(t)
	c.CustomerID = nil

	_, err := f.manager.RequestHuman(context.Background(), c)
	assert.ErrorIs(t, err, support_errors.ErrAuthenticationRequired)
	assert.Equal(t, domain.ConversationModeAI, c.Mode)
	n, _ := f.queue.Len(context.Background())
	assert.Zero(t, n)
}

func TestRequestHuman_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{})
	other := f.conversation(t)
	_, err := f.manager.RequestHuman(ctx, other)
	require.NoError(t, err)

	c := f.conversation(t)
	first, err := f.manager.RequestHuman(ctx, c)
	require.NoError(t, err)
	second, err := f.manager.RequestHuman(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Position)
	assert.Equal(t, 2, second.Position)
	n, _ := f.queue.Len(ctx)
	assert.Equal(t, 2, n)
}

func TestRequestHuman_QueueFull(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{MaxQueueLength: 1})

	_, err := f.manager.RequestHuman(ctx, f.conversation(t))
	require.NoError(t, err)

	c := f.conversation(t)
	out, err := f.manager.RequestHuman(ctx, c)
	require.NoError(t, err)
	assert.True(t, out.QueueFull)
	assert.False(t, out.Queued)
	assert.Contains(t, out.Message.Content, "busy")
	assert.Equal(t, domain.ConversationModeAI, c.Mode)
}

func TestRequestHuman_AutoAssignsFreeAgent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{AutoAssign: true})
	require.NoError(t, f.agents.SetOnline(ctx, "agent-1", 1))

	c := f.conversation(t)
	out, err := f.manager.RequestHuman(ctx, c)
	require.NoError(t, err)
	assert.True(t, out.Assigned)
	assert.Equal(t, "agent-1", out.AgentID)
	assert.Equal(t, domain.ConversationStatusOpen, c.Status)
	require.NotNil(t, c.AssignedAgentID)

	// agent is now at capacity
	next := f.conversation(t)
	out, err = f.manager.RequestHuman(ctx, next)
	require.NoError(t, err)
	assert.True(t, out.Queued)

	// resolving frees the slot
	_, err = f.manager.Release(ctx, c, domain.ConversationStatusResolved)
	require.NoError(t, err)
	agents, _ := f.agents.Agents(ctx)
	assert.Equal(t, 0, agents[0].Load)
}

func TestRequestHuman_OffDutyMentionsNextOpening(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)
	f := newFixture(t, checkerAt(t, time.Date(2024, 1, 5, 12, 0, 0, 0, loc)), Config{})

	out, err := f.manager.RequestHuman(context.Background(), f.conversation(t))
	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Contains(t, out.Message.Content, "Sat 06 Jan 09:00")
}

func TestAssign_RemovesFromQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{})
	c1, c2 := f.conversation(t), f.conversation(t)
	_, _ = f.manager.RequestHuman(ctx, c1)
	_, _ = f.manager.RequestHuman(ctx, c2)

	out, err := f.manager.Assign(ctx, c2, "agent-7")
	require.NoError(t, err)
	assert.True(t, out.Assigned)
	assert.True(t, out.HasMessage())
	assert.Nil(t, c2.QueuePosition)
	assert.Equal(t, 1, *f.position(t, c1.ID))

	again, err := f.manager.Assign(ctx, c2, "agent-7")
	require.NoError(t, err)
	assert.False(t, again.HasMessage())

	_, err = f.manager.Assign(ctx, c2, "agent-8")
	assert.ErrorIs(t, err, support_errors.ErrConflict)
}

func TestAcceptNext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{})
	c1, c2 := f.conversation(t), f.conversation(t)
	_, _ = f.manager.RequestHuman(ctx, c1)
	_, _ = f.manager.RequestHuman(ctx, c2)

	committed := 0
	conv, out, err := f.manager.AcceptNext(ctx, "agent-1", func(ctx context.Context, c *conversation.Conversation, o Outcome) error {
		committed++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, c1.ID, conv.ID)
	assert.Equal(t, "agent-1", out.AgentID)
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, *f.position(t, c2.ID))

	_, _, err = f.manager.AcceptNext(ctx, "agent-2", nil)
	require.NoError(t, err)
	_, _, err = f.manager.AcceptNext(ctx, "agent-3", nil)
	assert.ErrorIs(t, err, support_errors.ErrNotFound)
}

func TestAcceptNext_SkipsStaleEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{})
	_, err := f.queue.Enqueue(ctx, uuid.New())
	require.NoError(t, err)
	c := f.conversation(t)
	_, _ = f.manager.RequestHuman(ctx, c)

	conv, _, err := f.manager.AcceptNext(ctx, "agent-1", nil)
	require.NoError(t, err)
	assert.Equal(t, c.ID, conv.ID)
}

func TestRelease_Transitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, onDuty(t), Config{})
	c := f.conversation(t)

	out, err := f.manager.Release(ctx, c, domain.ConversationStatusResolved)
	require.NoError(t, err)
	assert.True(t, out.HasMessage())
	assert.Equal(t, domain.ConversationModeAI, c.Mode)

	out, err = f.manager.Release(ctx, c, domain.ConversationStatusResolved)
	require.NoError(t, err)
	assert.False(t, out.HasMessage())

	_, err = f.manager.Release(ctx, c, domain.ConversationStatusClosed)
	require.NoError(t, err)

	_, err = f.manager.Release(ctx, c, domain.ConversationStatusResolved)
	assert.ErrorIs(t, err, support_errors.ErrInvalidTransition)

	_, err = f.manager.Release(ctx, c, domain.ConversationStatusOpen)
	assert.ErrorIs(t, err, support_errors.ErrInvalidTransition)

	_, err = f.manager.RequestHuman(ctx, c)
	assert.ErrorIs(t, err, support_errors.ErrConversationClosed)
}
