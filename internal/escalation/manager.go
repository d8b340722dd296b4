package escalation

import (
	"context"
	"errors"
	"fmt"

	"storefront-support/internal/availability"
	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/lock"
	"storefront-support/internal/locale"
	"storefront-support/internal/metrics"
	"storefront-support/internal/repository"
	support_errors "storefront-support/pkg/errors"
	"storefront-support/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const acceptNextAttempts = 3

type Config struct {
	// MaxQueueLength of zero means unbounded.
	MaxQueueLength int
	AutoAssign     bool
}

// Outcome describes where an escalation left the conversation. Message is the SYSTEM
// notice to append; it is empty when nothing changed.
type Outcome struct {
	Queued    bool
	Position  int
	Assigned  bool
	AgentID   string
	QueueFull bool
	Message   message.Message
}

func (o Outcome) HasMessage() bool {
	return o.Message.ID != uuid.Nil
}

type QueueEntry struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Position       int       `json:"position"`
}

// QueueNotifier is told the new queue length after every change.
type QueueNotifier interface {
	PublishQueue(ctx context.Context, length int) error
}

// Manager moves conversations between AI, queued and assigned states.
// Methods taking a *Conversation expect the caller to hold that conversation's lock.
type Manager struct {
	conversations repository.ConversationRepository
	queue         Queue
	agents        AgentPool
	locker        lock.Locker
	checker       *availability.Checker
	cfg           Config
	metrics       *metrics.Metrics
	notifier      QueueNotifier
}

func NewManager(
	conversations repository.ConversationRepository,
	queue Queue,
	agents AgentPool,
	locker lock.Locker,
	checker *availability.Checker,
	cfg Config,
	m *metrics.Metrics,
) *Manager {
	if agents == nil {
		agents = NoAgents{}
	}
	return &Manager{
		conversations: conversations,
		queue:         queue,
		agents:        agents,
		locker:        locker,
		checker:       checker,
		cfg:           cfg,
		metrics:       m,
	}
}

// NotifyQueueChanges registers n to hear about queue length changes.
func (m *Manager) NotifyQueueChanges(n QueueNotifier) {
	m.notifier = n
}

func (m *Manager) RequestHuman(ctx context.Context, conv *conversation.Conversation) (Outcome, error) {
	if conv.CustomerID == nil {
		return Outcome{}, support_errors.ErrAuthenticationRequired
	}
	if conv.IsClosed() {
		return Outcome{}, support_errors.ErrConversationClosed
	}

	release, err := m.locker.Acquire(ctx, lock.QueueKey)
	if err != nil {
		return Outcome{}, fmt.Errorf("acquire queue lock: %w", err)
	}
	defer release()

	if conv.Mode == domain.ConversationModeHuman {
		if conv.AssignedAgentID != nil {
			return Outcome{
				Assigned: true,
				AgentID:  *conv.AssignedAgentID,
				Message:  m.systemMessage(conv, locale.Text(conv.Language, locale.AgentConnected)),
			}, nil
		}
		pos, ok, err := m.queue.Position(ctx, conv.ID)
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			return Outcome{Queued: true, Position: pos, Message: m.queuedMessage(conv, pos)}, nil
		}
	}

	if m.cfg.AutoAssign {
		agentID, ok, err := m.agents.ClaimFreeAgent(ctx)
		if err != nil {
			logger.GetGlobalLogger().WarnCtx(ctx, "agent pool unavailable, queueing instead", zap.Error(err))
		}
		if err == nil && ok {
			prev := *conv
			conv.Mode = domain.ConversationModeHuman
			conv.Status = domain.ConversationStatusOpen
			conv.AssignedAgentID = &agentID
			conv.UpdatedAt = m.checker.Now().UTC()
			if err := m.conversations.Update(ctx, conv); err != nil {
				*conv = prev
				m.releaseAgent(ctx, agentID)
				return Outcome{}, err
			}
			m.metrics.Escalation("assigned")
			return Outcome{
				Assigned: true,
				AgentID:  agentID,
				Message:  m.systemMessage(conv, locale.Text(conv.Language, locale.AgentConnected)),
			}, nil
		}
	}

	n, err := m.queue.Len(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if m.cfg.MaxQueueLength > 0 && n >= m.cfg.MaxQueueLength {
		m.metrics.Escalation("queue_full")
		return Outcome{
			QueueFull: true,
			Message:   m.systemMessage(conv, locale.Text(conv.Language, locale.QueueFull)),
		}, nil
	}

	prev := *conv
	conv.Mode = domain.ConversationModeHuman
	conv.Status = domain.ConversationStatusPending
	conv.AssignedAgentID = nil
	conv.UpdatedAt = m.checker.Now().UTC()
	if err := m.conversations.Update(ctx, conv); err != nil {
		*conv = prev
		return Outcome{}, err
	}

	pos, err := m.queue.Enqueue(ctx, conv.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("enqueue conversation: %w", err)
	}
	if err := m.conversations.SetQueuePosition(ctx, conv.ID, &pos); err != nil {
		return Outcome{}, err
	}
	conv.QueuePosition = &pos
	m.metrics.Escalation("queued")
	m.queueChanged(ctx, n+1)

	return Outcome{Queued: true, Position: pos, Message: m.queuedMessage(conv, pos)}, nil
}

// Assign hands the conversation to agentID, taking it out of the queue if it was waiting.
func (m *Manager) Assign(ctx context.Context, conv *conversation.Conversation, agentID string) (Outcome, error) {
	if agentID == "" {
		return Outcome{}, support_errors.ErrInvalidInput
	}
	if conv.IsClosed() {
		return Outcome{}, support_errors.ErrConversationClosed
	}
	if conv.AssignedAgentID != nil {
		if *conv.AssignedAgentID == agentID {
			return Outcome{Assigned: true, AgentID: agentID}, nil
		}
		return Outcome{}, support_errors.ErrConflict
	}

	release, err := m.locker.Acquire(ctx, lock.QueueKey)
	if err != nil {
		return Outcome{}, fmt.Errorf("acquire queue lock: %w", err)
	}
	defer release()

	if err := m.agents.Acquire(ctx, agentID); err != nil {
		return Outcome{}, err
	}
	prev := *conv
	conv.Mode = domain.ConversationModeHuman
	conv.Status = domain.ConversationStatusOpen
	conv.AssignedAgentID = &agentID
	conv.UpdatedAt = m.checker.Now().UTC()
	if err := m.conversations.Update(ctx, conv); err != nil {
		*conv = prev
		m.releaseAgent(ctx, agentID)
		return Outcome{}, err
	}

	if err := m.dequeueLocked(ctx, conv); err != nil {
		return Outcome{}, err
	}
	m.metrics.Escalation("accepted")
	return Outcome{
		Assigned: true,
		AgentID:  agentID,
		Message:  m.systemMessage(conv, locale.Text(conv.Language, locale.AgentJoined)),
	}, nil
}

// CommitFunc persists the outcome of AcceptNext while the conversation lock is still held.
type CommitFunc func(ctx context.Context, conv *conversation.Conversation, outcome Outcome) error

// AcceptNext assigns the head of the queue to agentID. It returns ErrNotFound when the queue is empty.
func (m *Manager) AcceptNext(ctx context.Context, agentID string, commit CommitFunc) (conversation.Conversation, Outcome, error) {
	for attempt := 0; attempt < acceptNextAttempts; attempt++ {
		id, ok, err := m.queue.Head(ctx)
		if err != nil {
			return conversation.Conversation{}, Outcome{}, err
		}
		if !ok {
			return conversation.Conversation{}, Outcome{}, support_errors.ErrNotFound
		}

		conv, outcome, err := m.acceptQueued(ctx, id, agentID, commit)
		if errors.Is(err, errNotQueued) {
			continue
		}
		return conv, outcome, err
	}
	return conversation.Conversation{}, Outcome{}, support_errors.ErrConflict
}

var errNotQueued = errors.New("conversation left the queue")

func (m *Manager) acceptQueued(ctx context.Context, id uuid.UUID, agentID string, commit CommitFunc) (conversation.Conversation, Outcome, error) {
	release, err := m.locker.Acquire(ctx, lock.ConversationKey(id.String()))
	if err != nil {
		return conversation.Conversation{}, Outcome{}, err
	}
	defer release()

	conv, err := m.conversations.GetByID(ctx, id)
	if errors.Is(err, support_errors.ErrNotFound) {
		m.dropStale(ctx, id)
		return conversation.Conversation{}, Outcome{}, errNotQueued
	}
	if err != nil {
		return conversation.Conversation{}, Outcome{}, err
	}
	if _, queued, err := m.queue.Position(ctx, id); err != nil {
		return conversation.Conversation{}, Outcome{}, err
	} else if !queued || conv.AssignedAgentID != nil || conv.IsClosed() {
		if queued {
			m.dropStale(ctx, id)
		}
		return conversation.Conversation{}, Outcome{}, errNotQueued
	}

	outcome, err := m.Assign(ctx, &conv, agentID)
	if err != nil {
		return conversation.Conversation{}, Outcome{}, err
	}
	if commit != nil {
		if err := commit(ctx, &conv, outcome); err != nil {
			return conv, outcome, err
		}
	}
	return conv, outcome, nil
}

// Release moves the conversation to RESOLVED or CLOSED, freeing its agent slot and queue entry.
// Mode is left untouched.
func (m *Manager) Release(ctx context.Context, conv *conversation.Conversation, target domain.ConversationStatus) (Outcome, error) {
	var key locale.Key
	switch target {
	case domain.ConversationStatusResolved:
		key = locale.ConversationResolved
	case domain.ConversationStatusClosed:
		key = locale.ConversationClosed
	default:
		return Outcome{}, support_errors.ErrInvalidTransition
	}
	if conv.Status == target {
		return Outcome{}, nil
	}
	if conv.IsClosed() {
		return Outcome{}, support_errors.ErrInvalidTransition
	}

	release, err := m.locker.Acquire(ctx, lock.QueueKey)
	if err != nil {
		return Outcome{}, fmt.Errorf("acquire queue lock: %w", err)
	}
	defer release()

	prev := *conv
	agentID := conv.AssignedAgentID
	conv.Status = target
	conv.AssignedAgentID = nil
	conv.UpdatedAt = m.checker.Now().UTC()
	if err := m.conversations.Update(ctx, conv); err != nil {
		*conv = prev
		return Outcome{}, err
	}
	if agentID != nil {
		m.releaseAgent(ctx, *agentID)
	}
	if err := m.dequeueLocked(ctx, conv); err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: m.systemMessage(conv, locale.Text(conv.Language, key))}, nil
}

// Snapshot lists the queue in order.
func (m *Manager) Snapshot(ctx context.Context) ([]QueueEntry, error) {
	ids, err := m.queue.List(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]QueueEntry, 0, len(ids))
	for i, id := range ids {
		entries = append(entries, QueueEntry{ConversationID: id, Position: i + 1})
	}
	return entries, nil
}

// dequeueLocked removes conv from the queue and rewrites the ranks behind it. Requires the queue lock.
func (m *Manager) dequeueLocked(ctx context.Context, conv *conversation.Conversation) error {
	removed, err := m.queue.Remove(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("dequeue conversation: %w", err)
	}
	if conv.QueuePosition != nil || removed {
		if err := m.conversations.SetQueuePosition(ctx, conv.ID, nil); err != nil {
			return err
		}
		conv.QueuePosition = nil
	}
	if removed {
		return m.rerankLocked(ctx)
	}
	return nil
}

func (m *Manager) rerankLocked(ctx context.Context) error {
	ids, err := m.queue.List(ctx)
	if err != nil {
		return err
	}
	for i, id := range ids {
		pos := i + 1
		if err := m.conversations.SetQueuePosition(ctx, id, &pos); err != nil && !errors.Is(err, support_errors.ErrNotFound) {
			return fmt.Errorf("write back queue position: %w", err)
		}
	}
	m.queueChanged(ctx, len(ids))
	return nil
}

func (m *Manager) queueChanged(ctx context.Context, length int) {
	m.metrics.SetQueueLength(length)
	if m.notifier == nil {
		return
	}
	if err := m.notifier.PublishQueue(ctx, length); err != nil {
		logger.GetGlobalLogger().WarnCtx(ctx, "push queue length failed", zap.Int("length", length), zap.Error(err))
	}
}

func (m *Manager) dropStale(ctx context.Context, id uuid.UUID) {
	release, err := m.locker.Acquire(ctx, lock.QueueKey)
	if err != nil {
		return
	}
	defer release()
	if removed, err := m.queue.Remove(ctx, id); err == nil && removed {
		if err := m.rerankLocked(ctx); err != nil {
			logger.GetGlobalLogger().WarnCtx(ctx, "rerank after stale entry failed", zap.Error(err))
		}
	}
}

func (m *Manager) releaseAgent(ctx context.Context, agentID string) {
	if err := m.agents.Release(ctx, agentID); err != nil {
		logger.GetGlobalLogger().WarnCtx(ctx, "release agent slot failed",
			zap.String("agent_id", agentID), zap.Error(err))
	}
}

func (m *Manager) queuedMessage(conv *conversation.Conversation, pos int) message.Message {
	if !m.checker.IsAvailable() {
		if next, ok := m.checker.NextOpening(); ok {
			when := next.In(m.checker.Location()).Format("Mon 02 Jan 15:04 MST")
			return m.systemMessage(conv, locale.Text(conv.Language, locale.QueuedOffDuty, pos, when))
		}
	}
	return m.systemMessage(conv, locale.Text(conv.Language, locale.QueuedPosition, pos))
}

func (m *Manager) systemMessage(conv *conversation.Conversation, text string) message.Message {
	return message.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Content:        text,
		Type:           domain.MessageTypeText,
		SenderType:     domain.SenderTypeSystem,
		Timestamp:      m.checker.Now().UTC(),
	}
}
