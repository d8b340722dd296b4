package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	support_errors "storefront-support/pkg/errors"

	"github.com/google/uuid"
)

// MemoryConversationRepository is a process-local ConversationRepository for tests and single-node demos.
type MemoryConversationRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]conversation.Conversation
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{items: make(map[uuid.UUID]conversation.Conversation)}
}

func (r *MemoryConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; ok {
		return support_errors.ErrAlreadyExists
	}
	stored := *c
	stored.Messages = nil
	r.items[c.ID] = stored
	return nil
}

func (r *MemoryConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return conversation.Conversation{}, support_errors.ErrNotFound
	}
	return c, nil
}

func (r *MemoryConversationRepository) FindActiveByCustomer(ctx context.Context, customerID string) (conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		found conversation.Conversation
		ok    bool
	)
	for _, c := range r.items {
		if c.CustomerID == nil || *c.CustomerID != customerID || c.Status == domain.ConversationStatusClosed {
			continue
		}
		if !ok || c.UpdatedAt.After(found.UpdatedAt) {
			found, ok = c, true
		}
	}
	if !ok {
		return conversation.Conversation{}, support_errors.ErrNotFound
	}
	return found, nil
}

func (r *MemoryConversationRepository) Update(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[c.ID]
	if !ok {
		return support_errors.ErrNotFound
	}
	if stored.Version != c.Version {
		return support_errors.ErrConflict
	}
	stored.Status = c.Status
	stored.Mode = c.Mode
	stored.Language = c.Language
	stored.AssignedAgentID = c.AssignedAgentID
	stored.UpdatedAt = c.UpdatedAt
	stored.Version = c.Version + 1
	r.items[c.ID] = stored
	c.Version++
	return nil
}

func (r *MemoryConversationRepository) SetQueuePosition(ctx context.Context, id uuid.UUID, position *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return support_errors.ErrNotFound
	}
	if position != nil {
		p := *position
		position = &p
	}
	stored.QueuePosition = position
	r.items[id] = stored
	return nil
}

// MemoryMessageRepository keeps messages per conversation ordered by timestamp.
type MemoryMessageRepository struct {
	mu     sync.RWMutex
	byConv map[uuid.UUID][]message.Message
	ids    map[uuid.UUID]uuid.UUID // message id to conversation id
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		byConv: make(map[uuid.UUID][]message.Message),
		ids:    make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *MemoryMessageRepository) Append(ctx context.Context, m *message.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendLocked(*m), nil
}

func (r *MemoryMessageRepository) appendLocked(m message.Message) bool {
	if _, dup := r.ids[m.ID]; dup {
		return false
	}
	r.ids[m.ID] = m.ConversationID
	list := append(r.byConv[m.ConversationID], m)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	r.byConv[m.ConversationID] = list
	return true
}

func (r *MemoryMessageRepository) AppendBatch(ctx context.Context, msgs []message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.appendLocked(m)
	}
	return nil
}

func (r *MemoryMessageRepository) Get(ctx context.Context, id uuid.UUID) (message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	convID, ok := r.ids[id]
	if !ok {
		return message.Message{}, support_errors.ErrNotFound
	}
	for _, m := range r.byConv[convID] {
		if m.ID == id {
			return m, nil
		}
	}
	return message.Message{}, support_errors.ErrNotFound
}

func (r *MemoryMessageRepository) ListSince(ctx context.Context, conversationID uuid.UUID, since time.Time, limit int) ([]message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]message.Message, 0)
	for _, m := range r.byConv[conversationID] {
		if !since.IsZero() && !m.Timestamp.After(since) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryMessageRepository) Recent(ctx context.Context, conversationID uuid.UUID, n int) ([]message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byConv[conversationID]
	if n > 0 && len(list) > n {
		list = list[len(list)-n:]
	}
	out := make([]message.Message, len(list))
	copy(out, list)
	return out, nil
}

func (r *MemoryMessageRepository) LatestTimestamp(ctx context.Context, conversationID uuid.UUID) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byConv[conversationID]
	if len(list) == 0 {
		return time.Time{}, nil
	}
	return list[len(list)-1].Timestamp, nil
}
