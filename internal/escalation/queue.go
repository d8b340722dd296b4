package escalation

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Queue is a FIFO of conversations waiting for a human. Ranks are 1-based and contiguous.
// Callers serialize mutations through the queue lock.
type Queue interface {
	// Enqueue appends id and returns its rank. An id already queued keeps its rank.
	Enqueue(ctx context.Context, id uuid.UUID) (int, error)
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
	Position(ctx context.Context, id uuid.UUID) (int, bool, error)
	Head(ctx context.Context) (uuid.UUID, bool, error)
	List(ctx context.Context) ([]uuid.UUID, error)
	Len(ctx context.Context) (int, error)
}

type MemoryQueue struct {
	mu    sync.Mutex
	items []uuid.UUID
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) indexOf(id uuid.UUID) int {
	for i, item := range q.items {
		if item == id {
			return i
		}
	}
	return -1
}

func (q *MemoryQueue) Enqueue(ctx context.Context, id uuid.UUID) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.indexOf(id); i >= 0 {
		return i + 1, nil
	}
	q.items = append(q.items, id)
	return len(q.items), nil
}

func (q *MemoryQueue) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexOf(id)
	if i < 0 {
		return false, nil
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return true, nil
}

func (q *MemoryQueue) Position(ctx context.Context, id uuid.UUID) (int, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexOf(id)
	if i < 0 {
		return 0, false, nil
	}
	return i + 1, true, nil
}

func (q *MemoryQueue) Head(ctx context.Context) (uuid.UUID, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return uuid.Nil, false, nil
	}
	return q.items[0], true, nil
}

func (q *MemoryQueue) List(ctx context.Context) ([]uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uuid.UUID, len(q.items))
	copy(out, q.items)
	return out, nil
}

func (q *MemoryQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}
