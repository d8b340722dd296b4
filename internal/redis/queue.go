package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"storefront-support/internal/escalation"
)

const (
	queueKey    = "support:queue"     // Sorted set of conversation ids scored by arrival
	queueSeqKey = "support:queue:seq" // Monotonic arrival counter
)

// Queue is the shared human-handoff FIFO. Scores come from a counter so
// ranks stay stable when two conversations arrive in the same millisecond.
type Queue struct {
	client *goredis.Client
}

var _ escalation.Queue = (*Queue)(nil)

func NewQueue(client *goredis.Client) *Queue {
	return &Queue{client: client}
}

var enqueueScript = goredis.NewScript(`
	local rank = redis.call('ZRANK', KEYS[1], ARGV[1])
	if rank then
		return rank + 1
	end
	local seq = redis.call('INCR', KEYS[2])
	redis.call('ZADD', KEYS[1], seq, ARGV[1])
	return redis.call('ZRANK', KEYS[1], ARGV[1]) + 1
`)

func (q *Queue) Enqueue(ctx context.Context, id uuid.UUID) (int, error) {
	rank, err := enqueueScript.Run(ctx, q.client, []string{queueKey, queueSeqKey}, id.String()).Int()
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", id, err)
	}
	return rank, nil
}

func (q *Queue) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := q.client.ZRem(ctx, queueKey, id.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *Queue) Position(ctx context.Context, id uuid.UUID) (int, bool, error) {
	rank, err := q.client.ZRank(ctx, queueKey, id.String()).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int(rank) + 1, true, nil
}

func (q *Queue) Head(ctx context.Context) (uuid.UUID, bool, error) {
	ids, err := q.List(ctx)
	if err != nil || len(ids) == 0 {
		return uuid.Nil, false, err
	}
	return ids[0], true, nil
}

// List returns the queued ids in arrival order. Members that are not valid ids are dropped.
func (q *Queue) List(ctx context.Context) ([]uuid.UUID, error) {
	members, err := q.client.ZRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			q.client.ZRem(ctx, queueKey, m)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	n, err := q.client.ZCard(ctx, queueKey).Result()
	return int(n), err
}
