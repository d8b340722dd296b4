package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront-support/internal/escalation"
	support_errors "storefront-support/pkg/errors"
)

// AgentPresence tracks which support agents are signed in and how many
// conversations each one is handling.
type AgentPresence struct {
	client    *goredis.Client
	publisher *Publisher
}

// Redis key prefixes for agent presence
const (
	agentKeyPrefix    = "support:agent:"           // Hash {capacity, load} per agent
	agentKnownSet     = "support:agents"           // Every agent ever seen
	agentOnlineSet    = "support:agents:online"    // Agents accepting conversations
	agentHeartbeatKey = "support:agents:heartbeat" // Sorted set of last heartbeat per agent
	AgentsChannel     = "channel:agents"
)

var _ escalation.AgentRegistry = (*AgentPresence)(nil)

func NewAgentPresence(client *goredis.Client, publisher *Publisher) *AgentPresence {
	return &AgentPresence{client: client, publisher: publisher}
}

// SetOnline marks an agent as available with the given number of concurrent slots
func (p *AgentPresence) SetOnline(ctx context.Context, agentID string, capacity int) error {
	if agentID == "" || capacity < 0 {
		return support_errors.ErrInvalidInput
	}
	now := time.Now()

	pipe := p.client.TxPipeline()
	key := agentKeyPrefix + agentID
	pipe.HSet(ctx, key, "capacity", capacity)
	pipe.HSetNX(ctx, key, "load", 0)
	pipe.SAdd(ctx, agentKnownSet, agentID)
	pipe.SAdd(ctx, agentOnlineSet, agentID)
	pipe.ZAdd(ctx, agentHeartbeatKey, goredis.Z{Score: float64(now.Unix()), Member: agentID})
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	return p.publishPresenceEvent(ctx, agentID, true, now)
}

// SetOffline stops new conversations going to the agent. Conversations already assigned keep their slot.
func (p *AgentPresence) SetOffline(ctx context.Context, agentID string) error {
	now := time.Now()

	pipe := p.client.TxPipeline()
	pipe.SRem(ctx, agentOnlineSet, agentID)
	pipe.ZRem(ctx, agentHeartbeatKey, agentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	return p.publishPresenceEvent(ctx, agentID, false, now)
}

// Heartbeat refreshes the agent's last seen timestamp
func (p *AgentPresence) Heartbeat(ctx context.Context, agentID string) error {
	return p.client.ZAdd(ctx, agentHeartbeatKey, goredis.Z{
		Score:  float64(time.Now().Unix()),
		Member: agentID,
	}).Err()
}

// claimScript picks the online agent with the most spare capacity, lowest load first then lowest id.
var claimScript = goredis.NewScript(`
	local agents = redis.call('SMEMBERS', KEYS[1])
	local prefix = ARGV[1]
	local best = false
	local bestLoad = 0
	for _, id in ipairs(agents) do
		local data = redis.call('HMGET', prefix .. id, 'capacity', 'load')
		local capacity = tonumber(data[1]) or 0
		local load = tonumber(data[2]) or 0
		if load < capacity then
			if best == false or load < bestLoad or (load == bestLoad and id < best) then
				best = id
				bestLoad = load
			end
		end
	end
	if best == false then
		return false
	end
	redis.call('HINCRBY', prefix .. best, 'load', 1)
	return best
`)

var releaseScript = goredis.NewScript(`
	local load = tonumber(redis.call('HGET', KEYS[1], 'load') or '0')
	if load > 0 then
		return redis.call('HINCRBY', KEYS[1], 'load', -1)
	end
	return 0
`)

func (p *AgentPresence) ClaimFreeAgent(ctx context.Context) (string, bool, error) {
	id, err := claimScript.Run(ctx, p.client, []string{agentOnlineSet}, agentKeyPrefix).Text()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("claim agent: %w", err)
	}
	return id, true, nil
}

func (p *AgentPresence) Acquire(ctx context.Context, agentID string) error {
	pipe := p.client.TxPipeline()
	pipe.SAdd(ctx, agentKnownSet, agentID)
	pipe.HIncrBy(ctx, agentKeyPrefix+agentID, "load", 1)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *AgentPresence) Release(ctx context.Context, agentID string) error {
	return releaseScript.Run(ctx, p.client, []string{agentKeyPrefix + agentID}).Err()
}

// Agents lists every known agent ordered by id
func (p *AgentPresence) Agents(ctx context.Context) ([]escalation.AgentStatus, error) {
	ids, err := p.client.SMembers(ctx, agentKnownSet).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	pipe := p.client.Pipeline()
	hashes := make([]*goredis.SliceCmd, len(ids))
	online := make([]*goredis.BoolCmd, len(ids))
	for i, id := range ids {
		hashes[i] = pipe.HMGet(ctx, agentKeyPrefix+id, "capacity", "load")
		online[i] = pipe.SIsMember(ctx, agentOnlineSet, id)
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]escalation.AgentStatus, 0, len(ids))
	for i, id := range ids {
		vals := hashes[i].Val()
		out = append(out, escalation.AgentStatus{
			AgentID:  id,
			Online:   online[i].Val(),
			Capacity: atoiField(vals, 0),
			Load:     atoiField(vals, 1),
		})
	}
	return out, nil
}

// CleanupStale signs out agents whose last heartbeat is older than maxAge
func (p *AgentPresence) CleanupStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	threshold := time.Now().Add(-maxAge).Unix()

	stale, err := p.client.ZRangeByScore(ctx, agentHeartbeatKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(threshold, 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	for _, agentID := range stale {
		if err := p.SetOffline(ctx, agentID); err != nil {
			return 0, err
		}
	}
	return int64(len(stale)), nil
}

// publishPresenceEvent publishes an agent presence change to Redis pub/sub
func (p *AgentPresence) publishPresenceEvent(ctx context.Context, agentID string, isOnline bool, timestamp time.Time) error {
	if p.publisher == nil {
		return nil
	}

	eventType := "agent.offline"
	if isOnline {
		eventType = "agent.online"
	}

	event := map[string]interface{}{
		"event_type":     eventType,
		"aggregate_type": "agent",
		"aggregate_id":   agentID,
		"occurred_at":    timestamp.UTC().Format(time.RFC3339),
		"payload": map[string]interface{}{
			"agent_id":  agentID,
			"is_online": isOnline,
		},
	}

	return p.publisher.PublishJSON(ctx, AgentsChannel, event)
}

func atoiField(vals []interface{}, i int) int {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	s, ok := vals[i].(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
