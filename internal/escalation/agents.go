package escalation

import (
	"context"
	"sort"
	"sync"

	support_errors "storefront-support/pkg/errors"
)

// AgentPool tracks how many conversations each online agent is handling.
type AgentPool interface {
	// ClaimFreeAgent reserves one slot on the least loaded agent with spare capacity.
	ClaimFreeAgent(ctx context.Context) (agentID string, ok bool, err error)
	// Acquire reserves a slot for an agent who picked a conversation explicitly. Capacity is not enforced.
	Acquire(ctx context.Context, agentID string) error
	Release(ctx context.Context, agentID string) error
}

// AgentRegistry is an AgentPool agents can sign in to and out of.
type AgentRegistry interface {
	AgentPool
	SetOnline(ctx context.Context, agentID string, capacity int) error
	SetOffline(ctx context.Context, agentID string) error
	Agents(ctx context.Context) ([]AgentStatus, error)
}

type AgentStatus struct {
	AgentID  string `json:"agent_id"`
	Online   bool   `json:"online"`
	Capacity int    `json:"capacity"`
	Load     int    `json:"load"`
}

// NoAgents never has free capacity, so every escalation is queued.
type NoAgents struct{}

func (NoAgents) ClaimFreeAgent(ctx context.Context) (string, bool, error) { return "", false, nil }
func (NoAgents) Acquire(ctx context.Context, agentID string) error      { return nil }
func (NoAgents) Release(ctx context.Context, agentID string) error      { return nil }

type MemoryAgentPool struct {
	mu     sync.Mutex
	agents map[string]*AgentStatus
}

func NewMemoryAgentPool() *MemoryAgentPool {
	return &MemoryAgentPool{agents: make(map[string]*AgentStatus)}
}

func (p *MemoryAgentPool) SetOnline(ctx context.Context, agentID string, capacity int) error {
	if agentID == "" || capacity < 0 {
		return support_errors.ErrInvalidInput
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.agents[agentID]
	if !ok {
		a = &AgentStatus{AgentID: agentID}
		p.agents[agentID] = a
	}
	a.Online = true
	a.Capacity = capacity
	return nil
}

func (p *MemoryAgentPool) SetOffline(ctx context.Context, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.agents[agentID]; ok {
		a.Online = false
	}
	return nil
}

func (p *MemoryAgentPool) ClaimFreeAgent(ctx context.Context) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var best *AgentStatus
	for _, a := range p.agents {
		if !a.Online || a.Load >= a.Capacity {
			continue
		}
		if best == nil || a.Load < best.Load || (a.Load == best.Load && a.AgentID < best.AgentID) {
			best = a
		}
	}
	if best == nil {
		return "", false, nil
	}
	best.Load++
	return best.AgentID, true, nil
}

func (p *MemoryAgentPool) Acquire(ctx context.Context, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.agents[agentID]
	if !ok {
		a = &AgentStatus{AgentID: agentID}
		p.agents[agentID] = a
	}
	a.Load++
	return nil
}

func (p *MemoryAgentPool) Release(ctx context.Context, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.agents[agentID]; ok && a.Load > 0 {
		a.Load--
	}
	return nil
}

func (p *MemoryAgentPool) Agents(ctx context.Context) ([]AgentStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]AgentStatus, 0, len(p.agents))
	for _, a := range p.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}
