package store

import (
	"sort"
	"strings"
	"sync"
)

// DefaultAgentID is the reserved sentinel store for requests that carry no
// agent id. It is excluded from enumeration so background skills never run
// against it.
const DefaultAgentID = "__default__"

// Registry maps agent ids to their stores. Stores are created lazily and
// live for the process lifetime; there is no deletion.
type Registry struct {
	mu        sync.RWMutex
	agents    map[string]*AgentStore
	defaultTZ int
}

// NewRegistry creates an empty registry. New agents start with the given
// UTC offset.
func NewRegistry(defaultTimezoneOffset int) *Registry {
	return &Registry{
		agents:    make(map[string]*AgentStore),
		defaultTZ: defaultTimezoneOffset,
	}
}

// GetOrCreate returns the store for agentID, allocating it on first access.
// An empty or blank id maps to the reserved default store.
func (r *Registry) GetOrCreate(agentID string) *AgentStore {
	id := strings.TrimSpace(agentID)
	if id == "" {
		id = DefaultAgentID
	}

	r.mu.RLock()
	a, ok := r.agents[id]
	r.mu.RUnlock()
	if ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok {
		return a
	}
	a = newAgentStore(id, r.defaultTZ)
	r.agents[id] = a
	return a
}

// AgentIDs returns all agent ids except the reserved default, sorted.
func (r *Registry) AgentIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		if id == DefaultAgentID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of known agents, excluding the default sentinel.
func (r *Registry) Count() int {
	return len(r.AgentIDs())
}

// TotalConversations sums conversation list lengths across all agents,
// including the default sentinel.
func (r *Registry) TotalConversations() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, a := range r.agents {
		total += a.TurnCount()
	}
	return total
}

// TotalReflections sums reflection list lengths across all agents.
func (r *Registry) TotalReflections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, a := range r.agents {
		total += a.ReflectionCount()
	}
	return total
}
