package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outbox record kinds.
const (
	OutboxConversation = "conversation"
	OutboxReflection   = "reflection"
	OutboxProactive    = "proactive"
)

// OutboxEntry is one record awaiting mirroring to the external store.
type OutboxEntry struct {
	ID         string
	Kind       string
	AgentID    string
	Payload    map[string]any
	EnqueuedAt time.Time
}

// Outbox is a bounded queue of not-yet-mirrored records. The sync skill
// drains it, removing entries only on confirmed writes; failed entries stay
// queued for the next cycle. Past MaxOutboxEntries the oldest entries are
// dropped, so an unconfigured mirror cannot grow the queue without bound.
type Outbox struct {
	mu      sync.Mutex
	entries []OutboxEntry
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Enqueue appends a record for mirroring and returns its id.
func (o *Outbox) Enqueue(kind, agentID string, payload map[string]any) string {
	entry := OutboxEntry{
		ID:         uuid.NewString(),
		Kind:       kind,
		AgentID:    agentID,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = capTail(append(o.entries, entry), MaxOutboxEntries)
	return entry.ID
}

// Pending returns a snapshot of the queued entries in enqueue order.
func (o *Outbox) Pending() []OutboxEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]OutboxEntry, len(o.entries))
	copy(out, o.entries)
	return out
}

// Ack removes the entries with the given ids after a confirmed write.
func (o *Outbox) Ack(ids ...string) {
	if len(ids) == 0 {
		return
	}
	acked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		acked[id] = struct{}{}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	for _, e := range o.entries {
		if _, ok := acked[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	o.entries = kept
}

// Len returns the number of queued entries.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}
