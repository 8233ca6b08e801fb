package store

import (
	"sync"
	"time"
)

// AgentStore is the isolated state of one agent. All access goes through
// methods guarded by the store's own mutex, making the single-writer
// assumption an explicit contract rather than a scheduling accident.
type AgentStore struct {
	mu sync.Mutex

	id               string
	personality      PersonalityVector
	conversations    []ConversationTurn
	reflections      []Reflection
	proactive        []ProactiveMessage
	timezoneOffset   int
	turnsSinceEvolve int

	proactiveDay   string // agent-local date of the current quota window
	proactiveToday int
}

func newAgentStore(id string, timezoneOffset int) *AgentStore {
	return &AgentStore{
		id:             id,
		personality:    DefaultPersonality(),
		timezoneOffset: timezoneOffset,
	}
}

// ID returns the agent identifier.
func (a *AgentStore) ID() string { return a.id }

// Personality returns a copy of the current vector.
func (a *AgentStore) Personality() PersonalityVector {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.personality
}

// ApplyPersonalityDeltas applies additive deltas, clamping each delta to
// [-bound, +bound] and each trait to [0,100].
func (a *AgentStore) ApplyPersonalityDeltas(deltas map[string]int, bound int) PersonalityVector {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.personality.Apply(deltas, bound)
	return a.personality
}

// AppendTurn appends a conversation turn, evicting the oldest past the cap,
// and advances the personality-evolution counter.
func (a *AgentStore) AppendTurn(turn ConversationTurn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversations = capTail(append(a.conversations, turn), MaxConversationsPerAgent)
	a.turnsSinceEvolve++
}

// RestoreTurn appends a turn without advancing the evolution counter. Used
// when reloading mirrored state at boot.
func (a *AgentStore) RestoreTurn(turn ConversationTurn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversations = capTail(append(a.conversations, turn), MaxConversationsPerAgent)
}

// RecentTurns returns up to the last n turns in insertion order.
func (a *AgentStore) RecentTurns(n int) []ConversationTurn {
	a.mu.Lock()
	defer a.mu.Unlock()
	tail := capTail(a.conversations, n)
	out := make([]ConversationTurn, len(tail))
	copy(out, tail)
	return out
}

// TurnCount returns the current conversation list length.
func (a *AgentStore) TurnCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conversations)
}

// TakeEvolveTrigger reports whether enough new turns accumulated for a
// personality evolution, consuming the trigger when it fires. The trigger
// fires once per EvolveTurnThreshold new turns regardless of cap eviction.
func (a *AgentStore) TakeEvolveTrigger() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.turnsSinceEvolve < EvolveTurnThreshold {
		return false
	}
	a.turnsSinceEvolve -= EvolveTurnThreshold
	return true
}

// AppendReflection appends a reflection, evicting the oldest past the cap.
func (a *AgentStore) AppendReflection(r Reflection) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reflections = capTail(append(a.reflections, r), MaxReflectionsPerAgent)
}

// LatestReflection returns the most recent reflection, if any.
func (a *AgentStore) LatestReflection() (Reflection, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.reflections) == 0 {
		return Reflection{}, false
	}
	return a.reflections[len(a.reflections)-1], true
}

// RecentReflections returns up to the last n reflections in insertion order.
func (a *AgentStore) RecentReflections(n int) []Reflection {
	a.mu.Lock()
	defer a.mu.Unlock()
	tail := capTail(a.reflections, n)
	out := make([]Reflection, len(tail))
	copy(out, tail)
	return out
}

// ReflectionCount returns the reflection list length.
func (a *AgentStore) ReflectionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.reflections)
}

// AppendProactive appends a proactive message, evicting the oldest past the
// cap, and counts it against today's quota.
func (a *AgentStore) AppendProactive(m ProactiveMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proactive = capTail(append(a.proactive, m), MaxProactivePerAgent)
	day := a.localDay(m.Timestamp)
	if day != a.proactiveDay {
		a.proactiveDay = day
		a.proactiveToday = 0
	}
	a.proactiveToday++
}

// RestoreProactive appends a proactive message without touching the quota.
func (a *AgentStore) RestoreProactive(m ProactiveMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proactive = capTail(append(a.proactive, m), MaxProactivePerAgent)
}

// LatestProactive returns the most recent proactive message, if any.
func (a *AgentStore) LatestProactive() (ProactiveMessage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.proactive) == 0 {
		return ProactiveMessage{}, false
	}
	return a.proactive[len(a.proactive)-1], true
}

// RecentProactive returns up to the last n proactive messages in insertion
// order.
func (a *AgentStore) RecentProactive(n int) []ProactiveMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	tail := capTail(a.proactive, n)
	out := make([]ProactiveMessage, len(tail))
	copy(out, tail)
	return out
}

// ProactiveCount returns the proactive list length.
func (a *AgentStore) ProactiveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.proactive)
}

// ProactiveGate reports whether a proactive message may be sent at now.
// Two independent policies apply: a local-night blackout (23:00-07:00 in the
// agent's timezone) and the daily quota, both keyed to the agent's local day.
// The returned reason is empty when sending is allowed.
func (a *AgentStore) ProactiveGate(now time.Time) (allowed bool, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	local := now.UTC().Add(time.Duration(a.timezoneOffset) * time.Hour)
	if h := local.Hour(); h >= 23 || h < 7 {
		return false, "blackout"
	}

	if a.localDay(now) == a.proactiveDay && a.proactiveToday >= MaxDailyProactive {
		return false, "quota"
	}
	return true, ""
}

// localDay is the agent-local calendar date of t. Caller holds the lock.
func (a *AgentStore) localDay(t time.Time) string {
	return t.UTC().Add(time.Duration(a.timezoneOffset) * time.Hour).Format("2006-01-02")
}

// TimezoneOffset returns the agent's UTC offset in hours.
func (a *AgentStore) TimezoneOffset() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timezoneOffset
}

// SetTimezoneOffset updates the UTC offset; values outside [-12,14] are
// rejected.
func (a *AgentStore) SetTimezoneOffset(offset int) bool {
	if offset < -12 || offset > 14 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timezoneOffset = offset
	return true
}

// SetPersonality replaces the vector wholesale. Used when reloading mirrored
// state at boot.
func (a *AgentStore) SetPersonality(p PersonalityVector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.personality = PersonalityVector{
		Warmth:     clampInt(p.Warmth, 0, 100),
		Logic:      clampInt(p.Logic, 0, 100),
		Creativity: clampInt(p.Creativity, 0, 100),
		Energy:     clampInt(p.Energy, 0, 100),
		Humor:      clampInt(p.Humor, 0, 100),
	}
}
