// Package store holds the in-memory authoritative state: one isolated store
// per agent, a process-wide shared store, and the outbox of records awaiting
// mirroring to the external datastore.
package store

import "time"

// Collection caps. Appending past a cap evicts the oldest entries (sliding
// window, insertion order preserved).
const (
	MaxConversationsPerAgent = 200
	MaxReflectionsPerAgent   = 50
	MaxProactivePerAgent     = 50
	MaxLearnedTopics         = 200
	MaxResearchNotes         = 50
	MaxSkillsLogEntries      = 50
	MaxOutboxEntries         = 500
)

// MaxDailyProactive is the per-agent-per-day proactive message quota.
const MaxDailyProactive = 2

// EvolveTurnThreshold is the number of new conversation turns between
// personality evolutions.
const EvolveTurnThreshold = 10

// ConversationTurn is one user/assistant exchange.
type ConversationTurn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Language  string    `json:"language"`
}

// Reflection is one self-reflection produced by the heartbeat.
type Reflection struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// ProactiveMessage is one unprompted outbound message.
type ProactiveMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// SkillResult is the outcome of one skill invocation. It lives only in the
// current skills-log entry and the activity broadcast.
type SkillResult struct {
	Skill   string `json:"skill"`
	AgentID string `json:"agent_id,omitempty"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail"`
}

// SkillsLogEntry records one full heartbeat cycle.
type SkillsLogEntry struct {
	Timestamp   time.Time     `json:"timestamp"`
	Results     []SkillResult `json:"results"`
	AgentsCount int           `json:"agents_count"`
}

// SecurityEvent records one blocked message.
type SecurityEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	AgentID        string    `json:"agent_id"`
	Reason         string    `json:"reason"`
	MessagePreview string    `json:"message_preview"`
}

// ResearchNote is one set of model-generated facts about a learned topic.
type ResearchNote struct {
	Timestamp time.Time `json:"timestamp"`
	Topic     string    `json:"topic"`
	Facts     string    `json:"facts"`
}

// capTail keeps at most n trailing elements of s.
func capTail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
