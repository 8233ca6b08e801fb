// Package llm wraps the Groq chat-completion endpoint behind a small client
// interface and parses structured JSON out of free-form model responses.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no model credential is present. Callers
// treat it as a permanent per-feature disablement, not a transient failure.
var ErrNotConfigured = errors.New("llm: no API key configured")

// Message is one role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is a chat-completion endpoint. Implementations apply a fixed
// per-call timeout and never retry.
type Client interface {
	// Chat sends the message list and returns the completion text.
	Chat(ctx context.Context, messages []Message, maxTokens int) (string, error)
	// Model returns the model identifier reported to API clients.
	Model() string
	// Configured reports whether a credential is present.
	Configured() bool
}
