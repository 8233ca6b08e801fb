// Package chat handles one user message end to end: safety filter, language
// detection, prompt assembly, model call, sanitization and storage.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/basket/gyeol/internal/bus"
	"github.com/basket/gyeol/internal/lang"
	"github.com/basket/gyeol/internal/llm"
	"github.com/basket/gyeol/internal/persona"
	"github.com/basket/gyeol/internal/safety"
	"github.com/basket/gyeol/internal/store"
)

// Model labels for the non-model reply paths.
const (
	ModelGuardrail = "guardrail"
	ModelFallback  = "fallback"
)

// historyTurns is how many prior exchanges accompany each model call.
const historyTurns = 10

// promptTopics is how many recent learned topics enter the system prompt.
const promptTopics = 5

// Reply is the handler's answer. Message is always non-empty.
type Reply struct {
	Message  string `json:"message"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// SyncKicker requests an out-of-band mirror pass after a stored exchange.
type SyncKicker interface {
	KickSync(ctx context.Context)
}

// Handler processes chat messages for all agents and channels.
type Handler struct {
	registry *store.Registry
	shared   *store.SharedStore
	outbox   *store.Outbox
	model    llm.Client
	filter   *safety.Filter
	bus      *bus.Bus
	kicker   SyncKicker
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a chat handler. kicker and b may be nil.
func NewHandler(registry *store.Registry, shared *store.SharedStore, outbox *store.Outbox, model llm.Client, b *bus.Bus, kicker SyncKicker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		shared:   shared,
		outbox:   outbox,
		model:    model,
		filter:   safety.NewFilter(),
		bus:      b,
		kicker:   kicker,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle answers one message. It always returns a usable reply: the model
// answer on success, the fixed deflection on a safety block, or a localized
// fallback when the model is unavailable. Store state is mutated only on the
// success path.
func (h *Handler) Handle(ctx context.Context, agentID, message, channel string) Reply {
	if channel == "" {
		channel = "web"
	}

	if check := h.filter.Check(message); check.Blocked {
		h.shared.RecordSecurityEvent(store.SecurityEvent{
			Timestamp:      h.now(),
			AgentID:        agentID,
			Reason:         check.Reason,
			MessagePreview: preview(message),
		})
		h.logger.Info("message blocked", "agent_id", agentID, "reason", check.Reason)
		h.publish(bus.TopicSecurityBlock, bus.SecurityBlockEvent{
			EventID: uuid.NewString(),
			AgentID: agentID,
			Reason:  check.Reason,
		})
		return Reply{Message: persona.Deflection, Model: ModelGuardrail, Language: lang.Detect(message)}
	}

	language := lang.Detect(message)
	agent := h.registry.GetOrCreate(agentID)

	if !h.model.Configured() {
		return h.fallback(agentID, channel, language)
	}

	messages := h.buildMessages(agent, message, language)
	answer, err := h.model.Chat(ctx, messages, 0)
	if err != nil {
		h.logger.Warn("chat completion failed", "agent_id", agentID, "error", err)
		return h.fallback(agentID, channel, language)
	}

	answer = safety.Clean(answer)
	turn := store.ConversationTurn{
		User:      message,
		Assistant: answer,
		Timestamp: h.now(),
		Channel:   channel,
		Language:  language,
	}
	agent.AppendTurn(turn)
	h.outbox.Enqueue(store.OutboxConversation, agent.ID(), map[string]any{
		"user":      turn.User,
		"assistant": turn.Assistant,
		"channel":   turn.Channel,
	})
	if h.kicker != nil {
		h.kicker.KickSync(ctx)
	}

	h.publish(bus.TopicChatMessage, bus.ChatMessageEvent{
		EventID:  uuid.NewString(),
		AgentID:  agent.ID(),
		Channel:  channel,
		Language: language,
	})
	return Reply{Message: answer, Model: h.model.Model(), Language: language}
}

func (h *Handler) buildMessages(agent *store.AgentStore, message, language string) []llm.Message {
	p := agent.Personality()
	traits := persona.Traits{
		Warmth:     p.Warmth,
		Logic:      p.Logic,
		Creativity: p.Creativity,
		Energy:     p.Energy,
		Humor:      p.Humor,
	}
	var reflection string
	if r, ok := agent.LatestReflection(); ok {
		reflection = r.Content
	}
	system := persona.BuildSystemPrompt(language, traits, h.shared.RecentTopics(promptTopics), reflection)

	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	for _, t := range agent.RecentTurns(historyTurns) {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: t.User},
			llm.Message{Role: llm.RoleAssistant, Content: t.Assistant},
		)
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: message})
}

func (h *Handler) fallback(agentID, channel, language string) Reply {
	h.publish(bus.TopicChatMessage, bus.ChatMessageEvent{
		EventID:  uuid.NewString(),
		AgentID:  agentID,
		Channel:  channel,
		Language: language,
		Fallback: true,
	})
	return Reply{Message: persona.Fallback(language), Model: ModelFallback, Language: language}
}

func (h *Handler) publish(topic string, payload any) {
	if h.bus != nil {
		h.bus.Publish(topic, payload)
	}
}

// previewRunes is the stored length of a blocked message's preview.
const previewRunes = 50

func preview(message string) string {
	runes := []rune(message)
	if len(runes) <= previewRunes {
		return message
	}
	return string(runes[:previewRunes])
}
