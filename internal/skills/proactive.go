package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/basket/gyeol/internal/bus"
	"github.com/basket/gyeol/internal/llm"
	"github.com/basket/gyeol/internal/safety"
	"github.com/basket/gyeol/internal/store"
)

const proactiveSystemPrompt = "You are GYEOL. Share something interesting based on recent topics. " +
	"Write a short, friendly, one-sentence message. " +
	"Detect the language of the topics and respond in the same language. No markdown."

// ProactiveMessage generates one unprompted message from recently learned
// topics, subject to the agent's blackout and daily-quota gates, then pushes
// it to every linked chat.
func (r *Runner) ProactiveMessage(ctx context.Context, agentID string) store.SkillResult {
	result := store.SkillResult{Skill: SkillProactiveMessage, AgentID: agentID}

	agent := r.deps.Registry.GetOrCreate(agentID)
	if allowed, reason := agent.ProactiveGate(r.deps.Now()); !allowed {
		result.OK = true
		switch reason {
		case "blackout":
			result.Detail = "night time - skipping"
		default:
			result.Detail = fmt.Sprintf("daily limit (%d) reached", store.MaxDailyProactive)
		}
		return result
	}

	topics := r.deps.Shared.RecentTopics(5)
	if len(topics) == 0 {
		result.OK = true
		result.Detail = "no topics to share"
		return result
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: proactiveSystemPrompt},
		{Role: llm.RoleUser, Content: "Recently learned topics: " + strings.Join(topics, ", ")},
	}
	msg, err := r.deps.LLM.Chat(ctx, messages, 0)
	if err != nil {
		result.Detail = fmt.Sprintf("no message generated: %v", err)
		return result
	}
	msg = safety.Clean(msg)

	agent.AppendProactive(store.ProactiveMessage{Timestamp: r.deps.Now(), Message: msg})
	r.deps.Outbox.Enqueue(store.OutboxProactive, agentID, map[string]any{"message": msg})

	if r.deps.Telegram != nil && r.deps.Telegram.Configured() {
		for _, chatID := range r.deps.Shared.ChatsForAgent(agentID) {
			if err := r.deps.Telegram.Send(ctx, chatID, msg); err != nil {
				r.deps.Logger.Warn("proactive push failed", "chat_id", chatID, "error", err)
				continue
			}
			if r.deps.Bus != nil {
				r.deps.Bus.Publish(bus.TopicProactiveSent, bus.ProactiveSentEvent{
					EventID: uuid.NewString(),
					AgentID: agentID,
					ChatID:  chatID,
				})
			}
		}
	}

	result.OK = true
	result.Detail = msg
	return result
}

// TelegramBroadcast resends the agent's latest proactive message to every
// linked chat.
func (r *Runner) TelegramBroadcast(ctx context.Context, agentID string) store.SkillResult {
	result := store.SkillResult{Skill: SkillTelegramBroadcast, AgentID: agentID}

	if r.deps.Telegram == nil || !r.deps.Telegram.Configured() {
		result.Detail = "Telegram not configured"
		return result
	}

	agent := r.deps.Registry.GetOrCreate(agentID)
	pm, ok := agent.LatestProactive()
	if !ok || pm.Message == "" {
		result.OK = true
		result.Detail = "No messages to broadcast"
		return result
	}

	sent := 0
	for _, chatID := range r.deps.Shared.ChatsForAgent(agentID) {
		if err := r.deps.Telegram.Send(ctx, chatID, pm.Message); err != nil {
			r.deps.Logger.Warn("broadcast send failed", "chat_id", chatID, "error", err)
			continue
		}
		sent++
	}

	result.OK = true
	result.Detail = fmt.Sprintf("Broadcast to %d chats", sent)
	return result
}
