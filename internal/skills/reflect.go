package skills

import (
	"context"
	"fmt"

	"github.com/basket/gyeol/internal/llm"
	"github.com/basket/gyeol/internal/safety"
	"github.com/basket/gyeol/internal/store"
)

const reflectSystemPrompt = "You are GYEOL's self-reflection module. " +
	"Analyze recent conversations and respond in JSON:\n" +
	`{"reflection":"...","personality_adjustments":{"warmth":0,"logic":0,"creativity":0,"energy":0,"humor":0},"learned":["..."]}` + "\n" +
	"personality_adjustments values between -5 and +5. " +
	"Write the reflection in the same language as the conversations."

// reflectDeltaBound clamps each reflection-suggested trait delta.
const reflectDeltaBound = 5

// SelfReflect asks the model to review an agent's recent conversations,
// stores the reflection and applies any suggested trait deltas.
func (r *Runner) SelfReflect(ctx context.Context, agentID string) store.SkillResult {
	result := store.SkillResult{Skill: SkillSelfReflect, AgentID: agentID}

	if !r.deps.LLM.Configured() {
		result.Detail = "no API key"
		return result
	}

	agent := r.deps.Registry.GetOrCreate(agentID)
	recent := agent.RecentTurns(10)
	if len(recent) == 0 {
		result.OK = true
		result.Detail = "no conversations to reflect on"
		return result
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: reflectSystemPrompt},
		{Role: llm.RoleUser, Content: "Recent conversations:\n" + conversationText(recent)},
	}
	text, err := r.deps.LLM.Chat(ctx, messages, 0)
	if err != nil {
		result.Detail = fmt.Sprintf("reflection failed: %v", err)
		return result
	}

	// Parse deltas from the raw response; Clean strips the JSON fencing.
	deltas, hasDeltas := llm.ParseAdjustments(text)

	content := safety.Clean(text)
	agent.AppendReflection(store.Reflection{Timestamp: r.deps.Now(), Content: content})
	r.deps.Outbox.Enqueue(store.OutboxReflection, agentID, map[string]any{"content": content})

	if hasDeltas {
		agent.ApplyPersonalityDeltas(deltas, reflectDeltaBound)
	}

	result.OK = true
	result.Detail = truncateRunes(content, 200)
	return result
}
