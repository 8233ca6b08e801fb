package skills

import (
	"context"
	"fmt"

	"github.com/basket/gyeol/internal/llm"
	"github.com/basket/gyeol/internal/store"
)

const evolveSystemPrompt = "Analyze this conversation and suggest personality adjustments. Respond in JSON:\n" +
	`{"warmth":0,"logic":0,"creativity":0,"energy":0,"humor":0}` + "\nValues between -3 and +3."

// evolveDeltaBound clamps each evolution-suggested trait delta.
const evolveDeltaBound = 3

const evolveMaxTokens = 256

// PersonalityEvolve applies small trait adjustments once enough new
// conversation turns have accumulated. The trigger is consumed even when the
// model output is unusable, so a bad completion costs one window rather than
// retrying every cycle.
func (r *Runner) PersonalityEvolve(ctx context.Context, agentID string) store.SkillResult {
	result := store.SkillResult{Skill: SkillPersonalityEvolve, AgentID: agentID}

	agent := r.deps.Registry.GetOrCreate(agentID)
	if !agent.TakeEvolveTrigger() {
		result.OK = true
		result.Detail = "Not yet time to evolve"
		return result
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: evolveSystemPrompt},
		{Role: llm.RoleUser, Content: "Conversations:\n" + conversationText(agent.RecentTurns(10))},
	}
	text, err := r.deps.LLM.Chat(ctx, messages, evolveMaxTokens)
	if err != nil {
		result.Detail = "evolution failed"
		return result
	}

	deltas, ok := llm.ParseAdjustments(text)
	if !ok {
		result.Detail = "evolution failed"
		return result
	}

	p := agent.ApplyPersonalityDeltas(deltas, evolveDeltaBound)
	result.OK = true
	result.Detail = fmt.Sprintf("Evolved: warmth=%d, logic=%d, creativity=%d, energy=%d, humor=%d",
		p.Warmth, p.Logic, p.Creativity, p.Energy, p.Humor)
	return result
}
