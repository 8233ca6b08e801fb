package skills

import (
	"context"
	"fmt"

	"github.com/basket/gyeol/internal/llm"
	"github.com/basket/gyeol/internal/safety"
	"github.com/basket/gyeol/internal/store"
)

const researchSystemPrompt = `Given a topic, provide 3 interesting facts in JSON: {"topic":"...","facts":["...","...","..."]}` + "\n" +
	"Keep facts short. Match the language of the topic."

const researchMaxTokens = 256

// TopicResearch asks the model for a few facts about the most recently
// learned topic and stores them as a research note.
func (r *Runner) TopicResearch(ctx context.Context) store.SkillResult {
	result := store.SkillResult{Skill: SkillTopicResearch}

	topics := r.deps.Shared.RecentTopics(3)
	if len(topics) == 0 || !r.deps.LLM.Configured() {
		result.OK = true
		result.Detail = "No topics to research"
		return result
	}
	topic := topics[len(topics)-1]

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: researchSystemPrompt},
		{Role: llm.RoleUser, Content: "Research: " + topic},
	}
	text, err := r.deps.LLM.Chat(ctx, messages, researchMaxTokens)
	if err != nil {
		result.Detail = "research failed"
		return result
	}

	r.deps.Shared.AppendResearch(store.ResearchNote{
		Timestamp: r.deps.Now(),
		Topic:     topic,
		Facts:     safety.Clean(text),
	})
	result.OK = true
	result.Detail = fmt.Sprintf("Researched: %s", topic)
	return result
}
