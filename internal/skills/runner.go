// Package skills implements the autonomous behaviors executed by the
// heartbeat. Each skill runs independently and returns a SkillResult; a
// failing skill never takes the cycle down with it.
package skills

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/basket/gyeol/internal/bus"
	"github.com/basket/gyeol/internal/feeds"
	"github.com/basket/gyeol/internal/llm"
	"github.com/basket/gyeol/internal/store"
	"github.com/basket/gyeol/internal/supabase"
)

// Skill names as they appear in results and activity events.
const (
	SkillSelfReflect       = "self-reflect"
	SkillLearnRSS          = "learn-rss"
	SkillProactiveMessage  = "proactive-message"
	SkillPersonalityEvolve = "personality-evolve"
	SkillTopicResearch     = "topic-research"
	SkillSecurityScan      = "security-scan"
	SkillTelegramBroadcast = "telegram-broadcast"
	SkillSupabaseSync      = "supabase-sync"
)

// GlobalSkills run once per cycle, in order, before any per-agent work.
var GlobalSkills = []string{SkillLearnRSS, SkillTopicResearch, SkillSecurityScan}

// AgentSkills run once per agent per cycle, in order.
var AgentSkills = []string{SkillSelfReflect, SkillProactiveMessage, SkillPersonalityEvolve, SkillTelegramBroadcast}

// Messenger pushes outbound messages to linked chats.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
	Configured() bool
}

// Deps carries everything a skill may touch.
type Deps struct {
	Registry *store.Registry
	Shared   *store.SharedStore
	Outbox   *store.Outbox
	LLM      llm.Client
	DB       *supabase.Client
	Telegram Messenger
	Bus      *bus.Bus
	Sources  *feeds.Sources
	Titles   feeds.TitleExtractor
	HTTP     *http.Client
	Logger   *slog.Logger
	Now      func() time.Time
}

// Runner executes skills against the shared dependencies.
type Runner struct {
	deps Deps
}

// NewRunner creates a runner, filling optional dependencies with defaults.
func NewRunner(deps Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if deps.Titles == nil {
		deps.Titles = feeds.RegexExtractor{}
	}
	return &Runner{deps: deps}
}

// Run dispatches one skill by name. agentID is empty for global skills. A
// panic inside a skill is recovered into a failed result.
func (r *Runner) Run(ctx context.Context, skill, agentID string) (res store.SkillResult) {
	defer func() {
		if p := recover(); p != nil {
			r.deps.Logger.Error("skill panicked", "skill", skill, "agent_id", agentID, "panic", p)
			res = store.SkillResult{Skill: skill, AgentID: agentID, OK: false, Detail: fmt.Sprintf("panic: %v", p)}
		}
	}()

	switch skill {
	case SkillSelfReflect:
		return r.SelfReflect(ctx, agentID)
	case SkillLearnRSS:
		return r.LearnRSS(ctx)
	case SkillProactiveMessage:
		return r.ProactiveMessage(ctx, agentID)
	case SkillPersonalityEvolve:
		return r.PersonalityEvolve(ctx, agentID)
	case SkillTopicResearch:
		return r.TopicResearch(ctx)
	case SkillSecurityScan:
		return r.SecurityScan(ctx)
	case SkillTelegramBroadcast:
		return r.TelegramBroadcast(ctx, agentID)
	case SkillSupabaseSync:
		return r.SupabaseSync(ctx)
	default:
		return store.SkillResult{Skill: skill, AgentID: agentID, OK: false, Detail: "unknown skill"}
	}
}

// conversationText renders turns the way the reflection prompts expect.
func conversationText(turns []store.ConversationTurn) string {
	var b []byte
	for i, t := range turns {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, fmt.Sprintf("User: %s\nGYEOL: %s", t.User, t.Assistant)...)
	}
	return string(b)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
