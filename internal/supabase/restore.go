package supabase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/basket/gyeol/internal/store"
)

type agentRow struct {
	ID         string `json:"id"`
	Warmth     *int   `json:"warmth"`
	Logic      *int   `json:"logic"`
	Creativity *int   `json:"creativity"`
	Energy     *int   `json:"energy"`
	Humor      *int   `json:"humor"`
}

type conversationRow struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	Channel   string `json:"channel"`
}

type reflectionRow struct {
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type proactiveRow struct {
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type topicRow struct {
	Topic string `json:"topic"`
}

// Restore reloads mirrored state into memory at boot. Restored records never
// enter the outbox: they are already durable. Failures are non-fatal; the
// server starts with whatever could be loaded.
func Restore(ctx context.Context, c *Client, registry *store.Registry, shared *store.SharedStore, logger *slog.Logger) error {
	if !c.Configured() {
		logger.Info("supabase not configured, skipping restore")
		return nil
	}

	var agents []agentRow
	if err := c.Select(ctx, TableAgents+"?select=id,warmth,logic,creativity,energy,humor&limit=100", &agents); err != nil {
		return fmt.Errorf("restore agents: %w", err)
	}
	logger.Info("restoring agents from supabase", "count", len(agents))

	for _, row := range agents {
		if row.ID == "" {
			continue
		}
		agent := registry.GetOrCreate(row.ID)
		p := agent.Personality()
		applyTrait(&p.Warmth, row.Warmth)
		applyTrait(&p.Logic, row.Logic)
		applyTrait(&p.Creativity, row.Creativity)
		applyTrait(&p.Energy, row.Energy)
		applyTrait(&p.Humor, row.Humor)
		agent.SetPersonality(p)

		restoreConversations(ctx, c, agent, logger)
		restoreReflections(ctx, c, agent, logger)
		restoreProactive(ctx, c, agent, logger)
	}

	if len(agents) > 0 && agents[0].ID != "" {
		restoreTopics(ctx, c, agents[0].ID, shared, logger)
	}

	logger.Info("restore complete", "agents", len(agents))
	return nil
}

func applyTrait(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func restoreConversations(ctx context.Context, c *Client, agent *store.AgentStore, logger *slog.Logger) {
	query := fmt.Sprintf("%s?agent_id=eq.%s&order=created_at.desc&limit=50&select=role,content,created_at,channel",
		TableConversations, agent.ID())
	var rows []conversationRow
	if err := c.Select(ctx, query, &rows); err != nil {
		logger.Warn("restore conversations failed", "agent_id", agent.ID(), "error", err)
		return
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt < rows[j].CreatedAt })

	// Pair user rows with the assistant row that follows them.
	for i := 0; i+1 < len(rows); {
		if rows[i].Role == "user" && rows[i+1].Role == "assistant" {
			agent.RestoreTurn(store.ConversationTurn{
				User:      rows[i].Content,
				Assistant: rows[i+1].Content,
				Timestamp: parseTime(rows[i+1].CreatedAt),
				Channel:   rows[i].Channel,
			})
			i += 2
		} else {
			i++
		}
	}
}

func restoreReflections(ctx context.Context, c *Client, agent *store.AgentStore, logger *slog.Logger) {
	query := fmt.Sprintf("%s?agent_id=eq.%s&order=created_at.desc&limit=20&select=content,created_at",
		TableReflections, agent.ID())
	var rows []reflectionRow
	if err := c.Select(ctx, query, &rows); err != nil {
		logger.Warn("restore reflections failed", "agent_id", agent.ID(), "error", err)
		return
	}
	for i := len(rows) - 1; i >= 0; i-- {
		agent.AppendReflection(store.Reflection{
			Timestamp: parseTime(rows[i].CreatedAt),
			Content:   rows[i].Content,
		})
	}
}

func restoreProactive(ctx context.Context, c *Client, agent *store.AgentStore, logger *slog.Logger) {
	query := fmt.Sprintf("%s?agent_id=eq.%s&order=created_at.desc&limit=50&select=message,created_at",
		TableProactive, agent.ID())
	var rows []proactiveRow
	if err := c.Select(ctx, query, &rows); err != nil {
		logger.Warn("restore proactive messages failed", "agent_id", agent.ID(), "error", err)
		return
	}
	for i := len(rows) - 1; i >= 0; i-- {
		agent.RestoreProactive(store.ProactiveMessage{
			Timestamp: parseTime(rows[i].CreatedAt),
			Message:   rows[i].Message,
		})
	}
}

func restoreTopics(ctx context.Context, c *Client, agentID string, shared *store.SharedStore, logger *slog.Logger) {
	query := fmt.Sprintf("%s?agent_id=eq.%s&order=created_at.desc&limit=200&select=topic", TableTopics, agentID)
	var rows []topicRow
	if err := c.Select(ctx, query, &rows); err != nil {
		logger.Warn("restore topics failed", "error", err)
		return
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Topic != "" {
			shared.AddTopic(rows[i].Topic)
		}
	}
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
