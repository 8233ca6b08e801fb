package skills

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/basket/gyeol/internal/store"
	"github.com/basket/gyeol/internal/supabase"
)

// syncBatchLimits bound how much each sync pass mirrors.
const (
	syncTopicLimit = 20
	syncLogLimit   = 5
)

// SupabaseSync drains the outbox into the mirror store, upserts personality
// snapshots, and mirrors learned topics and recent cycle logs. Failed writes
// leave their records queued for the next cycle.
func (r *Runner) SupabaseSync(ctx context.Context) store.SkillResult {
	result := store.SkillResult{Skill: SkillSupabaseSync}

	if r.deps.DB == nil || !r.deps.DB.Configured() {
		result.Detail = "Supabase not configured"
		return result
	}

	convos := r.drainOutbox(ctx)
	r.syncPersonalities(ctx)
	topics := r.syncTopics(ctx)
	r.syncSkillsLog(ctx)

	result.OK = true
	result.Detail = fmt.Sprintf("Synced %d convos, %d topics for %d agents", convos, topics, r.deps.Registry.Count())
	return result
}

// drainOutbox inserts each pending record, acking only confirmed writes.
// Returns the number of conversation records mirrored.
func (r *Runner) drainOutbox(ctx context.Context) int {
	convos := 0
	for _, entry := range r.deps.Outbox.Pending() {
		var err error
		switch entry.Kind {
		case store.OutboxConversation:
			err = r.insertConversation(ctx, entry)
			if err == nil {
				convos++
			}
		case store.OutboxReflection:
			err = r.deps.DB.Insert(ctx, supabase.TableReflections, map[string]any{
				"agent_id": entry.AgentID,
				"content":  entry.Payload["content"],
			})
		case store.OutboxProactive:
			err = r.deps.DB.Insert(ctx, supabase.TableProactive, map[string]any{
				"agent_id": entry.AgentID,
				"message":  entry.Payload["message"],
				"channel":  "web",
			})
		default:
			r.deps.Logger.Warn("unknown outbox kind dropped", "kind", entry.Kind, "id", entry.ID)
			r.deps.Outbox.Ack(entry.ID)
			continue
		}
		if err != nil {
			r.deps.Logger.Warn("outbox sync failed", "kind", entry.Kind, "id", entry.ID, "error", err)
			continue
		}
		r.deps.Outbox.Ack(entry.ID)
	}
	return convos
}

// insertConversation mirrors one exchange as a user row then an assistant
// row. Either failing leaves the whole record queued.
func (r *Runner) insertConversation(ctx context.Context, entry store.OutboxEntry) error {
	channel, _ := entry.Payload["channel"].(string)
	if channel == "" {
		channel = "web"
	}
	if err := r.deps.DB.Insert(ctx, supabase.TableConversations, map[string]any{
		"agent_id": entry.AgentID,
		"role":     "user",
		"content":  entry.Payload["user"],
		"channel":  channel,
	}); err != nil {
		return err
	}
	return r.deps.DB.Insert(ctx, supabase.TableConversations, map[string]any{
		"agent_id": entry.AgentID,
		"role":     "assistant",
		"content":  entry.Payload["assistant"],
		"channel":  channel,
		"provider": "groq",
	})
}

func (r *Runner) syncPersonalities(ctx context.Context) {
	for _, agentID := range r.deps.Registry.AgentIDs() {
		p := r.deps.Registry.GetOrCreate(agentID).Personality()
		body := map[string]any{
			"warmth":     p.Warmth,
			"logic":      p.Logic,
			"creativity": p.Creativity,
			"energy":     p.Energy,
			"humor":      p.Humor,
		}
		path := fmt.Sprintf("%s?id=eq.%s", supabase.TableAgents, agentID)
		if err := r.deps.DB.Patch(ctx, path, body); err != nil {
			r.deps.Logger.Warn("personality sync failed", "agent_id", agentID, "error", err)
		}
	}
}

// syncTopics mirrors recent learned topics under the first agent id, deduped
// by content hash so re-learned or re-capped topics are not re-inserted.
func (r *Runner) syncTopics(ctx context.Context) int {
	ids := r.deps.Registry.AgentIDs()
	if len(ids) == 0 {
		return 0
	}
	first := ids[0]

	synced := 0
	for _, topic := range r.deps.Shared.RecentTopics(syncTopicLimit) {
		h := topicHash(topic)
		if r.deps.Shared.TopicSynced(h) {
			continue
		}
		err := r.deps.DB.Insert(ctx, supabase.TableTopics, map[string]any{
			"agent_id": first,
			"topic":    topic,
			"source":   "rss",
		})
		if err != nil {
			r.deps.Logger.Warn("topic sync failed", "topic", topic, "error", err)
			continue
		}
		r.deps.Shared.MarkTopicSynced(h)
		synced++
	}
	return synced
}

func (r *Runner) syncSkillsLog(ctx context.Context) {
	ids := r.deps.Registry.AgentIDs()
	if len(ids) == 0 {
		return
	}
	first := ids[0]

	for _, entry := range r.deps.Shared.UnsyncedSkillsLog(syncLogLimit) {
		err := r.deps.DB.Insert(ctx, supabase.TableLogs, map[string]any{
			"agent_id":      first,
			"activity_type": "skill_execution",
			"summary":       fmt.Sprintf("Heartbeat: %d skills ran", len(entry.Results)),
			"details":       map[string]any{"results": entry.Results},
			"was_sandboxed": true,
		})
		if err != nil {
			r.deps.Logger.Warn("skills log sync failed", "timestamp", entry.Timestamp, "error", err)
			continue
		}
		r.deps.Shared.MarkSkillsLogSynced(entry.Timestamp)
	}
}

func topicHash(topic string) string {
	h := fnv.New64a()
	h.Write([]byte(topic))
	return fmt.Sprintf("%016x", h.Sum64())
}
