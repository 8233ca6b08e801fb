package supabase

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/basket/gyeol/internal/store"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRestore_LoadsAgentsAndState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/rest/v1/gyeol_agents"):
			w.Write([]byte(`[{"id":"abc","warmth":70,"logic":30,"creativity":55,"energy":50,"humor":60}]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/gyeol_conversations"):
			w.Write([]byte(`[
				{"role":"assistant","content":"hi there","created_at":"2026-08-29T10:00:01Z","channel":"web"},
				{"role":"user","content":"hello","created_at":"2026-08-29T10:00:00Z","channel":"web"}
			]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/gyeol_reflections"):
			w.Write([]byte(`[{"content":"newest","created_at":"2026-08-29T11:00:00Z"},{"content":"oldest","created_at":"2026-08-28T11:00:00Z"}]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/gyeol_proactive_messages"):
			w.Write([]byte(`[{"message":"hey!","created_at":"2026-08-29T12:00:00Z"}]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/gyeol_learned_topics"):
			w.Write([]byte(`[{"topic":"newer topic"},{"topic":"older topic"}]`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "service-key")
	registry := store.NewRegistry(9)
	shared := store.NewSharedStore()

	if err := Restore(context.Background(), c, registry, shared, discard()); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	agent := registry.GetOrCreate("abc")
	p := agent.Personality()
	if p.Warmth != 70 || p.Logic != 30 {
		t.Errorf("personality not restored: %+v", p)
	}
	if agent.TurnCount() != 1 {
		t.Fatalf("turns = %d, want 1 paired turn", agent.TurnCount())
	}
	turns := agent.RecentTurns(1)
	if turns[0].User != "hello" || turns[0].Assistant != "hi there" {
		t.Errorf("turn = %+v", turns[0])
	}
	latest, ok := agent.LatestReflection()
	if !ok || latest.Content != "newest" {
		t.Errorf("latest reflection = %+v (rows must be reversed into insertion order)", latest)
	}
	if _, ok := agent.LatestProactive(); !ok {
		t.Error("proactive message not restored")
	}
	latestTopic, _ := shared.LatestTopic()
	if latestTopic != "newer topic" {
		t.Errorf("latest topic = %q", latestTopic)
	}

	// Restored turns must not arm the evolution trigger or enter any outbox.
	if agent.TakeEvolveTrigger() {
		t.Error("restore armed the evolve trigger")
	}
}

func TestRestore_Unconfigured(t *testing.T) {
	c := New("", "")
	if err := Restore(context.Background(), c, store.NewRegistry(9), store.NewSharedStore(), discard()); err != nil {
		t.Fatalf("unconfigured restore should be a silent no-op, got %v", err)
	}
}
