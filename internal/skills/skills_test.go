package skills

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/basket/gyeol/internal/feeds"
	"github.com/basket/gyeol/internal/llm"
	"github.com/basket/gyeol/internal/store"
)

// daytimeUTC maps to 12:00 local for the default UTC+9 offset.
var daytimeUTC = time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

// nightUTC maps to 00:00 local for the default UTC+9 offset.
var nightUTC = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

type fakeLLM struct {
	configured bool
	reply      string
	err        error
	calls      []llmCall
}

type llmCall struct {
	messages  []llm.Message
	maxTokens int
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, maxTokens int) (string, error) {
	f.calls = append(f.calls, llmCall{messages: messages, maxTokens: maxTokens})
	if !f.configured {
		return "", llm.ErrNotConfigured
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Model() string    { return "test-model" }
func (f *fakeLLM) Configured() bool { return f.configured }

type fakeMessenger struct {
	configured bool
	sendErr    error
	sent       map[int64][]string
}

func newFakeMessenger(configured bool) *fakeMessenger {
	return &fakeMessenger{configured: configured, sent: make(map[int64][]string)}
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

func (f *fakeMessenger) Configured() bool { return f.configured }

func testDeps(t *testing.T, model *fakeLLM) Deps {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return Deps{
		Registry: store.NewRegistry(9),
		Shared:   store.NewSharedStore(),
		Outbox:   store.NewOutbox(),
		LLM:      model,
		Telegram: newFakeMessenger(false),
		Sources:  feeds.NewSources(filepath.Join(t.TempDir(), "LEARNING_SOURCES.md"), logger),
		Logger:   logger,
		Now:      func() time.Time { return daytimeUTC },
	}
}

func appendTurns(agent *store.AgentStore, n int) {
	for i := 0; i < n; i++ {
		agent.AppendTurn(store.ConversationTurn{
			User:      fmt.Sprintf("question %d", i),
			Assistant: fmt.Sprintf("answer %d", i),
			Timestamp: daytimeUTC,
			Channel:   "web",
			Language:  "en",
		})
	}
}

func TestSelfReflect_NoAPIKey(t *testing.T) {
	r := NewRunner(testDeps(t, &fakeLLM{configured: false}))
	res := r.SelfReflect(context.Background(), "a1")
	if res.OK {
		t.Error("expected not ok without a credential")
	}
	if res.Detail != "no API key" {
		t.Errorf("Detail = %q", res.Detail)
	}
}

func TestSelfReflect_NoConversations(t *testing.T) {
	r := NewRunner(testDeps(t, &fakeLLM{configured: true, reply: "unused"}))
	res := r.SelfReflect(context.Background(), "a1")
	if !res.OK || res.Detail != "no conversations to reflect on" {
		t.Errorf("result = %+v", res)
	}
}

func TestSelfReflect_StoresReflectionAndAppliesDeltas(t *testing.T) {
	model := &fakeLLM{configured: true, reply: `{"reflection":"good chats","personality_adjustments":{"warmth":3,"humor":-2}}`}
	deps := testDeps(t, model)
	r := NewRunner(deps)
	agent := deps.Registry.GetOrCreate("a1")
	appendTurns(agent, 3)

	res := r.SelfReflect(context.Background(), "a1")
	if !res.OK {
		t.Fatalf("result = %+v", res)
	}
	if agent.ReflectionCount() != 1 {
		t.Errorf("ReflectionCount = %d", agent.ReflectionCount())
	}
	p := agent.Personality()
	if p.Warmth != 53 || p.Humor != 48 {
		t.Errorf("personality = %+v", p)
	}
	if deps.Outbox.Len() != 1 {
		t.Errorf("outbox length = %d", deps.Outbox.Len())
	}
	if len(model.calls) != 1 {
		t.Fatalf("llm calls = %d", len(model.calls))
	}
	if got := model.calls[0].messages[1].Content; !strings.HasPrefix(got, "Recent conversations:\nUser: question 0") {
		t.Errorf("user prompt = %q", got)
	}
}

func TestSelfReflect_SanitizesStoredContent(t *testing.T) {
	model := &fakeLLM{configured: true, reply: "**Reflection:** lots of *good* chats today"}
	deps := testDeps(t, model)
	r := NewRunner(deps)
	agent := deps.Registry.GetOrCreate("a1")
	appendTurns(agent, 1)

	if res := r.SelfReflect(context.Background(), "a1"); !res.OK {
		t.Fatalf("result = %+v", res)
	}
	reflection, ok := agent.LatestReflection()
	if !ok {
		t.Fatal("reflection not stored")
	}
	if strings.Contains(reflection.Content, "**") || strings.Contains(reflection.Content, "*good*") {
		t.Errorf("stored reflection not sanitized: %q", reflection.Content)
	}
}

func TestSelfReflect_DeltaBoundClamped(t *testing.T) {
	model := &fakeLLM{configured: true, reply: `{"personality_adjustments":{"warmth":40}}`}
	deps := testDeps(t, model)
	r := NewRunner(deps)
	agent := deps.Registry.GetOrCreate("a1")
	appendTurns(agent, 1)

	if res := r.SelfReflect(context.Background(), "a1"); !res.OK {
		t.Fatalf("result = %+v", res)
	}
	if got := agent.Personality().Warmth; got != 55 {
		t.Errorf("warmth = %d, want 55 (delta clamped to +5)", got)
	}
}

func TestLearnRSS_LearnsAndDedupes(t *testing.T) {
	feed := `<rss><channel><title>Chan</title>` +
		`<item><title>alpha</title></item>` +
		`<item><title>beta</title></item>` +
		`<item><title>gamma</title></item>` +
		`<item><title>delta</title></item>` +
		`</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, feed)
	}))
	defer srv.Close()

	deps := testDeps(t, &fakeLLM{})
	deps.Sources = feeds.NewStatic([]string{srv.URL})
	r := NewRunner(deps)

	res := r.LearnRSS(context.Background())
	if !res.OK || res.Detail != "Learned 3 new topics" {
		t.Fatalf("result = %+v", res)
	}
	if got := deps.Shared.RecentTopics(10); len(got) != 3 || got[2] != "gamma" {
		t.Errorf("topics = %v, want first three entry titles", got)
	}

	// Second pass learns nothing new.
	res = r.LearnRSS(context.Background())
	if res.Detail != "Learned 0 new topics" {
		t.Errorf("second pass Detail = %q", res.Detail)
	}
}

func TestLearnRSS_FetchFailureIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	deps := testDeps(t, &fakeLLM{})
	deps.Sources = feeds.NewStatic([]string{srv.URL})
	r := NewRunner(deps)

	res := r.LearnRSS(context.Background())
	if !res.OK || res.Detail != "Learned 0 new topics" {
		t.Errorf("result = %+v", res)
	}
}

func TestProactiveMessage_Blackout(t *testing.T) {
	deps := testDeps(t, &fakeLLM{configured: true, reply: "hi"})
	deps.Now = func() time.Time { return nightUTC }
	r := NewRunner(deps)
	deps.Shared.AddTopic("quantum computing")

	res := r.ProactiveMessage(context.Background(), "a1")
	if !res.OK || res.Detail != "night time - skipping" {
		t.Errorf("result = %+v", res)
	}
	if deps.Registry.GetOrCreate("a1").ProactiveCount() != 0 {
		t.Error("blackout must not store a message")
	}
}

func TestProactiveMessage_DailyQuota(t *testing.T) {
	deps := testDeps(t, &fakeLLM{configured: true, reply: "hi"})
	r := NewRunner(deps)
	deps.Shared.AddTopic("quantum computing")
	agent := deps.Registry.GetOrCreate("a1")
	for i := 0; i < store.MaxDailyProactive; i++ {
		agent.AppendProactive(store.ProactiveMessage{Timestamp: daytimeUTC, Message: "m"})
	}

	res := r.ProactiveMessage(context.Background(), "a1")
	if !res.OK || res.Detail != "daily limit (2) reached" {
		t.Errorf("result = %+v", res)
	}
}

func TestProactiveMessage_NoTopics(t *testing.T) {
	r := NewRunner(testDeps(t, &fakeLLM{configured: true, reply: "hi"}))
	res := r.ProactiveMessage(context.Background(), "a1")
	if !res.OK || res.Detail != "no topics to share" {
		t.Errorf("result = %+v", res)
	}
}

func TestProactiveMessage_StoresAndPushes(t *testing.T) {
	model := &fakeLLM{configured: true, reply: "Did you know about quantum computing?"}
	deps := testDeps(t, model)
	messenger := newFakeMessenger(true)
	deps.Telegram = messenger
	r := NewRunner(deps)

	deps.Shared.AddTopic("quantum computing")
	deps.Shared.LinkTelegramChat(42, "a1")
	deps.Shared.LinkTelegramChat(77, "other-agent")

	res := r.ProactiveMessage(context.Background(), "a1")
	if !res.OK || res.Detail != model.reply {
		t.Fatalf("result = %+v", res)
	}
	agent := deps.Registry.GetOrCreate("a1")
	if agent.ProactiveCount() != 1 {
		t.Errorf("ProactiveCount = %d", agent.ProactiveCount())
	}
	if deps.Outbox.Len() != 1 {
		t.Errorf("outbox length = %d", deps.Outbox.Len())
	}
	if got := messenger.sent[42]; len(got) != 1 || got[0] != model.reply {
		t.Errorf("sent to linked chat = %v", got)
	}
	if len(messenger.sent[77]) != 0 {
		t.Error("pushed to a chat linked to a different agent")
	}
	if got := model.calls[0].messages[1].Content; got != "Recently learned topics: quantum computing" {
		t.Errorf("user prompt = %q", got)
	}
}

func TestProactiveMessage_SanitizesOutput(t *testing.T) {
	model := &fakeLLM{configured: true, reply: "**Fun fact:** octopuses have three hearts"}
	deps := testDeps(t, model)
	messenger := newFakeMessenger(true)
	deps.Telegram = messenger
	r := NewRunner(deps)

	deps.Shared.AddTopic("octopuses")
	deps.Shared.LinkTelegramChat(42, "a1")

	if res := r.ProactiveMessage(context.Background(), "a1"); !res.OK {
		t.Fatalf("result = %+v", res)
	}
	agent := deps.Registry.GetOrCreate("a1")
	pm, ok := agent.LatestProactive()
	if !ok {
		t.Fatal("proactive message not stored")
	}
	if strings.Contains(pm.Message, "**") {
		t.Errorf("stored message not sanitized: %q", pm.Message)
	}
	if got := messenger.sent[42]; len(got) != 1 || strings.Contains(got[0], "**") {
		t.Errorf("pushed message not sanitized: %v", got)
	}
}

func TestPersonalityEvolve_NotYetTime(t *testing.T) {
	deps := testDeps(t, &fakeLLM{configured: true})
	r := NewRunner(deps)
	appendTurns(deps.Registry.GetOrCreate("a1"), store.EvolveTurnThreshold-1)

	res := r.PersonalityEvolve(context.Background(), "a1")
	if !res.OK || res.Detail != "Not yet time to evolve" {
		t.Errorf("result = %+v", res)
	}
}

func TestPersonalityEvolve_FiresAndResets(t *testing.T) {
	model := &fakeLLM{configured: true, reply: `{"warmth":2,"logic":-1}`}
	deps := testDeps(t, model)
	r := NewRunner(deps)
	agent := deps.Registry.GetOrCreate("a1")
	appendTurns(agent, store.EvolveTurnThreshold)

	res := r.PersonalityEvolve(context.Background(), "a1")
	if !res.OK {
		t.Fatalf("result = %+v", res)
	}
	if want := "Evolved: warmth=52, logic=49, creativity=50, energy=50, humor=50"; res.Detail != want {
		t.Errorf("Detail = %q, want %q", res.Detail, want)
	}
	if model.calls[0].maxTokens != 256 {
		t.Errorf("maxTokens = %d", model.calls[0].maxTokens)
	}

	// Trigger consumed: next run waits for another full window.
	res = r.PersonalityEvolve(context.Background(), "a1")
	if res.Detail != "Not yet time to evolve" {
		t.Errorf("second run Detail = %q", res.Detail)
	}
}

func TestPersonalityEvolve_MalformedOutputConsumesTrigger(t *testing.T) {
	deps := testDeps(t, &fakeLLM{configured: true, reply: "no json here"})
	r := NewRunner(deps)
	agent := deps.Registry.GetOrCreate("a1")
	appendTurns(agent, store.EvolveTurnThreshold)

	res := r.PersonalityEvolve(context.Background(), "a1")
	if res.OK || res.Detail != "evolution failed" {
		t.Errorf("result = %+v", res)
	}
	if p := agent.Personality(); p != store.DefaultPersonality() {
		t.Errorf("personality mutated by malformed output: %+v", p)
	}
	if r.PersonalityEvolve(context.Background(), "a1").Detail != "Not yet time to evolve" {
		t.Error("trigger must be consumed even on failure")
	}
}

func TestTopicResearch_NoTopics(t *testing.T) {
	r := NewRunner(testDeps(t, &fakeLLM{configured: true}))
	res := r.TopicResearch(context.Background())
	if !res.OK || res.Detail != "No topics to research" {
		t.Errorf("result = %+v", res)
	}
}

func TestTopicResearch_StoresNote(t *testing.T) {
	model := &fakeLLM{configured: true, reply: `{"topic":"black holes","facts":["a","b","c"]}`}
	deps := testDeps(t, model)
	r := NewRunner(deps)
	deps.Shared.AddTopic("dark matter")
	deps.Shared.AddTopic("black holes")

	res := r.TopicResearch(context.Background())
	if !res.OK || res.Detail != "Researched: black holes" {
		t.Fatalf("result = %+v", res)
	}
	if deps.Shared.ResearchCount() != 1 {
		t.Errorf("ResearchCount = %d", deps.Shared.ResearchCount())
	}
	if got := model.calls[0].messages[1].Content; got != "Research: black holes" {
		t.Errorf("user prompt = %q", got)
	}
}

func TestTopicResearch_SanitizesFacts(t *testing.T) {
	model := &fakeLLM{configured: true, reply: "**Facts** about dark matter:\n- it is invisible"}
	deps := testDeps(t, model)
	r := NewRunner(deps)
	deps.Shared.AddTopic("dark matter")

	if res := r.TopicResearch(context.Background()); !res.OK {
		t.Fatalf("result = %+v", res)
	}
	notes := deps.Shared.RecentResearch(1)
	if len(notes) != 1 {
		t.Fatalf("notes = %d", len(notes))
	}
	if strings.Contains(notes[0].Facts, "**") {
		t.Errorf("stored facts not sanitized: %q", notes[0].Facts)
	}
}

func TestSecurityScan_Counts(t *testing.T) {
	deps := testDeps(t, &fakeLLM{})
	r := NewRunner(deps)
	appendTurns(deps.Registry.GetOrCreate("a1"), 4)
	appendTurns(deps.Registry.GetOrCreate("a2"), 3)
	deps.Shared.RecordSecurityEvent(store.SecurityEvent{Timestamp: daytimeUTC, AgentID: "a1", Reason: "violence"})

	res := r.SecurityScan(context.Background())
	if !res.OK || res.Detail != "Scanned: 7 convos, 1 blocked" {
		t.Errorf("result = %+v", res)
	}
}

func TestTelegramBroadcast_NotConfigured(t *testing.T) {
	r := NewRunner(testDeps(t, &fakeLLM{}))
	res := r.TelegramBroadcast(context.Background(), "a1")
	if res.OK || res.Detail != "Telegram not configured" {
		t.Errorf("result = %+v", res)
	}
}

func TestTelegramBroadcast_NoMessages(t *testing.T) {
	deps := testDeps(t, &fakeLLM{})
	deps.Telegram = newFakeMessenger(true)
	r := NewRunner(deps)

	res := r.TelegramBroadcast(context.Background(), "a1")
	if !res.OK || res.Detail != "No messages to broadcast" {
		t.Errorf("result = %+v", res)
	}
}

func TestTelegramBroadcast_SendsToLinkedChats(t *testing.T) {
	deps := testDeps(t, &fakeLLM{})
	messenger := newFakeMessenger(true)
	deps.Telegram = messenger
	r := NewRunner(deps)

	deps.Registry.GetOrCreate("a1").AppendProactive(store.ProactiveMessage{Timestamp: daytimeUTC, Message: "news"})
	deps.Shared.LinkTelegramChat(1, "a1")
	deps.Shared.LinkTelegramChat(2, "a1")

	res := r.TelegramBroadcast(context.Background(), "a1")
	if !res.OK || res.Detail != "Broadcast to 2 chats" {
		t.Errorf("result = %+v", res)
	}
	if len(messenger.sent[1]) != 1 || len(messenger.sent[2]) != 1 {
		t.Errorf("sent = %v", messenger.sent)
	}
}

func TestTelegramBroadcast_SendFailureCounted(t *testing.T) {
	deps := testDeps(t, &fakeLLM{})
	messenger := newFakeMessenger(true)
	messenger.sendErr = errors.New("telegram down")
	deps.Telegram = messenger
	r := NewRunner(deps)

	deps.Registry.GetOrCreate("a1").AppendProactive(store.ProactiveMessage{Timestamp: daytimeUTC, Message: "news"})
	deps.Shared.LinkTelegramChat(1, "a1")

	res := r.TelegramBroadcast(context.Background(), "a1")
	if !res.OK || res.Detail != "Broadcast to 0 chats" {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_UnknownSkill(t *testing.T) {
	r := NewRunner(testDeps(t, &fakeLLM{}))
	res := r.Run(context.Background(), "no-such-skill", "")
	if res.OK || res.Detail != "unknown skill" {
		t.Errorf("result = %+v", res)
	}
}
