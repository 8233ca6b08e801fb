package channels

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/basket/gyeol/internal/chat"
	"github.com/basket/gyeol/internal/config"
	"github.com/basket/gyeol/internal/store"
)

type sentMessage struct {
	chatID string
	text   string
}

type botServer struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (b *botServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"GYEOL","username":"gyeol_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			r.ParseForm()
			b.mu.Lock()
			b.sent = append(b.sent, sentMessage{chatID: r.FormValue("chat_id"), text: r.FormValue("text")})
			b.mu.Unlock()
			io.WriteString(w, `{"ok":true,"result":{"message_id":1}}`)
		case strings.HasSuffix(r.URL.Path, "/setWebhook"):
			io.WriteString(w, `{"ok":true,"result":true}`)
		default:
			io.WriteString(w, `{"ok":true,"result":{}}`)
		}
	}
}

func (b *botServer) lastSent(t *testing.T) sentMessage {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return b.sent[len(b.sent)-1]
}

type fakeChatter struct {
	lastAgentID string
	lastMessage string
	lastChannel string
	reply       chat.Reply
}

func (f *fakeChatter) Handle(_ context.Context, agentID, message, channel string) chat.Reply {
	f.lastAgentID = agentID
	f.lastMessage = message
	f.lastChannel = channel
	return f.reply
}

func startedTelegram(t *testing.T) (*Telegram, *botServer, *store.Registry, *store.SharedStore, *fakeChatter) {
	t.Helper()
	bs := &botServer{}
	srv := httptest.NewServer(bs.handler())
	t.Cleanup(srv.Close)

	registry := store.NewRegistry(9)
	shared := store.NewSharedStore()
	chatter := &fakeChatter{reply: chat.Reply{Message: "model says hi", Model: "test-model", Language: "en"}}
	tg := NewTelegram(config.TelegramConfig{Token: "12345678:test-token"}, registry, shared, chatter,
		slog.New(slog.NewJSONHandler(io.Discard, nil)))
	tg.endpoint = srv.URL + "/bot%s/%s"

	if err := tg.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return tg, bs, registry, shared, chatter
}

func textUpdate(chatID int64, firstName, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{FirstName: firstName},
			Text: text,
		},
	}
}

func TestStart_RecordsBotUsername(t *testing.T) {
	_, _, _, shared, _ := startedTelegram(t)
	if got := shared.BotUsername(); got != "gyeol_bot" {
		t.Errorf("BotUsername = %q", got)
	}
}

func TestStart_NotConfiguredIsNoop(t *testing.T) {
	tg := NewTelegram(config.TelegramConfig{}, store.NewRegistry(9), store.NewSharedStore(), &fakeChatter{},
		slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err := tg.Start(context.Background()); err != nil {
		t.Errorf("Start = %v", err)
	}
	if tg.Configured() {
		t.Error("Configured must be false without a token")
	}
}

func TestHandleUpdate_StartCommand(t *testing.T) {
	tg, bs, _, _, _ := startedTelegram(t)

	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "/start"))
	if got := bs.lastSent(t); got.text != "Hi Alex! I'm GYEOL, your AI companion. Talk to me anytime!" {
		t.Errorf("greeting = %q", got.text)
	}

	tg.HandleUpdate(context.Background(), textUpdate(43, "지우", "/start"))
	if got := bs.lastSent(t); got.text != "지우님 안녕! 나는 GYEOL이야. 언제든 말 걸어줘!" {
		t.Errorf("korean greeting = %q", got.text)
	}
}

func TestHandleUpdate_LinkCommand(t *testing.T) {
	tg, bs, _, shared, _ := startedTelegram(t)

	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "/link short"))
	if got := bs.lastSent(t); got.text != "Usage: /link <agent_id>" {
		t.Errorf("reply = %q", got.text)
	}
	if _, ok := shared.AgentForChat(42); ok {
		t.Error("short id must not link")
	}

	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "/link agent-12345"))
	if got := bs.lastSent(t); got.text != "Agent linked! Your chats are now synced." {
		t.Errorf("reply = %q", got.text)
	}
	if agentID, ok := shared.AgentForChat(42); !ok || agentID != "agent-12345" {
		t.Errorf("linked agent = %q, %v", agentID, ok)
	}
}

func TestHandleUpdate_TimezoneCommand(t *testing.T) {
	tg, bs, registry, shared, _ := startedTelegram(t)

	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "/timezone abc"))
	if got := bs.lastSent(t); got.text != "Usage: /timezone +9" {
		t.Errorf("reply = %q", got.text)
	}

	// Not linked yet.
	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "/timezone +9"))
	if got := bs.lastSent(t); got.text != "Link an agent first or use valid offset (-12 to +14)" {
		t.Errorf("reply = %q", got.text)
	}

	shared.LinkTelegramChat(42, "agent-12345")
	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "/timezone +9"))
	if got := bs.lastSent(t); got.text != "Timezone set to UTC+9" {
		t.Errorf("reply = %q", got.text)
	}
	if got := registry.GetOrCreate("agent-12345").TimezoneOffset(); got != 9 {
		t.Errorf("offset = %d", got)
	}

	// Out of range.
	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "/timezone 20"))
	if got := bs.lastSent(t); got.text != "Link an agent first or use valid offset (-12 to +14)" {
		t.Errorf("reply = %q", got.text)
	}
}

func TestHandleUpdate_StatusCommand(t *testing.T) {
	tg, bs, registry, shared, _ := startedTelegram(t)
	shared.AddTopic("exoplanets")
	shared.LinkTelegramChat(42, "agent-12345")
	agent := registry.GetOrCreate("agent-12345")
	agent.AppendTurn(store.ConversationTurn{User: "hi", Assistant: "hello"})

	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "/status"))
	want := fmt.Sprintf("GYEOL Status\nConversations: %d\nTopics: %d\nW50 L50 C50 E50 H50", 1, 1)
	if got := bs.lastSent(t); got.text != want {
		t.Errorf("status = %q, want %q", got.text, want)
	}
}

func TestHandleUpdate_RelaysChat(t *testing.T) {
	tg, bs, _, shared, chatter := startedTelegram(t)
	shared.LinkTelegramChat(42, "agent-12345")

	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "tell me something"))
	if chatter.lastAgentID != "agent-12345" || chatter.lastMessage != "tell me something" || chatter.lastChannel != "telegram" {
		t.Errorf("chatter called with %q %q %q", chatter.lastAgentID, chatter.lastMessage, chatter.lastChannel)
	}
	if got := bs.lastSent(t); got.text != "model says hi" || got.chatID != "42" {
		t.Errorf("sent = %+v", got)
	}
}

func TestHandleUpdate_UnlinkedChatUsesDefaultAgent(t *testing.T) {
	tg, _, _, _, chatter := startedTelegram(t)

	tg.HandleUpdate(context.Background(), textUpdate(99, "Alex", "hello"))
	if chatter.lastAgentID != "" {
		t.Errorf("agent id = %q, want empty for unlinked chat", chatter.lastAgentID)
	}
}

func TestHandleUpdate_IgnoresNonText(t *testing.T) {
	tg, bs, _, _, _ := startedTelegram(t)
	tg.HandleUpdate(context.Background(), tgbotapi.Update{})
	tg.HandleUpdate(context.Background(), textUpdate(42, "Alex", "   "))
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if len(bs.sent) != 0 {
		t.Errorf("sent = %v", bs.sent)
	}
}
