// Package channels connects external messaging surfaces to the chat handler.
package channels

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/basket/gyeol/internal/chat"
	"github.com/basket/gyeol/internal/config"
	"github.com/basket/gyeol/internal/lang"
	"github.com/basket/gyeol/internal/store"
)

// Chatter answers inbound messages relayed from a channel.
type Chatter interface {
	Handle(ctx context.Context, agentID, message, channel string) chat.Reply
}

// greetings for /start, keyed by the detected language of the user's name.
var greetings = map[string]string{
	"ko": "%s님 안녕! 나는 GYEOL이야. 언제든 말 걸어줘!",
	"ja": "%sさん、こんにちは！GYEOLだよ。",
	"zh": "%s，你好！我是GYEOL。",
	"es": "¡Hola %s! Soy GYEOL.",
	"fr": "Salut %s ! Je suis GYEOL.",
	"de": "Hallo %s! Ich bin GYEOL.",
	"pt": "Oi %s! Sou GYEOL.",
}

const greetingDefault = "Hi %s! I'm GYEOL, your AI companion. Talk to me anytime!"

// Telegram receives webhook updates and pushes outbound messages.
type Telegram struct {
	cfg      config.TelegramConfig
	endpoint string
	bot      *tgbotapi.BotAPI
	registry *store.Registry
	shared   *store.SharedStore
	chat     Chatter
	logger   *slog.Logger
}

// NewTelegram creates the channel. The bot connects lazily in Start so an
// unconfigured token is not an error.
func NewTelegram(cfg config.TelegramConfig, registry *store.Registry, shared *store.SharedStore, chatter Chatter, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		cfg:      cfg,
		endpoint: tgbotapi.APIEndpoint,
		registry: registry,
		shared:   shared,
		chat:     chatter,
		logger:   logger,
	}
}

// SetChatter replaces the chat handler. Must be called before updates
// arrive when the channel was constructed without one.
func (t *Telegram) SetChatter(c Chatter) {
	t.chat = c
}

// Configured reports whether a bot token is present.
func (t *Telegram) Configured() bool {
	return strings.TrimSpace(t.cfg.Token) != ""
}

// Start connects to the bot API and records the bot username.
func (t *Telegram) Start(_ context.Context) error {
	if !t.Configured() {
		t.logger.Info("telegram not configured, channel disabled")
		return nil
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.cfg.Token, t.endpoint)
	if err != nil {
		return fmt.Errorf("telegram init: %w", err)
	}
	t.bot = bot
	t.shared.SetBotUsername(bot.Self.UserName)
	t.logger.Info("telegram bot started", "user", bot.Self.UserName)
	return nil
}

// Send delivers one text message to a chat.
func (t *Telegram) Send(_ context.Context, chatID int64, text string) error {
	if t.bot == nil {
		return fmt.Errorf("telegram: not started")
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// SetWebhook registers webhookURL with the bot API.
func (t *Telegram) SetWebhook(webhookURL string) error {
	if t.bot == nil {
		return fmt.Errorf("telegram: not started")
	}
	if _, err := tgbotapi.NewWebhook(webhookURL); err != nil {
		return fmt.Errorf("telegram webhook url: %w", err)
	}
	// The pinned library predates Bot API 6.1's secret_token field, so the
	// parameter is sent directly instead of via WebhookConfig.
	params := tgbotapi.Params{"url": webhookURL}
	params.AddNonEmpty("secret_token", t.cfg.WebhookSecret)
	if _, err := t.bot.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("telegram set webhook: %w", err)
	}
	t.logger.Info("telegram webhook registered", "url", webhookURL)
	return nil
}

// HandleUpdate processes one inbound webhook update: bot commands directly,
// anything else through the chat handler. Replies are best-effort.
func (t *Telegram) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	chatID := msg.Chat.ID
	text := msg.Text
	name := "User"
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}
	linkedAgent, _ := t.shared.AgentForChat(chatID)

	switch {
	case text == "/start":
		t.shared.RegisterTelegramChat(chatID, name)
		t.reply(ctx, chatID, t.greeting(name))

	case text == "/status":
		t.reply(ctx, chatID, t.statusText(linkedAgent))

	case strings.HasPrefix(text, "/link "):
		agentID := strings.TrimSpace(strings.TrimPrefix(text, "/link "))
		if len(agentID) > 8 {
			t.shared.LinkTelegramChat(chatID, agentID)
			t.reply(ctx, chatID, "Agent linked! Your chats are now synced.")
		} else {
			t.reply(ctx, chatID, "Usage: /link <agent_id>")
		}

	case strings.HasPrefix(text, "/timezone "):
		t.handleTimezone(ctx, chatID, linkedAgent, strings.TrimPrefix(text, "/timezone "))

	default:
		if t.chat == nil {
			return
		}
		t.shared.RegisterTelegramChat(chatID, name)
		reply := t.chat.Handle(ctx, linkedAgent, text, "telegram")
		t.reply(ctx, chatID, reply.Message)
	}
}

func (t *Telegram) greeting(name string) string {
	if g, ok := greetings[lang.Detect(name)]; ok {
		return fmt.Sprintf(g, name)
	}
	return fmt.Sprintf(greetingDefault, name)
}

func (t *Telegram) statusText(linkedAgent string) string {
	p := store.DefaultPersonality()
	convos := 0
	if linkedAgent != "" {
		agent := t.registry.GetOrCreate(linkedAgent)
		p = agent.Personality()
		convos = agent.TurnCount()
	}
	return fmt.Sprintf("GYEOL Status\nConversations: %d\nTopics: %d\nW%d L%d C%d E%d H%d",
		convos, t.shared.TopicCount(), p.Warmth, p.Logic, p.Creativity, p.Energy, p.Humor)
}

func (t *Telegram) handleTimezone(ctx context.Context, chatID int64, linkedAgent, arg string) {
	offset, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(arg), "+", ""))
	if err != nil {
		t.reply(ctx, chatID, "Usage: /timezone +9")
		return
	}
	if linkedAgent == "" || !t.registry.GetOrCreate(linkedAgent).SetTimezoneOffset(offset) {
		t.reply(ctx, chatID, "Link an agent first or use valid offset (-12 to +14)")
		return
	}
	t.reply(ctx, chatID, fmt.Sprintf("Timezone set to UTC%+d", offset))
}

func (t *Telegram) reply(ctx context.Context, chatID int64, text string) {
	if err := t.Send(ctx, chatID, text); err != nil {
		t.logger.Warn("telegram reply failed", "chat_id", chatID, "error", err)
	}
}
