// Package gateway exposes the HTTP API: chat, status, memory, heartbeat
// trigger, activity feeds and the Telegram webhook.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/basket/gyeol/internal/bus"
	"github.com/basket/gyeol/internal/chat"
	"github.com/basket/gyeol/internal/config"
	"github.com/basket/gyeol/internal/heartbeat"
	gyeolotel "github.com/basket/gyeol/internal/otel"
	"github.com/basket/gyeol/internal/skills"
	"github.com/basket/gyeol/internal/store"
)

const maxRequestBody = 1 << 20

// Chatter answers one chat message.
type Chatter interface {
	Handle(ctx context.Context, agentID, message, channel string) chat.Reply
}

// CycleTrigger runs one heartbeat cycle on demand.
type CycleTrigger interface {
	Trigger(ctx context.Context) (store.SkillsLogEntry, error)
}

// TelegramChannel is the surface the gateway needs from the Telegram bot.
type TelegramChannel interface {
	Configured() bool
	SetWebhook(url string) error
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Config wires the server's collaborators.
type Config struct {
	Cfg       config.Config
	Version   string
	Registry  *store.Registry
	Shared    *store.SharedStore
	Chat      Chatter
	Heartbeat CycleTrigger
	Telegram  TelegramChannel
	Bus       *bus.Bus
	Logger    *slog.Logger
	StartedAt time.Time

	// Optional telemetry. Nil disables instrumentation.
	Tracer  trace.Tracer
	Metrics *gyeolotel.Metrics
}

// Server is the HTTP API server.
type Server struct {
	cfg Config
	rl  *RateLimitMiddleware
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now().UTC()
	}
	s := &Server{cfg: cfg, rl: NewRateLimitMiddleware(cfg.Cfg.RateLimit)}
	if cfg.Metrics != nil {
		s.rl.OnReject(func() {
			cfg.Metrics.RateLimitRejects.Add(context.Background(), 1)
		})
	}
	return s
}

// Stale rate-limit buckets are evicted on this cadence.
const (
	bucketEvictInterval = 5 * time.Minute
	bucketEvictMaxAge   = 15 * time.Minute
)

// StartBackgroundTasks launches the gateway's housekeeping goroutines: stale
// rate-limit bucket eviction and the activity metrics relay. Both stop when
// ctx is cancelled.
func (s *Server) StartBackgroundTasks(ctx context.Context) {
	s.rl.StartEviction(ctx, bucketEvictInterval, bucketEvictMaxAge)
	if s.cfg.Metrics != nil && s.cfg.Bus != nil {
		go s.relayMetrics(ctx)
	}
}

// Handler returns the routed handler with CORS, size-limit and rate-limit
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/skills", s.handleSkills)
	mux.HandleFunc("/api/memory", s.handleMemory)
	mux.HandleFunc("/api/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("/api/activity", s.handleActivity)
	mux.HandleFunc("/api/activity/stream", s.handleActivityStream)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/telegram/webhook", s.handleTelegramWebhook)
	mux.HandleFunc("/api/telegram/setup", s.handleTelegramSetup)
	mux.HandleFunc("/api/telegram/links", s.handleTelegramLinks)

	var handler http.Handler = mux
	handler = s.telemetryMiddleware(handler)
	handler = RequestSizeLimitMiddleware(maxRequestBody)(handler)
	handler = NewCORSMiddleware(s.cfg.Cfg.CORS)(handler)
	handler = s.rl.Wrap(handler)
	return handler
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "GYEOL OpenClaw Server",
		"version": s.cfg.Version,
		"status":  "running",
		"agents":  s.cfg.Registry.Count(),
		"docs":    "/docs",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]string{
		"server":    "ok",
		"groq":      configuredLabel(s.cfg.Cfg.GroqConfigured()),
		"supabase":  configuredLabel(s.cfg.Cfg.SupabaseConfigured()),
		"telegram":  configuredLabel(s.cfg.Cfg.TelegramConfigured()),
		"scheduler": schedulerLabel(s.cfg.Heartbeat != nil),
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy": checks["server"] == "ok" && checks["groq"] == "configured",
		"checks":  checks,
	})
}

type chatRequest struct {
	AgentID string `json:"agentId"`
	Message string `json:"message"`
	Channel string `json:"channel"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "message is required"})
		return
	}
	start := time.Now()
	reply := s.cfg.Chat.Handle(r.Context(), req.AgentID, req.Message, req.Channel)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ChatDuration.Record(r.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("model", reply.Model)))
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")

	conversations := s.cfg.Registry.TotalConversations()
	reflections := s.cfg.Registry.TotalReflections()
	personality := store.DefaultPersonality()
	if agentID != "" {
		agent := s.cfg.Registry.GetOrCreate(agentID)
		conversations = agent.TurnCount()
		reflections = agent.ReflectionCount()
		personality = agent.Personality()
	}

	var lastHeartbeat any
	if ts, ok := s.cfg.Shared.LastHeartbeat(); ok {
		lastHeartbeat = ts.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connected":                  true,
		"version":                    s.cfg.Version,
		"uptime_seconds":             int(time.Since(s.cfg.StartedAt).Seconds()),
		"groq_configured":            s.cfg.Cfg.GroqConfigured(),
		"supabase_configured":        s.cfg.Cfg.SupabaseConfigured(),
		"telegram_configured":        s.cfg.Cfg.TelegramConfigured(),
		"telegram_bot_username":      s.cfg.Shared.BotUsername(),
		"heartbeat_interval_minutes": s.cfg.Cfg.HeartbeatIntervalMinutes,
		"agents_count":               s.cfg.Registry.Count(),
		"conversations_count":        conversations,
		"reflections_count":          reflections,
		"learned_topics_count":       s.cfg.Shared.TopicCount(),
		"personality":                personality,
		"last_heartbeat":             lastHeartbeat,
	})
}

func allSkillNames() []string {
	names := append([]string(nil), skills.GlobalSkills...)
	names = append(names, skills.AgentSkills...)
	return append(names, skills.SkillSupabaseSync)
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	personality := store.DefaultPersonality()
	if agentID != "" {
		personality = s.cfg.Registry.GetOrCreate(agentID).Personality()
	}

	var lastRun any
	if entries := s.cfg.Shared.RecentSkillsLog(1); len(entries) > 0 {
		lastRun = entries[0]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"skills":         allSkillNames(),
		"last_run":       lastRun,
		"learned_topics": s.cfg.Shared.RecentTopics(10),
		"personality":    personality,
	})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"agents_count":        s.cfg.Registry.Count(),
			"total_conversations": s.cfg.Registry.TotalConversations(),
			"learned_topics":      s.cfg.Shared.RecentTopics(20),
		})
		return
	}

	agent := s.cfg.Registry.GetOrCreate(agentID)
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":            agentID,
		"conversations_count": agent.TurnCount(),
		"reflections":         agent.RecentReflections(5),
		"learned_topics":      s.cfg.Shared.RecentTopics(20),
		"personality":         agent.Personality(),
		"proactive_messages":  agent.RecentProactive(5),
	})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.Heartbeat == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "scheduler not running"})
		return
	}
	entry, err := s.cfg.Heartbeat.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, heartbeat.ErrCycleRunning) {
			writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "error": "cycle already running"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "agents": entry.AgentsCount})
}

// activityTypes maps skill names to the activity categories the web client
// groups by.
var activityTypes = map[string]string{
	skills.SkillSelfReflect:       "reflection",
	skills.SkillLearnRSS:          "learning",
	skills.SkillProactiveMessage:  "proactive_message",
	skills.SkillTopicResearch:     "learning",
	skills.SkillTelegramBroadcast: "social",
}

type activityRow struct {
	ID           string            `json:"id"`
	AgentID      string            `json:"agent_id"`
	ActivityType string            `json:"activity_type"`
	Summary      string            `json:"summary"`
	Details      store.SkillResult `json:"details"`
	WasSandboxed bool              `json:"was_sandboxed"`
	CreatedAt    string            `json:"created_at"`
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	rows := []activityRow{}
	entries := s.cfg.Shared.RecentSkillsLog(store.MaxSkillsLogEntries)
	for i := len(entries) - 1; i >= 0 && len(rows) < limit; i-- {
		entry := entries[i]
		ts := entry.Timestamp.Format(time.RFC3339)
		for _, res := range entry.Results {
			if agentID != "" && res.AgentID != "" && res.AgentID != agentID {
				continue
			}
			activityType, ok := activityTypes[res.Skill]
			if !ok {
				activityType = "skill_execution"
			}
			rows = append(rows, activityRow{
				ID:           fmt.Sprintf("%s-%s-%s", ts, res.Skill, res.AgentID),
				AgentID:      res.AgentID,
				ActivityType: activityType,
				Summary:      res.Detail,
				Details:      res,
				WasSandboxed: true,
				CreatedAt:    ts,
			})
			if len(rows) >= limit {
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.Telegram == nil || !s.cfg.Telegram.Configured() {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "reason": "Telegram not configured"})
		return
	}
	if secret := s.cfg.Cfg.Telegram.WebhookSecret; secret != "" {
		if r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != secret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "reason": "invalid update"})
		return
	}
	s.cfg.Telegram.HandleUpdate(r.Context(), update)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type telegramSetupRequest struct {
	WebhookURL string `json:"webhookUrl"`
}

func (s *Server) handleTelegramSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.Telegram == nil || !s.cfg.Telegram.Configured() {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "TELEGRAM_BOT_TOKEN not set"})
		return
	}
	var req telegramSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.WebhookURL) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "webhookUrl is required"})
		return
	}
	if err := s.cfg.Telegram.SetWebhook(req.WebhookURL); err != nil {
		s.cfg.Logger.Error("webhook setup failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTelegramLinks(w http.ResponseWriter, _ *http.Request) {
	links := map[string]map[string]string{}
	for chatID, agentID := range s.cfg.Shared.TelegramLinks() {
		links[strconv.FormatInt(chatID, 10)] = map[string]string{"agent_id": agentID}
	}
	writeJSON(w, http.StatusOK, links)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func configuredLabel(configured bool) string {
	if configured {
		return "configured"
	}
	return "not_configured"
}

func schedulerLabel(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}
