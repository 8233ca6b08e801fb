package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GroqConfig holds settings for the Groq chat-completion endpoint.
type GroqConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// SupabaseConfig holds settings for the external mirror store.
type SupabaseConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
}

// TelegramConfig holds settings for the Telegram channel.
type TelegramConfig struct {
	Token         string `yaml:"token"`
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// CORSConfig controls cross-origin access to the HTTP API.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// RateLimitConfig throttles API requests per client address.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	BurstSize         int  `yaml:"burst_size"`
}

// OTelConfig controls trace/metric export. Disabled by default.
type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

type Config struct {
	HomeDir string `yaml:"-"`

	BindAddr string `yaml:"bind_addr"`
	LogLevel string `yaml:"log_level"`

	HeartbeatIntervalMinutes int `yaml:"heartbeat_interval_minutes"`
	// HeartbeatCron, when set, overrides the interval with a cron expression.
	HeartbeatCron string `yaml:"heartbeat_cron"`

	// DefaultTimezoneOffset is the UTC offset (hours) assigned to new agents.
	DefaultTimezoneOffset int `yaml:"default_timezone_offset"`

	Groq      GroqConfig      `yaml:"groq"`
	Supabase  SupabaseConfig  `yaml:"supabase"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	OTel      OTelConfig      `yaml:"otel"`
}

// ConfigPath returns the path to config.yaml within the given home directory.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

// SourcesPath returns the path to the learning-sources file within the home
// directory. Each non-comment line is a candidate RSS feed URL.
func SourcesPath(homeDir string) string {
	return filepath.Join(homeDir, "LEARNING_SOURCES.md")
}

// Fingerprint returns a stable hash of the active config.
func (c Config) Fingerprint() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "bind=%s|log=%s|hb=%d|cron=%s|tz=%d|model=%s|supabase=%t|telegram=%t",
		c.BindAddr, c.LogLevel, c.HeartbeatIntervalMinutes, c.HeartbeatCron,
		c.DefaultTimezoneOffset, c.Groq.Model, c.Supabase.URL != "", c.Telegram.Token != "")
	return fmt.Sprintf("cfg-%x", h.Sum64())
}

// GroqConfigured reports whether a model credential is present.
func (c Config) GroqConfigured() bool {
	return strings.TrimSpace(c.Groq.APIKey) != ""
}

// SupabaseConfigured reports whether the external mirror is usable.
func (c Config) SupabaseConfigured() bool {
	return strings.TrimSpace(c.Supabase.URL) != "" && strings.TrimSpace(c.Supabase.ServiceKey) != ""
}

// TelegramConfigured reports whether the Telegram channel is usable.
func (c Config) TelegramConfigured() bool {
	return strings.TrimSpace(c.Telegram.Token) != ""
}

func defaultConfig() Config {
	return Config{
		BindAddr:                 "0.0.0.0:8000",
		LogLevel:                 "info",
		HeartbeatIntervalMinutes: 30,
		DefaultTimezoneOffset:    9,
		Groq: GroqConfig{
			Model:   "llama-3.3-70b-versatile",
			BaseURL: "https://api.groq.com/openai/v1",
		},
		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
		},
	}
}

func HomeDir() string {
	if override := os.Getenv("GYEOL_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".gyeol")
}

func Load() (Config, error) {
	cfg := defaultConfig()
	cfg.HomeDir = HomeDir()

	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create gyeol home: %w", err)
	}

	data, err := os.ReadFile(ConfigPath(cfg.HomeDir))
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config.yaml: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "0.0.0.0:8000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HeartbeatIntervalMinutes <= 0 {
		cfg.HeartbeatIntervalMinutes = 30
	}
	if cfg.DefaultTimezoneOffset < -12 || cfg.DefaultTimezoneOffset > 14 {
		cfg.DefaultTimezoneOffset = 9
	}
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Groq.BaseURL == "" {
		cfg.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	cfg.Supabase.URL = strings.TrimRight(strings.TrimSpace(cfg.Supabase.URL), "/")
	if cfg.CORS.Enabled && len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("GYEOL_BIND"); raw != "" {
		cfg.BindAddr = raw
	}
	if raw := os.Getenv("GYEOL_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("HEARTBEAT_INTERVAL_MINUTES"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			cfg.HeartbeatIntervalMinutes = v
		}
	}
	if raw := os.Getenv("GROQ_API_KEY"); raw != "" {
		cfg.Groq.APIKey = raw
	}
	if raw := os.Getenv("GROQ_MODEL"); raw != "" {
		cfg.Groq.Model = raw
	}
	if raw := os.Getenv("SUPABASE_URL"); raw != "" {
		cfg.Supabase.URL = raw
	}
	if raw := os.Getenv("SUPABASE_SERVICE_KEY"); raw != "" {
		cfg.Supabase.ServiceKey = raw
	}
	if raw := os.Getenv("TELEGRAM_BOT_TOKEN"); raw != "" {
		cfg.Telegram.Token = raw
	}
	if raw := os.Getenv("TELEGRAM_WEBHOOK_URL"); raw != "" {
		cfg.Telegram.WebhookURL = raw
	}
	if raw := os.Getenv("TELEGRAM_WEBHOOK_SECRET"); raw != "" {
		cfg.Telegram.WebhookSecret = raw
	}
}
