// Command gyeold runs the GYEOL companion server: the HTTP API, the
// Telegram channel and the autonomous heartbeat scheduler.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/basket/gyeol/internal/bus"
	"github.com/basket/gyeol/internal/channels"
	"github.com/basket/gyeol/internal/chat"
	"github.com/basket/gyeol/internal/config"
	"github.com/basket/gyeol/internal/feeds"
	"github.com/basket/gyeol/internal/gateway"
	"github.com/basket/gyeol/internal/heartbeat"
	"github.com/basket/gyeol/internal/llm"
	otelPkg "github.com/basket/gyeol/internal/otel"
	"github.com/basket/gyeol/internal/skills"
	"github.com/basket/gyeol/internal/store"
	"github.com/basket/gyeol/internal/supabase"
	"github.com/basket/gyeol/internal/telemetry"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "1.0.0"

func main() {
	loadDotEnv(".env")

	quiet := flag.Bool("quiet", false, "log to file only, keep stdout clean")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatalStartup(nil, "E_CONFIG_LOAD", err)
	}

	logger, closer, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, *quiet)
	if err != nil {
		fatalStartup(nil, "E_LOGGER_INIT", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("startup phase", "phase", "config_loaded", "fingerprint", cfg.Fingerprint())

	if !cfg.GroqConfigured() {
		logger.Warn("no model API key configured, chat will answer with fallback messages")
	}

	otelProvider, err := otelPkg.Init(ctx, cfg.OTel, Version)
	if err != nil {
		fatalStartup(logger, "E_OTEL_INIT", err)
	}
	defer otelProvider.Shutdown(context.Background())
	metrics, err := otelPkg.NewMetrics(otelProvider.Meter)
	if err != nil {
		fatalStartup(logger, "E_OTEL_INIT", err)
	}

	eventBus := bus.New()
	registry := store.NewRegistry(cfg.DefaultTimezoneOffset)
	shared := store.NewSharedStore()
	outbox := store.NewOutbox()

	db := supabase.New(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	if db.Configured() {
		if err := supabase.Restore(ctx, db, registry, shared, logger); err != nil {
			logger.Warn("mirror restore failed, starting with empty memory", "error", err)
		}
	}
	logger.Info("startup phase", "phase", "memory_restored",
		"agents", registry.Count(), "topics", shared.TopicCount())

	model := llm.NewGroq(cfg.Groq.APIKey, cfg.Groq.Model, cfg.Groq.BaseURL)

	sources := feeds.NewSources(config.SourcesPath(cfg.HomeDir), logger)
	go func() {
		if err := sources.Watch(ctx); err != nil {
			logger.Warn("learning-sources watcher stopped", "error", err)
		}
	}()

	telegram := channels.NewTelegram(cfg.Telegram, registry, shared, nil, logger)

	runner := skills.NewRunner(skills.Deps{
		Registry: registry,
		Shared:   shared,
		Outbox:   outbox,
		LLM:      model,
		DB:       db,
		Telegram: telegram,
		Bus:      eventBus,
		Sources:  sources,
		Logger:   logger,
	})
	kicker := skills.NewKicker(runner, 0, logger)
	defer kicker.Stop()

	handler := chat.NewHandler(registry, shared, outbox, model, eventBus, kicker, logger)
	telegram.SetChatter(handler)

	if err := telegram.Start(ctx); err != nil {
		logger.Warn("telegram channel failed to start", "error", err)
	} else if telegram.Configured() && cfg.Telegram.WebhookURL != "" {
		if err := telegram.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
			logger.Warn("telegram webhook registration failed", "error", err)
		}
	}

	manager := heartbeat.New(runner, registry, shared, eventBus, logger, heartbeat.Options{
		IntervalMinutes: cfg.HeartbeatIntervalMinutes,
		CronSpec:        cfg.HeartbeatCron,
	})
	if err := manager.Start(ctx); err != nil {
		fatalStartup(logger, "E_SCHEDULER_START", err)
	}
	defer manager.Stop()
	logger.Info("startup phase", "phase", "scheduler_started",
		"interval_minutes", cfg.HeartbeatIntervalMinutes, "cron", cfg.HeartbeatCron)

	gw := gateway.New(gateway.Config{
		Cfg:       cfg,
		Version:   Version,
		Registry:  registry,
		Shared:    shared,
		Chat:      handler,
		Heartbeat: manager,
		Telegram:  telegram,
		Bus:       eventBus,
		Logger:    logger,
		StartedAt: time.Now().UTC(),
		Tracer:    otelProvider.Tracer,
		Metrics:   metrics,
	})
	gw.StartBackgroundTasks(ctx)

	server := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: gw.Handler(),
	}
	serverErr := make(chan error, 1)
	ln, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		if isAddrInUse(err) {
			fatalStartup(logger, "E_LISTENER_BIND",
				fmt.Errorf("%w\n\n  %s", err, portHint(cfg.BindAddr)))
		}
		fatalStartup(logger, "E_LISTENER_BIND", err)
	}
	go func() {
		logger.Info("gateway listening", "addr", cfg.BindAddr, "ws", "/ws")
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	if isatty.IsTerminal(os.Stdout.Fd()) && *quiet {
		fmt.Printf("gyeold %s listening on %s\n", Version, cfg.BindAddr)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("gateway server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

func fatalStartup(logger *slog.Logger, reasonCode string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	if logger != nil {
		logger.Error("startup failure", "reason_code", reasonCode, "error", message)
	} else {
		fmt.Fprintf(
			os.Stderr,
			`{"timestamp":"%s","level":"ERROR","component":"gyeold","msg":"startup failure","reason_code":%q,"error":%q}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano),
			reasonCode,
			message,
		)
	}
	os.Exit(1)
}

func isAddrInUse(err error) bool {
	if opErr, ok := err.(*net.OpError); ok {
		if sysErr, ok := opErr.Err.(*os.SyscallError); ok {
			return sysErr.Err == syscall.EADDRINUSE
		}
	}
	return strings.Contains(err.Error(), "address already in use")
}

func portHint(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("Another process is using %s. Stop it first or change bind_addr in config.yaml.", addr)
	}
	return fmt.Sprintf("Port %s is already in use. Stop the existing process or change bind_addr in config.yaml.", port)
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		_ = os.Setenv(key, val)
	}
}
