// Package heartbeat schedules and runs the autonomous skill cycle.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/basket/gyeol/internal/bus"
	"github.com/basket/gyeol/internal/skills"
	"github.com/basket/gyeol/internal/store"
)

// ErrCycleRunning is returned when a trigger overlaps an in-flight cycle.
var ErrCycleRunning = errors.New("heartbeat: cycle already running")

// SkillRunner executes one skill by name.
type SkillRunner interface {
	Run(ctx context.Context, skill, agentID string) store.SkillResult
}

// Manager runs the skill cycle on a schedule and on demand. At most one cycle
// runs at a time; overlapping triggers are rejected, not queued.
type Manager struct {
	runner   SkillRunner
	registry *store.Registry
	shared   *store.SharedStore
	bus      *bus.Bus
	logger   *slog.Logger
	interval time.Duration
	cronSpec string
	now      func() time.Time

	running sync.Mutex
	sched   *cron.Cron
	wg      sync.WaitGroup
}

// Options configures a Manager.
type Options struct {
	IntervalMinutes int
	CronSpec        string // overrides IntervalMinutes when set
	Now             func() time.Time
}

// New creates a Manager. A non-positive interval falls back to 30 minutes.
func New(runner SkillRunner, registry *store.Registry, shared *store.SharedStore, b *bus.Bus, logger *slog.Logger, opts Options) *Manager {
	if opts.IntervalMinutes <= 0 {
		opts.IntervalMinutes = 30
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		runner:   runner,
		registry: registry,
		shared:   shared,
		bus:      b,
		logger:   logger,
		interval: time.Duration(opts.IntervalMinutes) * time.Minute,
		cronSpec: opts.CronSpec,
		now:      opts.Now,
	}
}

// Start schedules the cycle and kicks off an immediate first run. The
// schedule stops when ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	spec := m.cronSpec
	if spec == "" {
		spec = fmt.Sprintf("@every %s", m.interval)
	}

	m.sched = cron.New()
	_, err := m.sched.AddFunc(spec, func() {
		if _, err := m.Trigger(ctx); err != nil {
			m.logger.Warn("scheduled heartbeat skipped", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("heartbeat schedule %q: %w", spec, err)
	}

	m.logger.Info("starting heartbeat", "schedule", spec)
	m.sched.Start()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.Trigger(ctx); err != nil {
			m.logger.Warn("initial heartbeat skipped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		m.sched.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for the startup cycle to finish. An
// in-flight scheduled cycle completes in the background.
func (m *Manager) Stop() {
	if m.sched != nil {
		<-m.sched.Stop().Done()
	}
	m.wg.Wait()
}

// Trigger runs one cycle now. Returns ErrCycleRunning if a cycle is already
// in flight.
func (m *Manager) Trigger(ctx context.Context) (store.SkillsLogEntry, error) {
	if !m.running.TryLock() {
		return store.SkillsLogEntry{}, ErrCycleRunning
	}
	defer m.running.Unlock()
	return m.runCycle(ctx), nil
}

// runCycle executes every skill in order: global skills, then the per-agent
// set over a snapshot of the agents present at cycle start, then the mirror
// sync. The caller holds the running lock.
func (m *Manager) runCycle(ctx context.Context) store.SkillsLogEntry {
	started := m.now()
	m.logger.Info("heartbeat started")

	var results []store.SkillResult
	for _, skill := range skills.GlobalSkills {
		results = append(results, m.runner.Run(ctx, skill, ""))
	}

	agentIDs := m.registry.AgentIDs()
	for _, agentID := range agentIDs {
		for _, skill := range skills.AgentSkills {
			results = append(results, m.runner.Run(ctx, skill, agentID))
		}
	}

	results = append(results, m.runner.Run(ctx, skills.SkillSupabaseSync, ""))

	entry := store.SkillsLogEntry{
		Timestamp:   started,
		Results:     results,
		AgentsCount: len(agentIDs),
	}
	m.shared.AppendSkillsLog(entry)
	m.publish(entry)

	m.logger.Info("heartbeat completed", "results", len(results), "agents", len(agentIDs))
	return entry
}

func (m *Manager) publish(entry store.SkillsLogEntry) {
	if m.bus == nil {
		return
	}
	ts := entry.Timestamp.Format(time.RFC3339)
	failures := 0
	for _, r := range entry.Results {
		if !r.OK {
			failures++
		}
		m.bus.Publish(bus.TopicSkillResult, bus.SkillResultEvent{
			EventID: fmt.Sprintf("%s-%s", ts, r.Skill),
			Skill:   r.Skill,
			AgentID: r.AgentID,
			OK:      r.OK,
			Detail:  r.Detail,
		})
	}
	m.bus.Publish(bus.TopicHeartbeatCycle, bus.HeartbeatCycleEvent{
		EventID:     fmt.Sprintf("%s-cycle", ts),
		Timestamp:   ts,
		AgentsCount: entry.AgentsCount,
		Results:     len(entry.Results),
		Failures:    failures,
	})
}
