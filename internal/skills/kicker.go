package skills

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/basket/gyeol/internal/store"
)

// defaultKickDelay batches bursts of chat activity into one sync.
const defaultKickDelay = 5 * time.Second

type syncRunner interface {
	Run(ctx context.Context, skill, agentID string) store.SkillResult
}

// Kicker schedules a near-term mirror sync after chat activity. Repeated
// kicks within the delay window collapse into a single run.
type Kicker struct {
	runner syncRunner
	logger *slog.Logger
	delay  time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewKicker creates a Kicker. A non-positive delay falls back to 5 seconds.
func NewKicker(runner syncRunner, delay time.Duration, logger *slog.Logger) *Kicker {
	if delay <= 0 {
		delay = defaultKickDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kicker{runner: runner, logger: logger, delay: delay}
}

// KickSync arms (or re-arms) the sync timer.
func (k *Kicker) KickSync(context.Context) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.timer != nil {
		k.timer.Reset(k.delay)
		return
	}
	k.timer = time.AfterFunc(k.delay, k.run)
}

func (k *Kicker) run() {
	k.mu.Lock()
	k.timer = nil
	k.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	result := k.runner.Run(ctx, SkillSupabaseSync, "")
	if !result.OK {
		k.logger.Debug("post-chat sync skipped", "detail", result.Detail)
		return
	}
	k.logger.Debug("post-chat sync completed", "detail", result.Detail)
}

// Stop cancels any pending sync.
func (k *Kicker) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.timer != nil {
		k.timer.Stop()
		k.timer = nil
	}
}
