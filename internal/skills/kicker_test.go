package skills

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/basket/gyeol/internal/store"
)

type countingRunner struct {
	mu     sync.Mutex
	runs   []string
	doneCh chan struct{}
}

func (c *countingRunner) Run(_ context.Context, skill, _ string) store.SkillResult {
	c.mu.Lock()
	c.runs = append(c.runs, skill)
	c.mu.Unlock()
	select {
	case c.doneCh <- struct{}{}:
	default:
	}
	return store.SkillResult{Skill: skill, OK: true}
}

func (c *countingRunner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.runs)
}

func TestKicker_DebouncesBursts(t *testing.T) {
	runner := &countingRunner{doneCh: make(chan struct{}, 1)}
	k := NewKicker(runner, 20*time.Millisecond, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	defer k.Stop()

	for i := 0; i < 5; i++ {
		k.KickSync(context.Background())
	}

	select {
	case <-runner.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("sync never ran")
	}
	// Allow any stray second run to land before asserting.
	time.Sleep(50 * time.Millisecond)
	if got := runner.count(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
	if runner.runs[0] != SkillSupabaseSync {
		t.Errorf("skill = %q", runner.runs[0])
	}
}

func TestKicker_StopCancelsPending(t *testing.T) {
	runner := &countingRunner{doneCh: make(chan struct{}, 1)}
	k := NewKicker(runner, 50*time.Millisecond, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	k.KickSync(context.Background())
	k.Stop()

	time.Sleep(120 * time.Millisecond)
	if got := runner.count(); got != 0 {
		t.Errorf("runs = %d, want 0", got)
	}
}
