package skills

import (
	"context"
	"fmt"

	"github.com/basket/gyeol/internal/store"
)

// SecurityScan reports the conversation total and blocked-message count. It
// only reads state; the filter does the actual blocking at chat time.
func (r *Runner) SecurityScan(_ context.Context) store.SkillResult {
	total := r.deps.Registry.TotalConversations()
	blocked := r.deps.Shared.SecurityEventCount()
	return store.SkillResult{
		Skill:  SkillSecurityScan,
		OK:     true,
		Detail: fmt.Sprintf("Scanned: %d convos, %d blocked", total, blocked),
	}
}
