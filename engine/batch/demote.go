package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/groupops/engine/group"
	"github.com/compozy/groupops/engine/remote"
	"github.com/compozy/groupops/pkg/logger"
)

// runDemoteAll demotes every regular admin of each selected group. Owners
// are never demoted.
func (e *Executor) runDemoteAll(ctx context.Context, job Job, res *Result, progress ProgressFunc) error {
	total := len(job.Groups)
	for i, g := range job.Groups {
		res.GroupsProcessed++
		res.logf("📂 %s:", g.Name)
		delay := e.demoteGroup(ctx, job, g, res)
		if perr := e.report(ctx, job, res, i+1, total, progress); perr != nil {
			return perr
		}
		if i < total-1 && delay > 0 {
			e.sleep(ctx, delay)
		}
	}
	return nil
}

// demoteGroup processes one group and returns the delay owed before the next.
func (e *Executor) demoteGroup(ctx context.Context, job Job, g group.Group, res *Result) time.Duration {
	log := logger.FromContext(ctx).With("group_id", g.ID)
	if !g.IsAdmin {
		log.Warn("Skipping group", "error", fmt.Errorf("%s: %w", g.Name, ErrNotGroupAdmin))
		res.failure("   ⚠️ Not an admin of this group, skipped")
		e.metrics.recordEntry(ctx, job.Kind, outcomeSkipped)
		return 0
	}
	roster, err := e.client.ListAdmins(ctx, job.Session, g.ID)
	if err != nil {
		log.Warn("Failed to list admins", "error", err)
		res.failure("   ❌ Error processing group: %v", err)
		e.metrics.recordEntry(ctx, job.Kind, outcomeFailure)
		if remote.IsRateLimit(err) {
			return e.pacing.DemoteCooldown
		}
		return e.pacing.DemoteGroupDelay
	}
	targets := group.RegularAdmins(roster)
	if len(targets) == 0 {
		res.logf("   ℹ️ No regular admins to demote")
		return e.pacing.DemoteGroupDelay
	}
	res.logf("   📋 Found %d regular admins", len(targets))
	rateLimited := false
	for _, admin := range targets {
		number := remote.DisplayNumber(admin.Key)
		if err := e.client.Demote(ctx, job.Session, g.ID, admin.Key); err != nil {
			log.Warn("Demote failed", "target", number, "error", err)
			res.failure("   ❌ Error demoting %s: %v", number, err)
			e.metrics.recordEntry(ctx, job.Kind, outcomeFailure)
			rateLimited = rateLimited || remote.IsRateLimit(err)
		} else {
			res.success("   ⬇️ Demoted %s", number)
			e.metrics.recordEntry(ctx, job.Kind, outcomeSuccess)
		}
		e.sleep(ctx, e.pacing.DemoteTargetDelay)
	}
	if rateLimited {
		return e.pacing.DemoteCooldown
	}
	return e.pacing.DemoteGroupDelay
}
