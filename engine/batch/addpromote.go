package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/groupops/engine/group"
	"github.com/compozy/groupops/engine/remote"
	"github.com/compozy/groupops/pkg/logger"
)

var errNotVisible = errors.New("membership not visible after waiting")

// runAddPromote walks groups in selection order and numbers in input order.
func (e *Executor) runAddPromote(ctx context.Context, job Job, res *Result, progress ProgressFunc) error {
	total := len(job.Groups) * len(job.Numbers)
	done := 0
	for _, g := range job.Groups {
		res.GroupsProcessed++
		res.logf("📂 %s:", g.Name)
		for _, number := range job.Numbers {
			done++
			err := e.addPromotePair(ctx, job.Session, g, number, res)
			if err != nil {
				res.failure("   ❌ Error %s: %v", number, err)
				e.metrics.recordEntry(ctx, job.Kind, outcomeFailure)
				logger.FromContext(ctx).Warn("Add/promote failed",
					"group_id", g.ID, "number", number, "error", err)
			} else {
				res.success("   👑 Promoted %s to admin", number)
				e.metrics.recordEntry(ctx, job.Kind, outcomeSuccess)
			}
			if perr := e.report(ctx, job, res, done, total, progress); perr != nil {
				return perr
			}
			switch {
			case err == nil:
				e.sleep(ctx, e.pacing.InterOpDelay)
			case remote.IsRateLimit(err):
				e.sleep(ctx, e.pacing.AddPromoteCooldown)
			}
		}
	}
	return nil
}

// addPromotePair ensures number is a member of g and promotes it.
func (e *Executor) addPromotePair(ctx context.Context, session string, g group.Group, number string, res *Result) error {
	present, err := e.client.IsMember(ctx, session, g.ID, number)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if present {
		res.logf("   ℹ️ %s already in group", number)
	} else {
		err := e.client.AddMember(ctx, session, g.ID, number)
		switch {
		case err == nil:
			res.logf("   ✅ Added %s", number)
			e.sleep(ctx, e.pacing.SettleDelay)
		case remote.IsConflict(err):
			res.logf("   ℹ️ %s already in group", number)
		default:
			return fmt.Errorf("add member: %w", err)
		}
	}
	return e.promote(ctx, session, g, number)
}

// promote retries up to PromoteAttempts times with linear backoff. Waiting
// for membership to become visible does not consume an attempt, but is
// bounded by MaxVisibilityChecks.
func (e *Executor) promote(ctx context.Context, session string, g group.Group, number string) error {
	log := logger.FromContext(ctx).With("group_id", g.ID, "number", number)
	backoff := e.pacing.promoteBackoff()
	attempts, waits := 0, 0
	for {
		present, err := e.client.IsMember(ctx, session, g.ID, number)
		if err == nil && !present {
			if waits >= e.pacing.MaxVisibilityChecks {
				return errNotVisible
			}
			waits++
			log.Debug("Membership not visible yet", "wait", waits)
			e.sleep(ctx, e.pacing.VisibilityDelay)
			continue
		}
		attempts++
		if err == nil {
			err = e.client.Promote(ctx, session, g.ID, number)
			if err == nil {
				return nil
			}
		}
		log.Debug("Promote attempt failed", "attempt", attempts, "error", err)
		next, stop := backoff.Next()
		if stop {
			return fmt.Errorf("promote after %d attempts: %w", attempts, err)
		}
		e.sleep(ctx, next)
	}
}
