package batch

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/compozy/groupops/pkg/config"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// ContextSleeper is the wall-clock Sleeper.
func ContextSleeper(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Pacing is the delay policy applied between remote operations.
type Pacing struct {
	SettleDelay         time.Duration
	VisibilityDelay     time.Duration
	MaxVisibilityChecks int
	PromoteAttempts     int
	PromoteBackoffStep  time.Duration
	InterOpDelay        time.Duration
	AddPromoteCooldown  time.Duration
	DemoteTargetDelay   time.Duration
	DemoteGroupDelay    time.Duration
	DemoteCooldown      time.Duration
}

func DefaultPacing() Pacing {
	return PacingFromConfig(&config.Default().Batch)
}

func PacingFromConfig(cfg *config.BatchConfig) Pacing {
	return Pacing{
		SettleDelay:         cfg.SettleDelay,
		VisibilityDelay:     cfg.VisibilityDelay,
		MaxVisibilityChecks: max(cfg.MaxVisibilityChecks, 1),
		PromoteAttempts:     max(cfg.PromoteAttempts, 1),
		PromoteBackoffStep:  cfg.PromoteBackoffStep,
		InterOpDelay:        cfg.InterOpDelay,
		AddPromoteCooldown:  cfg.AddPromoteCooldown,
		DemoteTargetDelay:   cfg.DemoteTargetDelay,
		DemoteGroupDelay:    cfg.DemoteGroupDelay,
		DemoteCooldown:      cfg.DemoteCooldown,
	}
}

// promoteBackoff yields step, 2*step, ... and stops after attempts-1 values,
// one wait between each pair of consecutive attempts.
func (p Pacing) promoteBackoff() retry.Backoff {
	step := p.PromoteBackoffStep
	var n int64
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * step, false
	})
	return retry.WithMaxRetries(uint64(max(p.PromoteAttempts-1, 0)), linear)
}
