// Package batch runs finalized selections against the remote capability,
// sequentially, with retry, backoff and rate-limit cooldowns.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/compozy/groupops/engine/flow"
	"github.com/compozy/groupops/engine/group"
	"github.com/compozy/groupops/engine/remote"
	"github.com/compozy/groupops/pkg/logger"
)

var (
	// ErrNotGroupAdmin marks groups where the operator's account lacks admin rights.
	ErrNotGroupAdmin = errors.New("not an admin of the group")
	ErrEmptyJob      = errors.New("batch job has no targets")
	ErrUnknownKind   = errors.New("unknown batch kind")
)

// Job is a finalized selection.
type Job struct {
	ID      string
	Kind    flow.Kind
	Session string
	Groups  []group.Group
	Numbers []string
}

// NewJob assigns a fresh job id.
func NewJob(kind flow.Kind, session string, groups []group.Group, numbers []string) Job {
	return Job{
		ID:      ksuid.New().String(),
		Kind:    kind,
		Session: session,
		Groups:  groups,
		Numbers: numbers,
	}
}

// ProgressFunc reports progress. A returned error aborts the run.
type ProgressFunc func(ctx context.Context, p Progress) error

type Executor struct {
	client  remote.Client
	pacing  Pacing
	sleep   Sleeper
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Executor)

func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		e.sleep = s
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func NewExecutor(client remote.Client, pacing Pacing, opts ...Option) *Executor {
	e := &Executor{
		client: client,
		pacing: pacing,
		sleep:  ContextSleeper,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes job to completion. Per-entry failures are recorded in the
// result; only a progress failure stops the run early, in which case the
// partial result is returned together with the error.
func (e *Executor) Run(ctx context.Context, job Job, progress ProgressFunc) (*Result, error) {
	if job.ID == "" {
		job.ID = ksuid.New().String()
	}
	if progress == nil {
		progress = func(context.Context, Progress) error { return nil }
	}
	log := logger.FromContext(ctx).With("job_id", job.ID, "kind", job.Kind, "session", job.Session)
	ctx = logger.ContextWithLogger(ctx, log)
	res := &Result{JobID: job.ID, Kind: job.Kind, StartedAt: e.now()}
	if len(job.Groups) == 0 {
		return res, ErrEmptyJob
	}
	log.Info("Batch started", "groups", len(job.Groups), "numbers", len(job.Numbers))
	var err error
	switch job.Kind {
	case flow.KindAddPromote:
		if len(job.Numbers) == 0 {
			return res, ErrEmptyJob
		}
		err = e.runAddPromote(ctx, job, res, progress)
	case flow.KindDemoteAll:
		err = e.runDemoteAll(ctx, job, res, progress)
	default:
		return res, fmt.Errorf("%w: %s", ErrUnknownKind, job.Kind)
	}
	res.FinishedAt = e.now()
	e.metrics.recordRun(ctx, res, err)
	if err != nil {
		log.Error("Batch aborted", "error", err, "success", res.SuccessCount, "failure", res.FailureCount)
		return res, err
	}
	log.Info("Batch finished",
		"success", res.SuccessCount,
		"failure", res.FailureCount,
		"groups", res.GroupsProcessed,
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, nil
}

func (e *Executor) report(ctx context.Context, job Job, res *Result, done, total int, progress ProgressFunc) error {
	if err := progress(ctx, Progress{JobID: job.ID, Kind: job.Kind, Done: done, Total: total, Result: res}); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	return nil
}
