package batch

import (
	"fmt"
	"time"

	"github.com/compozy/groupops/engine/flow"
)

// Result accumulates the outcome of one run.
type Result struct {
	JobID           string
	Kind            flow.Kind
	SuccessCount    int
	FailureCount    int
	GroupsProcessed int
	Log             []string
	StartedAt       time.Time
	FinishedAt      time.Time
}

func (r *Result) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

func (r *Result) success(format string, args ...any) {
	r.SuccessCount++
	r.logf(format, args...)
}

func (r *Result) failure(format string, args ...any) {
	r.FailureCount++
	r.logf(format, args...)
}

// Attempted is the number of entries that reached a terminal outcome.
func (r *Result) Attempted() int {
	return r.SuccessCount + r.FailureCount
}

// Progress is emitted while a run advances.
type Progress struct {
	JobID  string
	Kind   flow.Kind
	Done   int
	Total  int
	Result *Result
}
