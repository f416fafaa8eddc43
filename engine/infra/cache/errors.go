package cache

import "errors"

var (
	// ErrJobRunning is returned when the operator already owns a batch job.
	ErrJobRunning = errors.New("cache: job already running")
	// ErrLockLost means the lock expired or was taken over before release.
	ErrLockLost = errors.New("cache: lock not held")
)
