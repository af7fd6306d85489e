package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock.
type UnlockFunc func(ctx context.Context) error

// RunLocker guarantees that only one process advances a run, so that two samplers
// resuming from the same checkpoint cannot overwrite each other.
type RunLocker interface {
	// Lock blocks until the run is acquired or ctx is done. The lock expires after
	// ttl unless released.
	Lock(ctx context.Context, runID string, ttl time.Duration) (UnlockFunc, error)
}
