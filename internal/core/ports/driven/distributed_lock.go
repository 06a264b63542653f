package driven

import (
	"context"
	"time"
)

// DistributedLock keeps daybook instances from running the same job at
// once, e.g. two concurrent syncs for one user or overlapping scheduler
// sweeps. Locks expire on their own after the TTL.
type DistributedLock interface {
	// Acquire takes the named lock for ttl; false means another holder
	// already has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release drops the lock. Best effort: locks self-expire, and
	// releasing a lock this instance no longer holds is a no-op.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a held lock. Backends without TTL
	// extension (postgres advisory locks) may error.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping reports backend health for readiness checks.
	Ping(ctx context.Context) error
}
