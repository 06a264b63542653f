package postgres

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock backs DistributedLock with pg_try_advisory_lock when no
// Redis is available. Advisory locks are session-scoped rather than
// TTL-based: the ttl arguments are ignored, Extend is a no-op, and a
// dropped connection releases everything it held.
type AdvisoryLock struct {
	db *DB
}

func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// lockID folds a lock name into the bigint keyspace advisory locks use.
func lockID(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("daybook:lock:" + name))
	return int64(h.Sum64())
}

func (l *AdvisoryLock) Acquire(ctx context.Context, name string, _ time.Duration) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID(name)).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return acquired, nil
}

func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	// pg_advisory_unlock reports false for a lock we never held; that is
	// not an error for this interface.
	var released bool
	err := l.db.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, lockID(name)).Scan(&released)
	if err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}
	return nil
}

func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
