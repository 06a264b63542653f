package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a SET NX lock with an owner token, so one instance cannot
// release or extend a lock another instance holds. Good enough for
// keeping concurrent syncs apart; this is mutual exclusion between
// cooperating daybook processes, not a fencing-token Redlock.
type Lock struct {
	client *redis.Client
	owner  string
}

func NewLock(client *redis.Client) *Lock {
	host, _ := os.Hostname()
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)
	return &Lock{
		client: client,
		owner:  fmt.Sprintf("%s:%d:%s", host, os.Getpid(), hex.EncodeToString(nonce)),
	}
}

func lockKey(name string) string { return "daybook:lock:" + name }

// Acquire takes the named lock for ttl. Returns false when another
// holder has it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(name), l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// Compare-and-delete so only the holder can release. A plain DEL would
// let a slow process drop a lock someone else re-acquired after expiry.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release drops the lock if this instance still holds it. Releasing an
// expired or foreign lock is a no-op.
func (l *Lock) Release(ctx context.Context, name string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{lockKey(name)}, l.owner).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend pushes out the TTL of a held lock; errors if the lock expired
// or belongs to someone else.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	res, err := extendScript.Run(ctx, l.client, []string{lockKey(name)}, l.owner, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if res.(int64) == 0 {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Owner exposes the holder token for logs.
func (l *Lock) Owner() string {
	return l.owner
}
