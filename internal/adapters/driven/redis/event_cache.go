package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EventCache = (*EventCache)(nil)

// DefaultEventCacheTTL is how long a cached event window stays fresh.
const DefaultEventCacheTTL = 10 * time.Minute

const eventCachePrefix = "daybook:events:"

// EventCache implements driven.EventCache using Redis with TTL-based
// expiry. Windows are stored as JSON blobs keyed by user, calendar and
// time range.
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventCache creates a new Redis-backed event cache.
func NewEventCache(client *redis.Client) *EventCache {
	return &EventCache{
		client: client,
		ttl:    DefaultEventCacheTTL,
	}
}

// NewEventCacheWithTTL creates an event cache with a custom TTL.
func NewEventCacheWithTTL(client *redis.Client, ttl time.Duration) *EventCache {
	return &EventCache{
		client: client,
		ttl:    ttl,
	}
}

// cacheKey builds the Redis key for a window.
// Format: daybook:events:<user>:<calendar>:<minUnix>:<maxUnix>
func cacheKey(key driven.EventCacheKey) string {
	return eventCachePrefix + key.UserID + ":" + key.CalendarID + ":" +
		strconv.FormatInt(key.TimeMin.Unix(), 10) + ":" +
		strconv.FormatInt(key.TimeMax.Unix(), 10)
}

// Get retrieves a cached window. The second return is false on a miss or
// an expired entry.
func (c *EventCache) Get(ctx context.Context, key driven.EventCacheKey) ([]*domain.CalendarEvent, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached events: %w", err)
	}

	var events []*domain.CalendarEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached events: %w", err)
	}
	return events, true, nil
}

// Put stores a window under the cache TTL.
func (c *EventCache) Put(ctx context.Context, key driven.EventCacheKey, events []*domain.CalendarEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache events: %w", err)
	}
	return nil
}

// ClearAll drops every cached window for a user by scanning the user's
// key prefix.
func (c *EventCache) ClearAll(ctx context.Context, userID string) error {
	pattern := eventCachePrefix + userID + ":*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan cached events: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cached events: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}
