package driven

import (
	"context"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// EventCacheKey identifies one cached event window. A window is scoped to
// a user, a calendar and the queried time range; the same query within the
// cache TTL serves the stored copy instead of calling the provider.
type EventCacheKey struct {
	UserID     string
	CalendarID string
	TimeMin    time.Time
	TimeMax    time.Time
}

// EventCache is a short-lived cache of provider event windows.
// Entries expire on their own; Put never extends an entry past the TTL
// configured on the implementation.
type EventCache interface {
	// Get retrieves a cached window. The second return is false on a miss
	// or expired entry.
	Get(ctx context.Context, key EventCacheKey) ([]*domain.CalendarEvent, bool, error)

	// Put stores a window.
	Put(ctx context.Context, key EventCacheKey, events []*domain.CalendarEvent) error

	// ClearAll drops every cached window for a user, across calendars and
	// time ranges.
	ClearAll(ctx context.Context, userID string) error
}
