package driven

import (
	"context"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// CalendarEventStore persists synced calendar events.
// Events are keyed by (user id, provider event id), so repeated syncs of
// the same provider event update in place rather than duplicating.
type CalendarEventStore interface {
	// GetByProviderID retrieves the stored copy of a provider event.
	// Returns nil, nil if the event has not been synced yet.
	GetByProviderID(ctx context.Context, userID, providerEventID string) (*domain.CalendarEvent, error)

	// Upsert inserts the event or updates the existing row with the same
	// (user id, provider event id) key.
	Upsert(ctx context.Context, event *domain.CalendarEvent) error

	// ListByUser retrieves a user's events overlapping the given window,
	// ordered by start time.
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*domain.CalendarEvent, error)

	// DeleteByProviderID removes the stored copy of a provider event.
	// Deleting an event that was never stored is not an error.
	DeleteByProviderID(ctx context.Context, userID, providerEventID string) error

	// DeleteByUser removes all synced events for a user.
	// Returns the number of events removed.
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
