package driven

import (
	"context"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// CalendarAccountStore persists per-user calendar connection records.
// Token secrets are encrypted at rest; implementations return decrypted
// secrets on read.
type CalendarAccountStore interface {
	// Get retrieves the connection record for a user.
	// Returns nil, nil if the user has never connected a calendar.
	Get(ctx context.Context, userID string) (*domain.CalendarAccount, error)

	// ListAuthorized retrieves every account with a live authorization,
	// for periodic background syncs.
	ListAuthorized(ctx context.Context) ([]*domain.CalendarAccount, error)

	// Upsert creates or replaces the connection record for a user.
	Upsert(ctx context.Context, account *domain.CalendarAccount) error

	// Delete removes the connection record for a user.
	Delete(ctx context.Context, userID string) error
}
