package driven

import (
	"context"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// ItemStore persists user-owned planner items (tasks, projects, events,
// notes, bookmarks).
type ItemStore interface {
	// Create stores a new item.
	Create(ctx context.Context, item *domain.Item) error

	// Get retrieves an item by ID.
	// Returns domain.ErrNotFound if the item doesn't exist.
	Get(ctx context.Context, id string) (*domain.Item, error)

	// List retrieves a user's items, optionally filtered by kind.
	// An empty kind returns items of every kind.
	List(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.Item, error)

	// Update replaces a stored item.
	// Returns domain.ErrNotFound if the item doesn't exist.
	Update(ctx context.Context, item *domain.Item) error

	// Delete removes an item.
	// Returns domain.ErrNotFound if the item doesn't exist.
	Delete(ctx context.Context, id string) error
}
