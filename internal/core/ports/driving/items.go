package driving

import (
	"context"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// CreateItemRequest represents a request to create a planner item.
type CreateItemRequest struct {
	Kind    domain.ItemKind `json:"kind"`
	Title   string          `json:"title"`
	Body    string          `json:"body,omitempty"`
	URL     string          `json:"url,omitempty"`
	DueAt   *time.Time      `json:"due_at,omitempty"`
	StartAt *time.Time      `json:"start_at,omitempty"`
	EndAt   *time.Time      `json:"end_at,omitempty"`
}

// UpdateItemRequest represents a partial update to a planner item.
// Nil fields are left unchanged.
type UpdateItemRequest struct {
	Title     *string    `json:"title,omitempty"`
	Body      *string    `json:"body,omitempty"`
	URL       *string    `json:"url,omitempty"`
	Completed *bool      `json:"completed,omitempty"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	StartAt   *time.Time `json:"start_at,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
}

// ItemService manages a user's planner items. Every operation is scoped
// to the calling user; touching another user's item yields
// domain.ErrNotFound.
type ItemService interface {
	// Create stores a new item owned by the user.
	Create(ctx context.Context, userID string, req CreateItemRequest) (*domain.Item, error)

	// Get retrieves one of the user's items.
	Get(ctx context.Context, userID, id string) (*domain.Item, error)

	// List retrieves the user's items, optionally filtered by kind.
	List(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.Item, error)

	// Update applies a partial update to one of the user's items.
	Update(ctx context.Context, userID, id string, req UpdateItemRequest) (*domain.Item, error)

	// Delete removes one of the user's items.
	Delete(ctx context.Context, userID, id string) error
}
