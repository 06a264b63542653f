package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

// Ensure itemService implements ItemService
var _ driving.ItemService = (*itemService)(nil)

// itemService implements the ItemService interface
type itemService struct {
	store driven.ItemStore
}

// NewItemService creates a new ItemService
func NewItemService(store driven.ItemStore) driving.ItemService {
	return &itemService{store: store}
}

// Create stores a new item owned by the user
func (s *itemService) Create(ctx context.Context, userID string, req driving.CreateItemRequest) (*domain.Item, error) {
	now := time.Now()
	item := &domain.Item{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      req.Kind,
		Title:     strings.TrimSpace(req.Title),
		Body:      req.Body,
		URL:       req.URL,
		DueAt:     req.DueAt,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get retrieves one of the user's items.
// Items owned by other users are reported as not found.
func (s *itemService) Get(ctx context.Context, userID, id string) (*domain.Item, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// List retrieves the user's items, optionally filtered by kind
func (s *itemService) List(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.Item, error) {
	if kind != "" && !kind.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return s.store.List(ctx, userID, kind)
}

// Update applies a partial update to one of the user's items
func (s *itemService) Update(ctx context.Context, userID, id string, req driving.UpdateItemRequest) (*domain.Item, error) {
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		item.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		item.Body = *req.Body
	}
	if req.URL != nil {
		item.URL = *req.URL
	}
	if req.Completed != nil {
		item.Completed = *req.Completed
	}
	if req.DueAt != nil {
		item.DueAt = req.DueAt
	}
	if req.StartAt != nil {
		item.StartAt = req.StartAt
	}
	if req.EndAt != nil {
		item.EndAt = req.EndAt
	}
	item.UpdatedAt = time.Now()

	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes one of the user's items
func (s *itemService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
