package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure MockItemStore implements ItemStore
var _ driven.ItemStore = (*MockItemStore)(nil)

// MockItemStore is a mock implementation of ItemStore for testing
type MockItemStore struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

// NewMockItemStore creates a new MockItemStore
func NewMockItemStore() *MockItemStore {
	return &MockItemStore{
		items: make(map[string]*domain.Item),
	}
}

func (m *MockItemStore) Create(ctx context.Context, item *domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; ok {
		return domain.ErrAlreadyExists
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *MockItemStore) Get(ctx context.Context, id string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *MockItemStore) List(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Item
	for _, item := range m.items {
		if item.UserID != userID {
			continue
		}
		if kind != "" && item.Kind != kind {
			continue
		}
		copied := *item
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockItemStore) Update(ctx context.Context, item *domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *MockItemStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Helper methods for testing

func (m *MockItemStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*domain.Item)
}

func (m *MockItemStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
