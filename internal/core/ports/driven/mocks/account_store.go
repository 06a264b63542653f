package mocks

import (
	"context"
	"sync"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure MockCalendarAccountStore implements CalendarAccountStore
var _ driven.CalendarAccountStore = (*MockCalendarAccountStore)(nil)

// MockCalendarAccountStore is a mock implementation of CalendarAccountStore for testing
type MockCalendarAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.CalendarAccount

	// Custom behavior hooks (optional)
	GetFn    func(userID string) (*domain.CalendarAccount, error)
	UpsertFn func(account *domain.CalendarAccount) error
}

// NewMockCalendarAccountStore creates a new MockCalendarAccountStore
func NewMockCalendarAccountStore() *MockCalendarAccountStore {
	return &MockCalendarAccountStore{
		accounts: make(map[string]*domain.CalendarAccount),
	}
}

func (m *MockCalendarAccountStore) Get(ctx context.Context, userID string) (*domain.CalendarAccount, error) {
	if m.GetFn != nil {
		return m.GetFn(userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts[userID], nil
}

func (m *MockCalendarAccountStore) ListAuthorized(ctx context.Context) ([]*domain.CalendarAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.CalendarAccount
	for _, a := range m.accounts {
		if a.Authorized {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *MockCalendarAccountStore) Upsert(ctx context.Context, account *domain.CalendarAccount) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.UserID] = account
	return nil
}

func (m *MockCalendarAccountStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, userID)
	return nil
}

// Helper methods for testing

func (m *MockCalendarAccountStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[string]*domain.CalendarAccount)
}
