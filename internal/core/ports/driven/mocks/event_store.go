package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure MockCalendarEventStore implements CalendarEventStore
var _ driven.CalendarEventStore = (*MockCalendarEventStore)(nil)

// MockCalendarEventStore is a mock implementation of CalendarEventStore for testing
type MockCalendarEventStore struct {
	mu     sync.RWMutex
	events map[string]*domain.CalendarEvent // keyed by userID + "/" + providerEventID
	nextID int
}

// NewMockCalendarEventStore creates a new MockCalendarEventStore
func NewMockCalendarEventStore() *MockCalendarEventStore {
	return &MockCalendarEventStore{
		events: make(map[string]*domain.CalendarEvent),
	}
}

func eventKey(userID, providerEventID string) string {
	return userID + "/" + providerEventID
}

func (m *MockCalendarEventStore) GetByProviderID(ctx context.Context, userID, providerEventID string) (*domain.CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events[eventKey(userID, providerEventID)], nil
}

func (m *MockCalendarEventStore) Upsert(ctx context.Context, event *domain.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := eventKey(event.UserID, event.ProviderEventID)
	if existing, ok := m.events[key]; ok {
		event.ID = existing.ID
	} else if event.ID == "" {
		m.nextID++
		event.ID = "evt-" + strconv.Itoa(m.nextID)
	}
	copied := *event
	m.events[key] = &copied
	return nil
}

func (m *MockCalendarEventStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*domain.CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.CalendarEvent
	for _, e := range m.events {
		if e.UserID != userID {
			continue
		}
		if e.EndTime.Before(from) || e.StartTime.After(to) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (m *MockCalendarEventStore) DeleteByProviderID(ctx context.Context, userID, providerEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, eventKey(userID, providerEventID))
	return nil
}

func (m *MockCalendarEventStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for key, e := range m.events {
		if e.UserID == userID {
			delete(m.events, key)
			deleted++
		}
	}
	return deleted, nil
}

// Helper methods for testing

func (m *MockCalendarEventStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string]*domain.CalendarEvent)
}

func (m *MockCalendarEventStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
