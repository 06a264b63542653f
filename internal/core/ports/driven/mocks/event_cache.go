package mocks

import (
	"context"
	"sync"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure MockEventCache implements EventCache
var _ driven.EventCache = (*MockEventCache)(nil)

// MockEventCache is a mock implementation of EventCache for testing.
// Entries never expire; tests control freshness by clearing.
type MockEventCache struct {
	mu      sync.RWMutex
	windows map[driven.EventCacheKey][]*domain.CalendarEvent

	// Counters for test assertions
	Hits   int
	Misses int
	Puts   int
}

// NewMockEventCache creates a new MockEventCache
func NewMockEventCache() *MockEventCache {
	return &MockEventCache{
		windows: make(map[driven.EventCacheKey][]*domain.CalendarEvent),
	}
}

func (m *MockEventCache) Get(ctx context.Context, key driven.EventCacheKey) ([]*domain.CalendarEvent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events, ok := m.windows[key]
	if ok {
		m.Hits++
	} else {
		m.Misses++
	}
	return events, ok, nil
}

func (m *MockEventCache) Put(ctx context.Context, key driven.EventCacheKey, events []*domain.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	m.windows[key] = events
	return nil
}

func (m *MockEventCache) ClearAll(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.windows {
		if key.UserID == userID {
			delete(m.windows, key)
		}
	}
	return nil
}

// Helper methods for testing

func (m *MockEventCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = make(map[driven.EventCacheKey][]*domain.CalendarEvent)
	m.Hits, m.Misses, m.Puts = 0, 0, 0
}

func (m *MockEventCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows)
}
