package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure MockCalendarProvider implements CalendarProvider
var _ driven.CalendarProvider = (*MockCalendarProvider)(nil)

// MockCalendarProvider is a mock implementation of CalendarProvider for
// testing. Behavior is injected per method; unset methods return zero
// values.
type MockCalendarProvider struct {
	mu sync.Mutex

	BuildAuthURLFn  func(state string) string
	ExchangeCodeFn  func(code, redirectURI string) (*driven.ProviderToken, error)
	RefreshFn       func(refreshToken string) (*driven.ProviderToken, error)
	RevokeFn        func(token string) error
	UserEmailFn     func(accessToken string) (string, error)
	ListCalendarsFn func(accessToken string) ([]*driven.ProviderCalendar, error)
	ListEventsFn    func(accessToken, calendarID string, timeMin, timeMax time.Time) ([]*driven.ProviderEvent, error)

	// Call counters for test assertions
	ExchangeCalls int
	RefreshCalls  int
	RevokeCalls   int
	ListCalls     int
}

// NewMockCalendarProvider creates a new MockCalendarProvider
func NewMockCalendarProvider() *MockCalendarProvider {
	return &MockCalendarProvider{}
}

func (m *MockCalendarProvider) BuildAuthURL(state string) string {
	if m.BuildAuthURLFn != nil {
		return m.BuildAuthURLFn(state)
	}
	return "https://provider.example.com/auth?state=" + state
}

func (m *MockCalendarProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (*driven.ProviderToken, error) {
	m.mu.Lock()
	m.ExchangeCalls++
	m.mu.Unlock()
	if m.ExchangeCodeFn != nil {
		return m.ExchangeCodeFn(code, redirectURI)
	}
	return &driven.ProviderToken{AccessToken: "access-" + code, RefreshToken: "refresh-" + code, ExpiresIn: 3600}, nil
}

func (m *MockCalendarProvider) Refresh(ctx context.Context, refreshToken string) (*driven.ProviderToken, error) {
	m.mu.Lock()
	m.RefreshCalls++
	m.mu.Unlock()
	if m.RefreshFn != nil {
		return m.RefreshFn(refreshToken)
	}
	return &driven.ProviderToken{AccessToken: "refreshed-access", ExpiresIn: 3600}, nil
}

func (m *MockCalendarProvider) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	m.RevokeCalls++
	m.mu.Unlock()
	if m.RevokeFn != nil {
		return m.RevokeFn(token)
	}
	return nil
}

func (m *MockCalendarProvider) UserEmail(ctx context.Context, accessToken string) (string, error) {
	if m.UserEmailFn != nil {
		return m.UserEmailFn(accessToken)
	}
	return "user@example.com", nil
}

func (m *MockCalendarProvider) ListCalendars(ctx context.Context, accessToken string) ([]*driven.ProviderCalendar, error) {
	if m.ListCalendarsFn != nil {
		return m.ListCalendarsFn(accessToken)
	}
	return []*driven.ProviderCalendar{{ID: "primary", Summary: "Primary", Primary: true, AccessRole: "owner"}}, nil
}

func (m *MockCalendarProvider) ListEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]*driven.ProviderEvent, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	if m.ListEventsFn != nil {
		return m.ListEventsFn(accessToken, calendarID, timeMin, timeMax)
	}
	return nil, nil
}
