package driving

import (
	"context"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// ConnectState is the lifecycle phase of a pending authorization flow.
type ConnectState string

const (
	ConnectStateAwaitingConsent ConnectState = "awaiting_consent"
	ConnectStateExchanging      ConnectState = "exchanging"
	ConnectStateAuthorized      ConnectState = "authorized"
	ConnectStateFailed          ConnectState = "failed"
)

// StartConnectResponse is returned when an authorization flow begins.
type StartConnectResponse struct {
	// AuthURL is the provider consent page the user must visit.
	AuthURL string `json:"auth_url"`

	// State identifies this flow in later delivery and polling calls.
	State string `json:"state"`
}

// ConnectFlowStatus is a poll snapshot of a pending authorization flow.
type ConnectFlowStatus struct {
	State ConnectState `json:"state"`

	// Error carries the provider denial reason when State is failed.
	Error string `json:"error,omitempty"`
}

// ConnectService drives the calendar authorization flow. A flow starts
// with a consent URL; the resulting authorization code can arrive over
// more than one channel (provider redirect, or manual submission when the
// redirect can't reach the server). Whichever delivery arrives first wins;
// the rest are ignored.
type ConnectService interface {
	// Start begins an authorization flow for a user and returns the
	// consent URL. A new Start supersedes any earlier pending flow for
	// the same user.
	Start(ctx context.Context, userID string) (*StartConnectResponse, error)

	// Deliver hands an authorization code (or a provider error) to the
	// flow identified by state. The first delivery triggers the token
	// exchange; later deliveries for the same state return
	// domain.ErrInvalidState.
	Deliver(ctx context.Context, state, code, providerErr string) error

	// Wait blocks until the flow identified by state resolves or the
	// flow's deadline passes (domain.ErrAuthorizationTimeout).
	Wait(ctx context.Context, state string) (*domain.ConnectionStatus, error)

	// FlowStatus reports the current phase of a pending flow without
	// blocking. Returns domain.ErrNotFound for unknown states.
	FlowStatus(ctx context.Context, state string) (*ConnectFlowStatus, error)

	// Status reports the user's stored connection state.
	Status(ctx context.Context, userID string) (*domain.ConnectionStatus, error)

	// ListCalendars retrieves the calendars available on the connected
	// account, for the sync selection UI.
	ListCalendars(ctx context.Context, userID string) ([]*CalendarInfo, error)

	// UpdateCalendarIDs replaces the set of calendars selected for sync.
	UpdateCalendarIDs(ctx context.Context, userID string, calendarIDs []string) error

	// Disconnect revokes tokens best-effort, removes the stored
	// connection and the user's synced events and cached windows.
	Disconnect(ctx context.Context, userID string) error
}

// CalendarInfo is one selectable calendar on the connected account.
type CalendarInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Primary  bool   `json:"primary"`
	Selected bool   `json:"selected"`
}

// EventQuery bounds an event listing.
type EventQuery struct {
	From  time.Time
	To    time.Time
	Force bool
}

// SyncService keeps the local event copies in step with the provider.
type SyncService interface {
	// Sync pulls events for all of the user's selected calendars and
	// upserts them locally. Concurrent syncs for the same user are
	// rejected with domain.ErrSyncInProgress.
	Sync(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncResult, error)

	// Events serves the user's events in the window, from cache when a
	// fresh enough copy exists unless the query forces a provider fetch.
	Events(ctx context.Context, userID string, q EventQuery) ([]*domain.CalendarEvent, error)

	// ClearAll removes every synced event and cached window for a user.
	// Returns the number of stored events removed.
	ClearAll(ctx context.Context, userID string) (int, error)
}
