package driven

import (
	"context"
	"time"
)

// OAuthState represents a pending calendar authorization flow state.
// Used for CSRF protection and to bind the callback to the initiating user.
type OAuthState struct {
	// State is a cryptographically random string used for CSRF protection.
	State string

	// UserID is the planner user who initiated the flow.
	UserID string

	// RedirectURI is the callback URL where the provider will redirect.
	RedirectURI string

	// CreatedAt is when the state was created.
	CreatedAt time.Time

	// ExpiresAt is when the state expires (typically 10 minutes).
	ExpiresAt time.Time
}

// OAuthStateStore manages OAuth flow state for CSRF protection.
// States are single-use and expire after a short period.
type OAuthStateStore interface {
	// Save stores a new OAuth state.
	Save(ctx context.Context, state *OAuthState) error

	// GetAndDelete atomically retrieves and deletes the state.
	// Single-use semantics: whichever delivery channel consumes the state
	// first wins; later deliveries see nil.
	// Returns nil, nil if the state doesn't exist or has expired.
	GetAndDelete(ctx context.Context, state string) (*OAuthState, error)

	// Cleanup removes expired states.
	Cleanup(ctx context.Context) error
}
