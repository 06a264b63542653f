package driven

import (
	"context"
	"time"
)

// ProviderToken is a token response from the calendar provider.
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	Scope        string
}

// ProviderCalendar is one entry from the provider's calendar list.
type ProviderCalendar struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Primary    bool   `json:"primary"`
	AccessRole string `json:"access_role"`
}

// ProviderEvent is a raw event as returned by the provider, before it is
// normalized into a domain.CalendarEvent.
type ProviderEvent struct {
	ID          string
	Status      string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	ColorID     string
	Etag        string
	Raw         []byte
}

// CalendarProvider is the outbound interface to the calendar service.
// Token operations discriminate permanent authorization failures
// (domain.ErrReauthorizationRequired) from transient ones
// (domain.ErrRefreshFailed, domain.ErrExchangeFailed).
type CalendarProvider interface {
	// BuildAuthURL returns the consent page URL for the given CSRF state.
	// The URL requests offline access so a refresh token is issued.
	BuildAuthURL(state string) string

	// ExchangeCode exchanges an authorization code for tokens.
	ExchangeCode(ctx context.Context, code, redirectURI string) (*ProviderToken, error)

	// Refresh obtains a new access token from a refresh token.
	// Returns domain.ErrReauthorizationRequired when the grant has been
	// revoked or expired; the account must go through consent again.
	Refresh(ctx context.Context, refreshToken string) (*ProviderToken, error)

	// Revoke invalidates a token at the provider. Best effort: revocation
	// failures don't block disconnection.
	Revoke(ctx context.Context, token string) error

	// UserEmail resolves the email of the account the token belongs to.
	UserEmail(ctx context.Context, accessToken string) (string, error)

	// ListCalendars retrieves the calendars the token can read, filtered
	// to roles that grant event access.
	ListCalendars(ctx context.Context, accessToken string) ([]*ProviderCalendar, error)

	// ListEvents retrieves single (expanded) events in the window, ordered
	// by start time.
	ListEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]*ProviderEvent, error)
}
