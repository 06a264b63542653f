package domain

import "time"

// RefreshMargin is the safety window before token expiry within which an
// access token is treated as stale and refreshed before use.
const RefreshMargin = 5 * time.Minute

// CalendarAccount is the per-user record of the Google Calendar connection.
// It is the single source of truth for authorization state; any in-memory
// copy is a cache of this record.
type CalendarAccount struct {
	UserID string `json:"user_id"`

	// Authorized is true once a token exchange has succeeded. While true,
	// an access token is present (possibly stale - the refresh manager
	// resolves a fresh one before use).
	Authorized bool `json:"authorized"`

	// Secrets contains decrypted token values (never persisted as-is)
	Secrets *AccountSecrets `json:"-"`

	TokenExpiry *time.Time `json:"token_expiry,omitempty"`

	// CalendarIDs is the set of calendars selected for sync.
	// Empty means the provider's primary calendar.
	CalendarIDs []string `json:"calendar_ids,omitempty"`

	// AccountEmail is the connected Google account, for display.
	AccountEmail string `json:"account_email,omitempty"`

	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// AccountSecrets contains decrypted token values.
// These are encrypted before storage and decrypted on retrieval.
// The refresh token, once obtained, is retained across re-authorizations
// unless the provider issues a replacement.
type AccountSecrets struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// NeedsRefresh returns true if the access token must be refreshed before
// an outbound provider call: expiry unknown, or within the safety margin.
func (a *CalendarAccount) NeedsRefresh() bool {
	if a.TokenExpiry == nil {
		return true
	}
	return time.Until(*a.TokenExpiry) < RefreshMargin
}

// IsExpired returns true if the access token is past its expiry.
func (a *CalendarAccount) IsExpired() bool {
	if a.TokenExpiry == nil {
		return false
	}
	return time.Now().After(*a.TokenExpiry)
}

// AccessToken returns the stored access token, if any.
func (a *CalendarAccount) AccessToken() string {
	if a.Secrets == nil {
		return ""
	}
	return a.Secrets.AccessToken
}

// RefreshToken returns the stored refresh token, if any.
func (a *CalendarAccount) RefreshToken() string {
	if a.Secrets == nil {
		return ""
	}
	return a.Secrets.RefreshToken
}

// SyncCalendarIDs returns the calendars to sync, defaulting to primary
// when the user never made a selection.
func (a *CalendarAccount) SyncCalendarIDs() []string {
	if len(a.CalendarIDs) == 0 {
		return []string{"primary"}
	}
	return a.CalendarIDs
}

// ConnectionStatus is a safe view of the calendar connection for clients.
type ConnectionStatus struct {
	Connected    bool       `json:"connected"`
	AccountEmail string     `json:"account_email,omitempty"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	CalendarIDs  []string   `json:"calendar_ids,omitempty"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
}

// ToStatus converts the account to its client-safe view.
func (a *CalendarAccount) ToStatus() *ConnectionStatus {
	return &ConnectionStatus{
		Connected:    a.Authorized,
		AccountEmail: a.AccountEmail,
		TokenExpiry:  a.TokenExpiry,
		CalendarIDs:  a.CalendarIDs,
		LastSyncAt:   a.LastSyncAt,
	}
}
