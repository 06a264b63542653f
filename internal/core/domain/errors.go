package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotConfigured indicates the Google OAuth client id/secret are unset
	ErrNotConfigured = errors.New("calendar integration not configured")

	// ErrNotConnected indicates the user has no authorized calendar account
	ErrNotConnected = errors.New("calendar not connected")

	// ErrInvalidState indicates an unknown or expired OAuth state token
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrAuthorizationTimeout indicates no code or error arrived in time
	ErrAuthorizationTimeout = errors.New("authorization timed out")

	// ErrExchangeFailed indicates the code-for-token exchange was rejected
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrRefreshFailed indicates a transient token refresh failure.
	// The caller decides whether to retry; this layer does not.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrReauthorizationRequired indicates the refresh token is permanently
	// dead (invalid_grant). The account has been demoted to unauthorized and
	// the user must re-run the consent flow.
	ErrReauthorizationRequired = errors.New("reauthorization required")

	// ErrSyncInProgress indicates a sync is already running for this user
	ErrSyncInProgress = errors.New("sync already in progress")
)

// OAuthError reports an authorization failure the provider attributed to
// the user or the request, such as a denied consent screen. It is a user
// outcome, not a provider outage, and maps to a 4xx at the API edge.
type OAuthError struct {
	// Code is the provider's error code, e.g. "access_denied".
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return "authorization failed: " + e.Code + ": " + e.Description
	}
	return "authorization failed: " + e.Code
}

// Denied reports whether the user refused consent.
func (e *OAuthError) Denied() bool {
	return e.Code == "access_denied"
}
