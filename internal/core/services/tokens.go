package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// TokenManager resolves a usable access token for outbound provider calls.
// It refreshes proactively inside the expiry safety margin and demotes the
// connection to unauthorized when the provider reports the grant is gone.
type TokenManager struct {
	accounts driven.CalendarAccountStore
	provider driven.CalendarProvider
	logger   *slog.Logger
}

// TokenManagerConfig holds dependencies for the TokenManager.
type TokenManagerConfig struct {
	Accounts driven.CalendarAccountStore
	Provider driven.CalendarProvider
	Logger   *slog.Logger
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(cfg TokenManagerConfig) *TokenManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenManager{
		accounts: cfg.Accounts,
		provider: cfg.Provider,
		logger:   logger,
	}
}

// ValidAccessToken returns an access token guaranteed to outlive an
// imminent provider call, refreshing first when the stored token is
// missing an expiry or sits inside the safety margin.
//
// A permanently revoked grant demotes the stored account to unauthorized
// and returns domain.ErrReauthorizationRequired; transient refresh
// failures leave the account untouched.
func (m *TokenManager) ValidAccessToken(ctx context.Context, userID string) (string, error) {
	account, err := m.accounts.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get calendar account: %w", err)
	}
	if account == nil || !account.Authorized {
		return "", domain.ErrNotConnected
	}

	if !account.NeedsRefresh() {
		return account.AccessToken(), nil
	}

	refreshToken := account.RefreshToken()
	if refreshToken == "" {
		// No way to recover without a new consent.
		m.demote(ctx, account)
		return "", domain.ErrReauthorizationRequired
	}

	token, err := m.provider.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrReauthorizationRequired) {
			m.demote(ctx, account)
			return "", domain.ErrReauthorizationRequired
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	account.Secrets.AccessToken = token.AccessToken
	// Providers may rotate the refresh token; keep the old one otherwise.
	if token.RefreshToken != "" {
		account.Secrets.RefreshToken = token.RefreshToken
	}
	expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	account.TokenExpiry = &expiry
	account.UpdatedAt = time.Now()

	if err := m.accounts.Upsert(ctx, account); err != nil {
		return "", fmt.Errorf("save refreshed tokens: %w", err)
	}

	m.logger.Debug("access token refreshed", "user_id", userID, "expires_at", expiry)

	return token.AccessToken, nil
}

// demote marks the account unauthorized, keeping the record so the UI can
// show "reconnect" instead of "never connected". The dead access token and
// its expiry are dropped so nothing can hand them out again.
func (m *TokenManager) demote(ctx context.Context, account *domain.CalendarAccount) {
	account.Authorized = false
	if account.Secrets != nil {
		account.Secrets.AccessToken = ""
	}
	account.TokenExpiry = nil
	account.UpdatedAt = time.Now()
	if err := m.accounts.Upsert(ctx, account); err != nil {
		m.logger.Warn("failed to demote calendar account", "user_id", account.UserID, "error", err)
	} else {
		m.logger.Info("calendar grant revoked, reauthorization required", "user_id", account.UserID)
	}
}
