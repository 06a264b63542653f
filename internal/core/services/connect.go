package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

// Ensure connectService implements ConnectService
var _ driving.ConnectService = (*connectService)(nil)

// flowTimeout bounds how long a started flow waits for the user to grant
// or deny consent before it resolves as timed out.
const flowTimeout = 2 * time.Minute

// pendingFlow tracks one in-flight authorization attempt. The code can
// arrive over more than one delivery channel; resolveOnce guarantees only
// the first delivery drives the exchange.
type pendingFlow struct {
	userID      string
	state       string
	createdAt   time.Time
	resolveOnce sync.Once
	done        chan struct{}

	// Set before done is closed, read after.
	status *domain.ConnectionStatus
	err    error
}

func (f *pendingFlow) resolve(status *domain.ConnectionStatus, err error) bool {
	won := false
	f.resolveOnce.Do(func() {
		f.status = status
		f.err = err
		close(f.done)
		won = true
	})
	return won
}

// connectService implements the ConnectService interface.
type connectService struct {
	accounts    driven.CalendarAccountStore
	states      driven.OAuthStateStore
	events      driven.CalendarEventStore
	cache       driven.EventCache
	provider    driven.CalendarProvider
	redirectURI string
	disabled    bool
	logger      *slog.Logger

	mu    sync.Mutex
	flows map[string]*pendingFlow // keyed by state
}

// ConnectServiceConfig holds dependencies for the connect service.
type ConnectServiceConfig struct {
	Accounts driven.CalendarAccountStore
	States   driven.OAuthStateStore
	Events   driven.CalendarEventStore
	Cache    driven.EventCache
	Provider driven.CalendarProvider

	// RedirectURI is the callback URL registered with the provider.
	RedirectURI string

	// Disabled marks the integration as unconfigured (no provider
	// credentials). Start fails with domain.ErrNotConfigured.
	Disabled bool

	Logger *slog.Logger
}

// NewConnectService creates a new ConnectService.
func NewConnectService(cfg ConnectServiceConfig) driving.ConnectService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &connectService{
		accounts:    cfg.Accounts,
		states:      cfg.States,
		events:      cfg.Events,
		cache:       cfg.Cache,
		provider:    cfg.Provider,
		redirectURI: cfg.RedirectURI,
		disabled:    cfg.Disabled,
		logger:      logger,
	}
}

// Start begins an authorization flow for a user.
func (s *connectService) Start(ctx context.Context, userID string) (*driving.StartConnectResponse, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.disabled {
		return nil, domain.ErrNotConfigured
	}

	state, err := generateRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	now := time.Now()
	if err := s.states.Save(ctx, &driven.OAuthState{
		State:       state,
		UserID:      userID,
		RedirectURI: s.redirectURI,
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}); err != nil {
		return nil, fmt.Errorf("save oauth state: %w", err)
	}

	flow := &pendingFlow{
		userID:    userID,
		state:     state,
		createdAt: now,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	if s.flows == nil {
		s.flows = make(map[string]*pendingFlow)
	}
	// A new attempt supersedes any earlier pending flow for the user.
	for key, old := range s.flows {
		if old.userID == userID {
			old.resolve(nil, domain.ErrInvalidState)
			delete(s.flows, key)
		}
	}
	s.flows[state] = flow
	s.mu.Unlock()

	s.logger.Info("calendar authorization started", "user_id", userID)

	return &driving.StartConnectResponse{
		AuthURL: s.provider.BuildAuthURL(state),
		State:   state,
	}, nil
}

// Deliver hands an authorization code or provider error to a pending flow.
// The state is consumed durably before the exchange, so a code delivered
// twice (redirect plus manual submission) is exchanged exactly once.
func (s *connectService) Deliver(ctx context.Context, state, code, providerErr string) error {
	if state == "" {
		return domain.ErrInvalidState
	}

	stored, err := s.states.GetAndDelete(ctx, state)
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	if stored == nil {
		// Already consumed by a faster channel, or expired/forged.
		return domain.ErrInvalidState
	}
	if time.Now().After(stored.ExpiresAt) {
		return domain.ErrInvalidState
	}

	flow := s.takeFlow(state)

	if providerErr != "" {
		s.logger.Info("calendar authorization denied", "user_id", stored.UserID, "reason", providerErr)
		if flow != nil {
			flow.resolve(nil, &domain.OAuthError{Code: providerErr})
		}
		return nil
	}
	if code == "" {
		if flow != nil {
			flow.resolve(nil, domain.ErrInvalidInput)
		}
		return domain.ErrInvalidInput
	}

	status, err := s.exchange(ctx, stored.UserID, code, stored.RedirectURI)
	if flow != nil {
		flow.resolve(status, err)
	}
	if err != nil {
		return err
	}
	return nil
}

// exchange trades the code for tokens and persists the connection.
func (s *connectService) exchange(ctx context.Context, userID, code, redirectURI string) (*domain.ConnectionStatus, error) {
	token, err := s.provider.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		s.logger.Warn("token exchange failed", "user_id", userID, "error", err)
		return nil, err
	}

	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get calendar account: %w", err)
	}

	now := time.Now()
	if account == nil {
		account = &domain.CalendarAccount{
			UserID:    userID,
			CreatedAt: now,
		}
	}
	if account.Secrets == nil {
		account.Secrets = &domain.AccountSecrets{}
	}

	account.Authorized = true
	account.Secrets.AccessToken = token.AccessToken
	// The provider only returns a refresh token on first consent; keep
	// the one we already hold when it is omitted.
	if token.RefreshToken != "" {
		account.Secrets.RefreshToken = token.RefreshToken
	}
	expiry := now.Add(time.Duration(token.ExpiresIn) * time.Second)
	account.TokenExpiry = &expiry
	account.UpdatedAt = now

	if email, err := s.provider.UserEmail(ctx, token.AccessToken); err == nil {
		account.AccountEmail = email
	} else {
		s.logger.Warn("failed to resolve account email", "user_id", userID, "error", err)
	}

	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("save calendar account: %w", err)
	}

	s.logger.Info("calendar connected", "user_id", userID, "account_email", account.AccountEmail)

	return account.ToStatus(), nil
}

// Wait blocks until the flow resolves or times out.
func (s *connectService) Wait(ctx context.Context, state string) (*domain.ConnectionStatus, error) {
	s.mu.Lock()
	flow := s.flows[state]
	s.mu.Unlock()
	if flow == nil {
		return nil, domain.ErrNotFound
	}

	deadline := flow.createdAt.Add(flowTimeout)
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-flow.done:
		s.dropFlow(state)
		return flow.status, flow.err
	case <-timer.C:
		flow.resolve(nil, domain.ErrAuthorizationTimeout)
		s.dropFlow(state)
		return nil, domain.ErrAuthorizationTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FlowStatus reports the current phase of a pending flow without blocking.
func (s *connectService) FlowStatus(ctx context.Context, state string) (*driving.ConnectFlowStatus, error) {
	s.mu.Lock()
	flow := s.flows[state]
	s.mu.Unlock()
	if flow == nil {
		return nil, domain.ErrNotFound
	}

	select {
	case <-flow.done:
		if flow.err != nil {
			return &driving.ConnectFlowStatus{
				State: driving.ConnectStateFailed,
				Error: flow.err.Error(),
			}, nil
		}
		return &driving.ConnectFlowStatus{State: driving.ConnectStateAuthorized}, nil
	default:
		return &driving.ConnectFlowStatus{State: driving.ConnectStateAwaitingConsent}, nil
	}
}

// Status reports the user's stored connection state.
func (s *connectService) Status(ctx context.Context, userID string) (*domain.ConnectionStatus, error) {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get calendar account: %w", err)
	}
	if account == nil {
		return &domain.ConnectionStatus{Connected: false}, nil
	}
	return account.ToStatus(), nil
}

// ListCalendars retrieves the selectable calendars on the connected account.
func (s *connectService) ListCalendars(ctx context.Context, userID string) ([]*driving.CalendarInfo, error) {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get calendar account: %w", err)
	}
	if account == nil || !account.Authorized {
		return nil, domain.ErrNotConnected
	}

	calendars, err := s.provider.ListCalendars(ctx, account.AccessToken())
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	selected := make(map[string]bool, len(account.CalendarIDs))
	for _, id := range account.SyncCalendarIDs() {
		selected[id] = true
	}

	infos := make([]*driving.CalendarInfo, 0, len(calendars))
	for _, c := range calendars {
		infos = append(infos, &driving.CalendarInfo{
			ID:       c.ID,
			Name:     c.Summary,
			Primary:  c.Primary,
			Selected: selected[c.ID] || (c.Primary && selected["primary"]),
		})
	}
	return infos, nil
}

// UpdateCalendarIDs replaces the set of calendars selected for sync.
func (s *connectService) UpdateCalendarIDs(ctx context.Context, userID string, calendarIDs []string) error {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get calendar account: %w", err)
	}
	if account == nil || !account.Authorized {
		return domain.ErrNotConnected
	}

	account.CalendarIDs = calendarIDs
	account.UpdatedAt = time.Now()
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return fmt.Errorf("save calendar account: %w", err)
	}

	// Cached windows for deselected calendars are now stale.
	if err := s.cache.ClearAll(ctx, userID); err != nil {
		s.logger.Warn("failed to clear event cache", "user_id", userID, "error", err)
	}
	return nil
}

// Disconnect revokes tokens best-effort and removes all connection data.
func (s *connectService) Disconnect(ctx context.Context, userID string) error {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get calendar account: %w", err)
	}
	if account == nil {
		return domain.ErrNotConnected
	}

	if token := account.RefreshToken(); token != "" {
		if err := s.provider.Revoke(ctx, token); err != nil {
			s.logger.Warn("token revocation failed", "user_id", userID, "error", err)
		}
	}

	if err := s.accounts.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete calendar account: %w", err)
	}
	if _, err := s.events.DeleteByUser(ctx, userID); err != nil {
		s.logger.Warn("failed to delete synced events", "user_id", userID, "error", err)
	}
	if err := s.cache.ClearAll(ctx, userID); err != nil {
		s.logger.Warn("failed to clear event cache", "user_id", userID, "error", err)
	}

	s.logger.Info("calendar disconnected", "user_id", userID)
	return nil
}

func (s *connectService) takeFlow(state string) *pendingFlow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flows[state]
}

func (s *connectService) dropFlow(state string) {
	s.mu.Lock()
	delete(s.flows, state)
	s.mu.Unlock()
}

// generateRandomString returns a URL-safe random string of n bytes entropy.
func generateRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
