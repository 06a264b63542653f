package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven/mocks"
)

type connectFixture struct {
	accounts *mocks.MockCalendarAccountStore
	states   *mocks.MockOAuthStateStore
	events   *mocks.MockCalendarEventStore
	cache    *mocks.MockEventCache
	provider *mocks.MockCalendarProvider
	svc      *connectService
}

func newConnectFixture() *connectFixture {
	f := &connectFixture{
		accounts: mocks.NewMockCalendarAccountStore(),
		states:   mocks.NewMockOAuthStateStore(),
		events:   mocks.NewMockCalendarEventStore(),
		cache:    mocks.NewMockEventCache(),
		provider: mocks.NewMockCalendarProvider(),
	}
	f.svc = NewConnectService(ConnectServiceConfig{
		Accounts:    f.accounts,
		States:      f.states,
		Events:      f.events,
		Cache:       f.cache,
		Provider:    f.provider,
		RedirectURI: "http://localhost:8080/api/v1/calendar/callback",
	}).(*connectService)
	return f
}

func TestConnectService_Start(t *testing.T) {
	f := newConnectFixture()

	resp, err := f.svc.Start(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.State == "" {
		t.Error("expected a state token")
	}
	if !strings.Contains(resp.AuthURL, resp.State) {
		t.Errorf("auth URL %q should carry state %q", resp.AuthURL, resp.State)
	}
	if f.states.Count() != 1 {
		t.Errorf("expected 1 stored state, got %d", f.states.Count())
	}
}

func TestConnectService_Start_NotConfigured(t *testing.T) {
	f := newConnectFixture()
	f.svc.disabled = true

	_, err := f.svc.Start(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestConnectService_Start_SupersedesPendingFlow(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	first, err := f.svc.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Start(ctx, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The superseded flow resolves immediately as invalid.
	if _, err := f.svc.Wait(ctx, first.State); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for superseded flow, got %v", err)
	}
}

func TestConnectService_DeliverAndWait(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	resp, err := f.svc.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	var status *domain.ConnectionStatus
	var waitErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		status, waitErr = f.svc.Wait(ctx, resp.State)
	}()

	// Give the waiter a moment to block, then deliver the code.
	time.Sleep(10 * time.Millisecond)
	if err := f.svc.Deliver(ctx, resp.State, "the-code", ""); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	wg.Wait()

	if waitErr != nil {
		t.Fatalf("wait: %v", waitErr)
	}
	if !status.Connected {
		t.Error("expected connected status")
	}
	if status.AccountEmail != "user@example.com" {
		t.Errorf("AccountEmail = %q", status.AccountEmail)
	}

	account, _ := f.accounts.Get(ctx, "user-1")
	if account == nil || !account.Authorized {
		t.Fatal("expected an authorized stored account")
	}
	if account.AccessToken() != "access-the-code" {
		t.Errorf("AccessToken = %q", account.AccessToken())
	}
	if account.RefreshToken() != "refresh-the-code" {
		t.Errorf("RefreshToken = %q", account.RefreshToken())
	}
}

func TestConnectService_Deliver_FirstResolutionWins(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	resp, err := f.svc.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.svc.Deliver(ctx, resp.State, "the-code", ""); err != nil {
		t.Fatalf("first deliver: %v", err)
	}

	// The same code arriving over a second channel must not trigger a
	// second exchange.
	if err := f.svc.Deliver(ctx, resp.State, "the-code", ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on duplicate delivery, got %v", err)
	}
	if f.provider.ExchangeCalls != 1 {
		t.Errorf("expected exactly 1 exchange, got %d", f.provider.ExchangeCalls)
	}
}

func TestConnectService_Deliver_ProviderDenial(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	resp, err := f.svc.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.svc.Deliver(ctx, resp.State, "", "access_denied"); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	_, waitErr := f.svc.Wait(ctx, resp.State)
	var oauthErr *domain.OAuthError
	if !errors.As(waitErr, &oauthErr) {
		t.Fatalf("expected *domain.OAuthError, got %v", waitErr)
	}
	if oauthErr.Code != "access_denied" || !oauthErr.Denied() {
		t.Errorf("denial code = %q, want access_denied", oauthErr.Code)
	}
	if errors.Is(waitErr, domain.ErrExchangeFailed) {
		t.Error("a user denial must not read as an exchange failure")
	}
	if f.provider.ExchangeCalls != 0 {
		t.Error("denial must not trigger an exchange")
	}
}

func TestConnectService_Deliver_UnknownState(t *testing.T) {
	f := newConnectFixture()

	err := f.svc.Deliver(context.Background(), "forged-state", "code", "")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestConnectService_Exchange_PreservesRefreshToken(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	// Existing account holds a refresh token from an earlier consent.
	_ = f.accounts.Upsert(ctx, &domain.CalendarAccount{
		UserID:     "user-1",
		Authorized: false,
		Secrets:    &domain.AccountSecrets{RefreshToken: "old-refresh"},
	})

	// Re-consent: provider omits the refresh token this time.
	f.provider.ExchangeCodeFn = func(code, redirectURI string) (*driven.ProviderToken, error) {
		return &driven.ProviderToken{AccessToken: "new-access", ExpiresIn: 3600}, nil
	}

	resp, err := f.svc.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.Deliver(ctx, resp.State, "code", ""); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	account, _ := f.accounts.Get(ctx, "user-1")
	if account.RefreshToken() != "old-refresh" {
		t.Errorf("RefreshToken = %q, want the retained old-refresh", account.RefreshToken())
	}
	if account.AccessToken() != "new-access" {
		t.Errorf("AccessToken = %q", account.AccessToken())
	}
	if !account.Authorized {
		t.Error("account should be authorized again")
	}
}

func TestConnectService_FlowStatus(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	resp, err := f.svc.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := f.svc.FlowStatus(ctx, resp.State)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.State != "awaiting_consent" {
		t.Errorf("State = %q, want awaiting_consent", st.State)
	}

	if err := f.svc.Deliver(ctx, resp.State, "code", ""); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	st, err = f.svc.FlowStatus(ctx, resp.State)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.State != "authorized" {
		t.Errorf("State = %q, want authorized", st.State)
	}

	if _, err := f.svc.FlowStatus(ctx, "unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown state, got %v", err)
	}
}

func TestConnectService_Status(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	status, err := f.svc.Status(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Connected {
		t.Error("expected disconnected status for unknown user")
	}

	_ = f.accounts.Upsert(ctx, &domain.CalendarAccount{
		UserID:       "user-1",
		Authorized:   true,
		AccountEmail: "me@example.com",
	})

	status, err = f.svc.Status(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Connected || status.AccountEmail != "me@example.com" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestConnectService_ListCalendars(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	if _, err := f.svc.ListCalendars(ctx, "user-1"); !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	_ = f.accounts.Upsert(ctx, &domain.CalendarAccount{
		UserID:     "user-1",
		Authorized: true,
		Secrets:    &domain.AccountSecrets{AccessToken: "at"},
	})
	f.provider.ListCalendarsFn = func(accessToken string) ([]*driven.ProviderCalendar, error) {
		return []*driven.ProviderCalendar{
			{ID: "cal-primary", Summary: "Personal", Primary: true, AccessRole: "owner"},
			{ID: "cal-work", Summary: "Work", AccessRole: "writer"},
		}, nil
	}

	infos, err := f.svc.ListCalendars(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 calendars, got %d", len(infos))
	}
	// With no explicit selection, only the primary is marked selected.
	if !infos[0].Selected {
		t.Error("primary calendar should be selected by default")
	}
	if infos[1].Selected {
		t.Error("non-primary calendar should not be selected by default")
	}
}

func TestConnectService_UpdateCalendarIDs(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	_ = f.accounts.Upsert(ctx, &domain.CalendarAccount{UserID: "user-1", Authorized: true})
	_ = f.cache.Put(ctx, driven.EventCacheKey{UserID: "user-1", CalendarID: "all"}, nil)

	if err := f.svc.UpdateCalendarIDs(ctx, "user-1", []string{"cal-work"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	account, _ := f.accounts.Get(ctx, "user-1")
	if len(account.CalendarIDs) != 1 || account.CalendarIDs[0] != "cal-work" {
		t.Errorf("CalendarIDs = %v", account.CalendarIDs)
	}
	if f.cache.Len() != 0 {
		t.Error("selection change should clear cached windows")
	}
}

func TestConnectService_Disconnect(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	_ = f.accounts.Upsert(ctx, &domain.CalendarAccount{
		UserID:     "user-1",
		Authorized: true,
		Secrets:    &domain.AccountSecrets{AccessToken: "at", RefreshToken: "rt"},
	})
	_ = f.events.Upsert(ctx, &domain.CalendarEvent{
		UserID:          "user-1",
		ProviderEventID: "evt-1",
		Title:           "Dentist",
	})
	_ = f.cache.Put(ctx, driven.EventCacheKey{UserID: "user-1"}, nil)

	if err := f.svc.Disconnect(ctx, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if account, _ := f.accounts.Get(ctx, "user-1"); account != nil {
		t.Error("account should be removed")
	}
	if f.events.Count() != 0 {
		t.Error("synced events should be removed")
	}
	if f.cache.Len() != 0 {
		t.Error("cached windows should be removed")
	}
	if f.provider.RevokeCalls != 1 {
		t.Errorf("expected 1 revocation, got %d", f.provider.RevokeCalls)
	}
}

func TestConnectService_Disconnect_RevocationFailureIsNotFatal(t *testing.T) {
	f := newConnectFixture()
	ctx := context.Background()

	_ = f.accounts.Upsert(ctx, &domain.CalendarAccount{
		UserID:     "user-1",
		Authorized: true,
		Secrets:    &domain.AccountSecrets{RefreshToken: "rt"},
	})
	f.provider.RevokeFn = func(token string) error {
		return errors.New("provider unavailable")
	}

	if err := f.svc.Disconnect(ctx, "user-1"); err != nil {
		t.Fatalf("revocation failure should not block disconnect: %v", err)
	}
	if account, _ := f.accounts.Get(ctx, "user-1"); account != nil {
		t.Error("account should be removed despite revocation failure")
	}
}
