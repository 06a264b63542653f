package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	authenticateFn   func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn  func(ctx context.Context, token string) (*domain.AuthContext, error)
	refreshTokenFn   func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)
	logoutFn         func(ctx context.Context, token string) error
	changePasswordFn func(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if m.refreshTokenFn != nil {
		return m.refreshTokenFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) LogoutAll(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, userID, req)
	}
	return nil
}

type mockUserService struct {
	setupFn       func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error)
	createFn      func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error)
	getFn         func(ctx context.Context, id string) (*domain.User, error)
	listFn        func(ctx context.Context) ([]*domain.User, error)
	updateFn      func(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error)
	deleteFn      func(ctx context.Context, id string) error
	setPasswordFn func(ctx context.Context, id string, password string) error
}

func (m *mockUserService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if m.setupFn != nil {
		return m.setupFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) List(ctx context.Context) ([]*domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Update(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockUserService) SetPassword(ctx context.Context, id string, password string) error {
	if m.setPasswordFn != nil {
		return m.setPasswordFn(ctx, id, password)
	}
	return nil
}

type mockConnectService struct {
	startFn           func(ctx context.Context, userID string) (*driving.StartConnectResponse, error)
	deliverFn         func(ctx context.Context, state, code, providerErr string) error
	waitFn            func(ctx context.Context, state string) (*domain.ConnectionStatus, error)
	flowStatusFn      func(ctx context.Context, state string) (*driving.ConnectFlowStatus, error)
	statusFn          func(ctx context.Context, userID string) (*domain.ConnectionStatus, error)
	listCalendarsFn   func(ctx context.Context, userID string) ([]*driving.CalendarInfo, error)
	updateCalendarsFn func(ctx context.Context, userID string, calendarIDs []string) error
	disconnectFn      func(ctx context.Context, userID string) error
}

func (m *mockConnectService) Start(ctx context.Context, userID string) (*driving.StartConnectResponse, error) {
	if m.startFn != nil {
		return m.startFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConnectService) Deliver(ctx context.Context, state, code, providerErr string) error {
	if m.deliverFn != nil {
		return m.deliverFn(ctx, state, code, providerErr)
	}
	return errors.New("not implemented")
}

func (m *mockConnectService) Wait(ctx context.Context, state string) (*domain.ConnectionStatus, error) {
	if m.waitFn != nil {
		return m.waitFn(ctx, state)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConnectService) FlowStatus(ctx context.Context, state string) (*driving.ConnectFlowStatus, error) {
	if m.flowStatusFn != nil {
		return m.flowStatusFn(ctx, state)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConnectService) Status(ctx context.Context, userID string) (*domain.ConnectionStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConnectService) ListCalendars(ctx context.Context, userID string) ([]*driving.CalendarInfo, error) {
	if m.listCalendarsFn != nil {
		return m.listCalendarsFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConnectService) UpdateCalendarIDs(ctx context.Context, userID string, calendarIDs []string) error {
	if m.updateCalendarsFn != nil {
		return m.updateCalendarsFn(ctx, userID, calendarIDs)
	}
	return errors.New("not implemented")
}

func (m *mockConnectService) Disconnect(ctx context.Context, userID string) error {
	if m.disconnectFn != nil {
		return m.disconnectFn(ctx, userID)
	}
	return errors.New("not implemented")
}

type mockSyncService struct {
	syncFn     func(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncResult, error)
	eventsFn   func(ctx context.Context, userID string, q driving.EventQuery) ([]*domain.CalendarEvent, error)
	clearAllFn func(ctx context.Context, userID string) (int, error)
}

func (m *mockSyncService) Sync(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncResult, error) {
	if m.syncFn != nil {
		return m.syncFn(ctx, userID, opts)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSyncService) Events(ctx context.Context, userID string, q driving.EventQuery) ([]*domain.CalendarEvent, error) {
	if m.eventsFn != nil {
		return m.eventsFn(ctx, userID, q)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSyncService) ClearAll(ctx context.Context, userID string) (int, error) {
	if m.clearAllFn != nil {
		return m.clearAllFn(ctx, userID)
	}
	return 0, errors.New("not implemented")
}

type mockItemService struct {
	createFn func(ctx context.Context, userID string, req driving.CreateItemRequest) (*domain.Item, error)
	getFn    func(ctx context.Context, userID, id string) (*domain.Item, error)
	listFn   func(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.Item, error)
	updateFn func(ctx context.Context, userID, id string, req driving.UpdateItemRequest) (*domain.Item, error)
	deleteFn func(ctx context.Context, userID, id string) error
}

func (m *mockItemService) Create(ctx context.Context, userID string, req driving.CreateItemRequest) (*domain.Item, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockItemService) Get(ctx context.Context, userID, id string) (*domain.Item, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockItemService) List(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.Item, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, kind)
	}
	return nil, errors.New("not implemented")
}

func (m *mockItemService) Update(ctx context.Context, userID, id string, req driving.UpdateItemRequest) (*domain.Item, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockItemService) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return errors.New("not implemented")
}

// withAuth attaches an authenticated user to the request context.
func withAuth(req *http.Request, userID string) *http.Request {
	authCtx := &domain.AuthContext{UserID: userID, Role: domain.RoleMember}
	ctx := context.WithValue(req.Context(), authContextKey, authCtx)
	return req.WithContext(ctx)
}

// Health endpoints

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	(&Server{version: "test"}).handleHealth(rr, httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field = %q, want ok", resp.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	up := pingerFunc(func(ctx context.Context) error { return nil })
	down := pingerFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		db, rdb  Pinger
		wantCode int
	}{
		{"no backends wired", nil, nil, http.StatusOK},
		{"all healthy", up, up, http.StatusOK},
		{"database down", down, up, http.StatusServiceUnavailable},
		{"cache down", up, down, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{db: tt.db, redisClient: tt.rdb}
			rr := httptest.NewRecorder()
			server.handleReady(rr, httptest.NewRequest("GET", "/ready", nil))
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	(&Server{version: "1.2.3"}).handleVersion(rr, httptest.NewRequest("GET", "/version", nil))

	var resp VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", resp.Version)
	}
}

func TestWriteHelpers(t *testing.T) {
	t.Run("writeJSON", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeJSON(rr, http.StatusCreated, map[string]int{"n": 7})

		if rr.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("writeError", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeError(rr, http.StatusBadRequest, "too many pigeons")

		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error != "too many pigeons" {
			t.Errorf("error = %q", resp.Error)
		}
	})
}

// Auth endpoints

func TestHandleLogin(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour)
	mockAuth := &mockAuthService{
		authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			if req.Email != "ines@daybook.dev" || req.Password != "correct horse" {
				return nil, domain.ErrInvalidCredentials
			}
			return &domain.LoginResponse{
				Token:        "tok-abc",
				RefreshToken: "ref-abc",
				ExpiresAt:    expiresAt,
				User:         &domain.UserSummary{ID: "u-ines", Email: req.Email, Role: domain.RoleAdmin},
			}, nil
		},
	}
	server := &Server{authService: mockAuth}

	login := func(t *testing.T, payload string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(payload))
		rr := httptest.NewRecorder()
		server.handleLogin(rr, req)
		return rr
	}

	t.Run("success", func(t *testing.T) {
		rr := login(t, `{"email":"ines@daybook.dev","password":"correct horse"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		var resp domain.LoginResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Token != "tok-abc" || resp.User.ID != "u-ines" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		if rr := login(t, `{"email":"ines@daybook.dev","password":"nope"}`); rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("garbage body", func(t *testing.T) {
		if rr := login(t, `{{{`); rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
}

func TestHandleLogin_DisabledAccount(t *testing.T) {
	server := &Server{authService: &mockAuthService{
		authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			return nil, domain.ErrUnauthorized
		},
	}}

	body, _ := json.Marshal(domain.LoginRequest{Email: "off@daybook.dev", Password: "pw"})
	rr := httptest.NewRecorder()
	server.handleLogin(rr, httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body)))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "account disabled") {
		t.Errorf("body %q should mention the disabled account", rr.Body.String())
	}
}

func TestHandleRefresh_InvalidToken(t *testing.T) {
	server := &Server{authService: &mockAuthService{
		refreshTokenFn: func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
			return nil, domain.ErrTokenInvalid
		},
	}}

	body, _ := json.Marshal(domain.RefreshRequest{RefreshToken: "stale"})
	rr := httptest.NewRecorder()
	server.handleRefresh(rr, httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewReader(body)))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestHandleLogout(t *testing.T) {
	var loggedOut string
	server := &Server{authService: &mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			loggedOut = token
			return nil
		},
	}}

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok-xyz")
	rr := httptest.NewRecorder()
	server.handleLogout(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if loggedOut != "tok-xyz" {
		t.Errorf("logged out token %q, want tok-xyz", loggedOut)
	}

	// Logout without a token is a harmless no-op, not an error.
	rr = httptest.NewRecorder()
	server.handleLogout(rr, httptest.NewRequest("POST", "/api/v1/auth/logout", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("tokenless logout status = %d, want 200", rr.Code)
	}
}

func TestHandleChangePassword_WrongCurrent(t *testing.T) {
	server := &Server{authService: &mockAuthService{
		changePasswordFn: func(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
			return domain.ErrInvalidCredentials
		},
	}}

	body, _ := json.Marshal(domain.ChangePasswordRequest{CurrentPassword: "guess", NewPassword: "fresh-enough"})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/me/password", bytes.NewReader(body)), "u-ines")
	rr := httptest.NewRecorder()
	server.handleChangePassword(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestHandleSetup_AlreadyComplete(t *testing.T) {
	server := &Server{userService: &mockUserService{
		setupFn: func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
			return nil, domain.ErrForbidden
		},
	}}

	body, _ := json.Marshal(driving.SetupRequest{Email: "root@daybook.dev", Password: "pw123456", Name: "Root"})
	rr := httptest.NewRecorder()
	server.handleSetup(rr, httptest.NewRequest("POST", "/api/v1/setup", bytes.NewReader(body)))

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestHandleGetMe(t *testing.T) {
	server := &Server{userService: &mockUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "ines@daybook.dev", PasswordHash: "must-not-leak"}, nil
		},
	}}

	t.Run("returns summary", func(t *testing.T) {
		req := withAuth(httptest.NewRequest("GET", "/api/v1/me", nil), "u-ines")
		rr := httptest.NewRecorder()
		server.handleGetMe(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		if strings.Contains(rr.Body.String(), "must-not-leak") {
			t.Error("password hash leaked into the /me response")
		}
		var resp domain.UserSummary
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.ID != "u-ines" {
			t.Errorf("got user %q, want u-ines", resp.ID)
		}
	})

	t.Run("no auth context", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.handleGetMe(rr, httptest.NewRequest("GET", "/api/v1/me", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})
}

func TestHandleDeleteUser_NotFound(t *testing.T) {
	server := &Server{userService: &mockUserService{
		deleteFn: func(ctx context.Context, id string) error {
			return domain.ErrNotFound
		},
	}}

	req := httptest.NewRequest("DELETE", "/api/v1/users/ghost", nil)
	req.SetPathValue("id", "ghost")
	rr := httptest.NewRecorder()
	server.handleDeleteUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

// Item endpoints

func TestHandleCreateItem_Success(t *testing.T) {
	mockItems := &mockItemService{
		createFn: func(ctx context.Context, userID string, req driving.CreateItemRequest) (*domain.Item, error) {
			return &domain.Item{
				ID:     "item-1",
				UserID: userID,
				Kind:   req.Kind,
				Title:  req.Title,
			}, nil
		},
	}

	server := &Server{itemService: mockItems}

	body, _ := json.Marshal(driving.CreateItemRequest{
		Kind:  domain.ItemKindTask,
		Title: "Buy groceries",
	})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/items", bytes.NewBuffer(body)), "user-1")
	rr := httptest.NewRecorder()

	server.handleCreateItem(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}

	var response domain.Item
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.UserID != "user-1" {
		t.Errorf("expected owner 'user-1', got %s", response.UserID)
	}
	if response.Kind != domain.ItemKindTask {
		t.Errorf("expected kind 'task', got %s", response.Kind)
	}
}

func TestHandleCreateItem_InvalidInput(t *testing.T) {
	mockItems := &mockItemService{
		createFn: func(ctx context.Context, userID string, req driving.CreateItemRequest) (*domain.Item, error) {
			return nil, domain.ErrInvalidInput
		},
	}

	server := &Server{itemService: mockItems}

	body, _ := json.Marshal(driving.CreateItemRequest{Kind: "widget", Title: ""})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/items", bytes.NewBuffer(body)), "user-1")
	rr := httptest.NewRecorder()

	server.handleCreateItem(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleListItems_KindFilter(t *testing.T) {
	var gotKind domain.ItemKind
	mockItems := &mockItemService{
		listFn: func(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.Item, error) {
			gotKind = kind
			return []*domain.Item{{ID: "item-1", Kind: kind}}, nil
		},
	}

	server := &Server{itemService: mockItems}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/items?kind=note", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleListItems(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if gotKind != domain.ItemKindNote {
		t.Errorf("expected kind filter 'note', got %s", gotKind)
	}
}

func TestHandleGetItem_NotFound(t *testing.T) {
	mockItems := &mockItemService{
		getFn: func(ctx context.Context, userID, id string) (*domain.Item, error) {
			return nil, domain.ErrNotFound
		},
	}

	server := &Server{itemService: mockItems}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/items/item-9", nil), "user-1")
	req.SetPathValue("id", "item-9")
	rr := httptest.NewRecorder()

	server.handleGetItem(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleUpdateItem_Success(t *testing.T) {
	mockItems := &mockItemService{
		updateFn: func(ctx context.Context, userID, id string, req driving.UpdateItemRequest) (*domain.Item, error) {
			item := &domain.Item{ID: id, UserID: userID, Kind: domain.ItemKindTask, Title: "old"}
			if req.Title != nil {
				item.Title = *req.Title
			}
			if req.Completed != nil {
				item.Completed = *req.Completed
			}
			return item, nil
		},
	}

	server := &Server{itemService: mockItems}

	done := true
	body, _ := json.Marshal(driving.UpdateItemRequest{Completed: &done})
	req := withAuth(httptest.NewRequest("PATCH", "/api/v1/items/item-1", bytes.NewBuffer(body)), "user-1")
	req.SetPathValue("id", "item-1")
	rr := httptest.NewRecorder()

	server.handleUpdateItem(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response domain.Item
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Completed {
		t.Error("expected item to be completed")
	}
	if response.Title != "old" {
		t.Errorf("title should be unchanged, got %s", response.Title)
	}
}

func TestHandleDeleteItem_Success(t *testing.T) {
	mockItems := &mockItemService{
		deleteFn: func(ctx context.Context, userID, id string) error {
			return nil
		},
	}

	server := &Server{itemService: mockItems}

	req := withAuth(httptest.NewRequest("DELETE", "/api/v1/items/item-1", nil), "user-1")
	req.SetPathValue("id", "item-1")
	rr := httptest.NewRecorder()

	server.handleDeleteItem(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

// Calendar connection endpoints

func TestHandleConnectStart_Success(t *testing.T) {
	mockConnect := &mockConnectService{
		startFn: func(ctx context.Context, userID string) (*driving.StartConnectResponse, error) {
			return &driving.StartConnectResponse{
				AuthURL: "https://accounts.google.com/o/oauth2/auth?state=abc",
				State:   "abc",
			}, nil
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/connect", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleConnectStart(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response driving.StartConnectResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.State != "abc" {
		t.Errorf("expected state 'abc', got %s", response.State)
	}
	if response.AuthURL == "" {
		t.Error("expected a consent URL")
	}
}

func TestHandleConnectStart_NotConfigured(t *testing.T) {
	mockConnect := &mockConnectService{
		startFn: func(ctx context.Context, userID string) (*driving.StartConnectResponse, error) {
			return nil, domain.ErrNotConfigured
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/connect", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleConnectStart(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestHandleConnectCode_Success(t *testing.T) {
	var gotState, gotCode string
	mockConnect := &mockConnectService{
		deliverFn: func(ctx context.Context, state, code, providerErr string) error {
			gotState, gotCode = state, code
			return nil
		},
	}

	server := &Server{connectService: mockConnect}

	body, _ := json.Marshal(submitCodeRequest{State: "abc", Code: "4/xyz"})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/connect/code", bytes.NewBuffer(body)), "user-1")
	rr := httptest.NewRecorder()

	server.handleConnectCode(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if gotState != "abc" || gotCode != "4/xyz" {
		t.Errorf("delivered state=%q code=%q", gotState, gotCode)
	}
}

func TestHandleConnectCode_MissingFields(t *testing.T) {
	server := &Server{}

	body, _ := json.Marshal(submitCodeRequest{State: "abc"})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/connect/code", bytes.NewBuffer(body)), "user-1")
	rr := httptest.NewRecorder()

	server.handleConnectCode(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleConnectCode_AlreadyUsed(t *testing.T) {
	mockConnect := &mockConnectService{
		deliverFn: func(ctx context.Context, state, code, providerErr string) error {
			return domain.ErrInvalidState
		},
	}

	server := &Server{connectService: mockConnect}

	body, _ := json.Marshal(submitCodeRequest{State: "used", Code: "4/xyz"})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/connect/code", bytes.NewBuffer(body)), "user-1")
	rr := httptest.NewRecorder()

	server.handleConnectCode(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleConnectCallback_Success(t *testing.T) {
	var gotCode, gotErr string
	mockConnect := &mockConnectService{
		deliverFn: func(ctx context.Context, state, code, providerErr string) error {
			gotCode, gotErr = code, providerErr
			return nil
		},
	}

	server := &Server{connectService: mockConnect}

	req := httptest.NewRequest("GET", "/api/v1/calendar/callback?state=abc&code=4%2Fxyz", nil)
	rr := httptest.NewRecorder()

	server.handleConnectCallback(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Type"), "text/html") {
		t.Errorf("callback should answer HTML, got %s", rr.Header().Get("Content-Type"))
	}
	if gotCode != "4/xyz" || gotErr != "" {
		t.Errorf("delivered code=%q err=%q", gotCode, gotErr)
	}
}

func TestHandleConnectCallback_ProviderDenial(t *testing.T) {
	var gotErr string
	mockConnect := &mockConnectService{
		deliverFn: func(ctx context.Context, state, code, providerErr string) error {
			gotErr = providerErr
			return nil
		},
	}

	server := &Server{connectService: mockConnect}

	req := httptest.NewRequest("GET", "/api/v1/calendar/callback?state=abc&error=access_denied", nil)
	rr := httptest.NewRecorder()

	server.handleConnectCallback(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if gotErr != "access_denied" {
		t.Errorf("expected provider error to be forwarded, got %q", gotErr)
	}
}

func TestHandleConnectCallback_DuplicateRedirect(t *testing.T) {
	mockConnect := &mockConnectService{
		deliverFn: func(ctx context.Context, state, code, providerErr string) error {
			return domain.ErrInvalidState
		},
	}

	server := &Server{connectService: mockConnect}

	req := httptest.NewRequest("GET", "/api/v1/calendar/callback?state=abc&code=again", nil)
	rr := httptest.NewRecorder()

	server.handleConnectCallback(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleConnectCallback_MissingState(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("GET", "/api/v1/calendar/callback", nil)
	rr := httptest.NewRecorder()

	server.handleConnectCallback(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleConnectFlowStatus_Unknown(t *testing.T) {
	mockConnect := &mockConnectService{
		flowStatusFn: func(ctx context.Context, state string) (*driving.ConnectFlowStatus, error) {
			return nil, domain.ErrNotFound
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/calendar/connect/nope", nil), "user-1")
	req.SetPathValue("state", "nope")
	rr := httptest.NewRecorder()

	server.handleConnectFlowStatus(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleConnectWait_Timeout(t *testing.T) {
	mockConnect := &mockConnectService{
		waitFn: func(ctx context.Context, state string) (*domain.ConnectionStatus, error) {
			return nil, domain.ErrAuthorizationTimeout
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/calendar/connect/abc/wait", nil), "user-1")
	req.SetPathValue("state", "abc")
	rr := httptest.NewRecorder()

	server.handleConnectWait(rr, req)

	if rr.Code != http.StatusRequestTimeout {
		t.Errorf("expected status 408, got %d", rr.Code)
	}
}

func TestHandleConnectWait_UserDenied(t *testing.T) {
	mockConnect := &mockConnectService{
		waitFn: func(ctx context.Context, state string) (*domain.ConnectionStatus, error) {
			return nil, &domain.OAuthError{Code: "access_denied"}
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/calendar/connect/abc/wait", nil), "user-1")
	req.SetPathValue("state", "abc")
	rr := httptest.NewRecorder()

	server.handleConnectWait(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "access_denied") {
		t.Errorf("denial code missing from body: %s", rr.Body.String())
	}
}

func TestHandleConnectWait_ExchangeFailed(t *testing.T) {
	mockConnect := &mockConnectService{
		waitFn: func(ctx context.Context, state string) (*domain.ConnectionStatus, error) {
			return nil, domain.ErrExchangeFailed
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/calendar/connect/abc/wait", nil), "user-1")
	req.SetPathValue("state", "abc")
	rr := httptest.NewRecorder()

	server.handleConnectWait(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rr.Code)
	}
}

func TestHandleConnectWait_Success(t *testing.T) {
	mockConnect := &mockConnectService{
		waitFn: func(ctx context.Context, state string) (*domain.ConnectionStatus, error) {
			return &domain.ConnectionStatus{Connected: true, AccountEmail: "me@gmail.com"}, nil
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/calendar/connect/abc/wait", nil), "user-1")
	req.SetPathValue("state", "abc")
	rr := httptest.NewRecorder()

	server.handleConnectWait(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response domain.ConnectionStatus
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Connected {
		t.Error("expected a connected status")
	}
}

func TestHandleListCalendars_NotConnected(t *testing.T) {
	mockConnect := &mockConnectService{
		listCalendarsFn: func(ctx context.Context, userID string) ([]*driving.CalendarInfo, error) {
			return nil, domain.ErrNotConnected
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/calendar/calendars", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleListCalendars(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleUpdateCalendars_Success(t *testing.T) {
	var gotIDs []string
	mockConnect := &mockConnectService{
		updateCalendarsFn: func(ctx context.Context, userID string, calendarIDs []string) error {
			gotIDs = calendarIDs
			return nil
		},
	}

	server := &Server{connectService: mockConnect}

	body, _ := json.Marshal(updateCalendarsRequest{CalendarIDs: []string{"primary", "work@group.calendar.google.com"}})
	req := withAuth(httptest.NewRequest("PUT", "/api/v1/calendar/calendars", bytes.NewBuffer(body)), "user-1")
	rr := httptest.NewRecorder()

	server.handleUpdateCalendars(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if len(gotIDs) != 2 {
		t.Errorf("expected 2 calendar IDs, got %d", len(gotIDs))
	}
}

func TestHandleDisconnect_Success(t *testing.T) {
	var disconnected string
	mockConnect := &mockConnectService{
		disconnectFn: func(ctx context.Context, userID string) error {
			disconnected = userID
			return nil
		},
	}

	server := &Server{connectService: mockConnect}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/disconnect", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleDisconnect(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if disconnected != "user-1" {
		t.Errorf("expected disconnect of 'user-1', got %s", disconnected)
	}
}

// Sync and event endpoints

func TestHandleSync_Success(t *testing.T) {
	mockSync := &mockSyncService{
		syncFn: func(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncResult, error) {
			return &domain.SyncResult{
				UserID:             userID,
				Success:            true,
				EventsProcessed:    12,
				CalendarsProcessed: 2,
			}, nil
		},
	}

	server := &Server{syncService: mockSync}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/sync", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleSync(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response domain.SyncResult
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success {
		t.Error("expected a successful sync")
	}
	if response.EventsProcessed != 12 {
		t.Errorf("expected 12 events processed, got %d", response.EventsProcessed)
	}
}

func TestHandleSync_AlreadyRunning(t *testing.T) {
	mockSync := &mockSyncService{
		syncFn: func(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncResult, error) {
			return nil, domain.ErrSyncInProgress
		},
	}

	server := &Server{syncService: mockSync}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/sync", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleSync(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleSync_ReauthorizationRequired(t *testing.T) {
	mockSync := &mockSyncService{
		syncFn: func(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncResult, error) {
			return nil, domain.ErrReauthorizationRequired
		},
	}

	server := &Server{syncService: mockSync}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/calendar/sync", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleSync(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["error"] != "reauthorization required" {
		t.Errorf("expected error 'reauthorization required', got %s", response["error"])
	}
}

func TestHandleListEvents_WindowAndForce(t *testing.T) {
	var gotQuery driving.EventQuery
	mockSync := &mockSyncService{
		eventsFn: func(ctx context.Context, userID string, q driving.EventQuery) ([]*domain.CalendarEvent, error) {
			gotQuery = q
			return []*domain.CalendarEvent{{ProviderEventID: "evt-1", Title: "Standup"}}, nil
		},
	}

	server := &Server{syncService: mockSync}

	url := "/api/v1/calendar/events?from=2026-08-01T00:00:00Z&to=2026-09-01T00:00:00Z&force=true"
	req := withAuth(httptest.NewRequest("GET", url, nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleListEvents(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if !gotQuery.Force {
		t.Error("expected force to be set")
	}
	if gotQuery.From.IsZero() || gotQuery.To.IsZero() {
		t.Error("expected both window bounds to be parsed")
	}
}

func TestHandleListEvents_MalformedBound(t *testing.T) {
	server := &Server{}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/calendar/events?from=yesterday", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleListEvents(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleClearEvents_Success(t *testing.T) {
	mockSync := &mockSyncService{
		clearAllFn: func(ctx context.Context, userID string) (int, error) {
			return 7, nil
		},
	}

	server := &Server{syncService: mockSync}

	req := withAuth(httptest.NewRequest("DELETE", "/api/v1/calendar/events", nil), "user-1")
	rr := httptest.NewRecorder()

	server.handleClearEvents(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response clearEventsResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Deleted != 7 {
		t.Errorf("expected 7 deleted, got %d", response.Deleted)
	}
}
