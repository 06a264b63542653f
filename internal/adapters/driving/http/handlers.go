package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, "ok")
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and cache connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A backing store is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeStatus(w, "ready")
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Auth endpoints

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with email and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials or account disabled"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case domain.ErrUnauthorized:
			writeError(w, http.StatusUnauthorized, "account disabled")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary      Refresh token
// @Description  Exchange a refresh token for a new JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid refresh token"
// @Router       /auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout user
// @Description  Invalidate the current session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeStatus(w, "ok")
		return
	}

	_ = s.authService.Logout(r.Context(), token)
	writeStatus(w, "ok")
}

// handleChangePassword godoc
// @Summary      Change password
// @Description  Change the password of the authenticated user. All other sessions are invalidated.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ChangePasswordRequest  true  "Current and new password"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Wrong current password"
// @Router       /me/password [post]
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.ChangePasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.authService.ChangePassword(r.Context(), authCtx.UserID, req); err != nil {
		switch err {
		case domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "wrong current password")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid new password")
		default:
			writeError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	writeStatus(w, "ok")
}

// Setup endpoint (no auth required, one-time use)

// handleSetup godoc
// @Summary      Initial setup
// @Description  Create the initial admin user. This endpoint can only be called once when no users exist.
// @Tags         Setup
// @Accept       json
// @Produce      json
// @Param        request  body      driving.SetupRequest  true  "Admin user details"
// @Success      201      {object}  driving.SetupResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      403      {object}  ErrorResponse  "Setup already complete"
// @Failure      500      {object}  ErrorResponse  "Setup failed"
// @Router       /setup [post]
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req driving.SetupRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.userService.Setup(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "email, password, and name are required")
		case domain.ErrForbidden:
			writeError(w, http.StatusForbidden, "setup already complete")
		default:
			writeError(w, http.StatusInternalServerError, "setup failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// User endpoints

// handleGetMe godoc
// @Summary      Get current user
// @Description  Get the currently authenticated user's profile
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.userService.Get(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleListUsers godoc
// @Summary      List all users
// @Description  Get a list of all users (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	summaries := make([]*domain.UserSummary, len(users))
	for i, u := range users {
		summaries[i] = u.ToSummary()
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleCreateUser godoc
// @Summary      Create user
// @Description  Create a new user (admin only)
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateUserRequest  true  "User details"
// @Success      201      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      409      {object}  ErrorResponse  "User already exists"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /users [post]
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Create(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrAlreadyExists:
			writeError(w, http.StatusConflict, "user already exists")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user.ToSummary())
}

// handleUpdateUser godoc
// @Summary      Update user
// @Description  Update a user's name, role, or active flag (admin only)
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        request  body      driving.UpdateUserRequest  true  "Fields to update"
// @Success      200      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404      {object}  ErrorResponse  "User not found"
// @Router       /users/{id} [put]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req driving.UpdateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Update(r.Context(), id, req)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleDeleteUser godoc
// @Summary      Delete user
// @Description  Delete a user by ID (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Missing user ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users/{id} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	if err := s.userService.Delete(r.Context(), id); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	writeStatus(w, "deleted")
}

// setPasswordRequest carries the new password for an admin reset
type setPasswordRequest struct {
	Password string `json:"password"`
}

// handleSetPassword godoc
// @Summary      Set user password
// @Description  Set a new password for a user (admin only). All of the user's sessions are invalidated.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "User ID"
// @Param        request  body      setPasswordRequest  true  "New password"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404      {object}  ErrorResponse  "User not found"
// @Router       /users/{id}/password [put]
func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req setPasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.userService.SetPassword(r.Context(), id, req.Password); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid password")
		default:
			writeError(w, http.StatusInternalServerError, "failed to set password")
		}
		return
	}

	writeStatus(w, "ok")
}

// Item endpoints

// handleCreateItem godoc
// @Summary      Create item
// @Description  Create a planner item (task, project, event, note, or bookmark) owned by the authenticated user
// @Tags         Items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateItemRequest  true  "Item details"
// @Success      201      {object}  domain.Item
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /items [post]
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.CreateItemRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.itemService.Create(r.Context(), authCtx.UserID, req)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "title and a valid kind are required")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create item")
		}
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// handleListItems godoc
// @Summary      List items
// @Description  List the authenticated user's planner items, optionally filtered by kind
// @Tags         Items
// @Produce      json
// @Security     BearerAuth
// @Param        kind  query     string  false  "Filter by item kind"  Enums(task, project, event, note, bookmark)
// @Success      200   {array}   domain.Item
// @Failure      400   {object}  ErrorResponse  "Unknown kind"
// @Failure      401   {object}  ErrorResponse  "Unauthorized"
// @Failure      500   {object}  ErrorResponse  "Internal server error"
// @Router       /items [get]
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kind := domain.ItemKind(r.URL.Query().Get("kind"))

	items, err := s.itemService.List(r.Context(), authCtx.UserID, kind)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "unknown item kind")
		default:
			writeError(w, http.StatusInternalServerError, "failed to list items")
		}
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// handleGetItem godoc
// @Summary      Get item
// @Description  Get one of the authenticated user's planner items by ID
// @Tags         Items
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  domain.Item
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Item not found"
// @Router       /items/{id} [get]
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	item, err := s.itemService.Get(r.Context(), authCtx.UserID, r.PathValue("id"))
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "item not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get item")
		}
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// handleUpdateItem godoc
// @Summary      Update item
// @Description  Apply a partial update to one of the authenticated user's planner items
// @Tags         Items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Item ID"
// @Param        request  body      driving.UpdateItemRequest  true  "Fields to update"
// @Success      200      {object}  domain.Item
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Item not found"
// @Router       /items/{id} [patch]
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.UpdateItemRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.itemService.Update(r.Context(), authCtx.UserID, r.PathValue("id"), req)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "item not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update item")
		}
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// handleDeleteItem godoc
// @Summary      Delete item
// @Description  Delete one of the authenticated user's planner items
// @Tags         Items
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Item not found"
// @Router       /items/{id} [delete]
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.itemService.Delete(r.Context(), authCtx.UserID, r.PathValue("id")); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "item not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete item")
		}
		return
	}

	writeStatus(w, "deleted")
}

// Calendar connection endpoints

// handleConnectStart godoc
// @Summary      Start calendar connection
// @Description  Begin the OAuth authorization flow. Returns the provider consent URL the user must visit and the state token for polling. Starting a new flow supersedes any pending one.
// @Tags         Calendar
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  driving.StartConnectResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      503  {object}  ErrorResponse  "Calendar integration not configured"
// @Router       /calendar/connect [post]
func (s *Server) handleConnectStart(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := s.connectService.Start(r.Context(), authCtx.UserID)
	if err != nil {
		switch err {
		case domain.ErrNotConfigured:
			writeError(w, http.StatusServiceUnavailable, "calendar integration not configured")
		default:
			writeError(w, http.StatusInternalServerError, "failed to start authorization")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// submitCodeRequest carries a manually pasted authorization code
type submitCodeRequest struct {
	State string `json:"state"`
	Code  string `json:"code"`
}

// handleConnectCode godoc
// @Summary      Submit authorization code
// @Description  Hand a manually pasted authorization code to a pending flow. Used when the provider redirect cannot reach this server. The first delivery for a state wins; later ones are rejected.
// @Tags         Calendar
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      submitCodeRequest  true  "State token and authorization code"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      409      {object}  ErrorResponse  "Unknown or already used state"
// @Router       /calendar/connect/code [post]
func (s *Server) handleConnectCode(w http.ResponseWriter, r *http.Request) {
	var req submitCodeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.State == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "state and code are required")
		return
	}

	if err := s.connectService.Deliver(r.Context(), req.State, req.Code, ""); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidState):
			writeError(w, http.StatusConflict, "unknown or already used state")
		default:
			writeError(w, http.StatusInternalServerError, "failed to deliver code")
		}
		return
	}

	writeStatus(w, "accepted")
}

// handleConnectCallback receives the provider redirect. It is a browser
// endpoint, so it answers with a small HTML page rather than JSON.
func (s *Server) handleConnectCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	if state == "" {
		writeCallbackPage(w, http.StatusBadRequest, "Missing state parameter.")
		return
	}

	err := s.connectService.Deliver(r.Context(), state, q.Get("code"), q.Get("error"))
	switch {
	case err == nil:
		writeCallbackPage(w, http.StatusOK, "Calendar connected. You can close this window.")
	case errors.Is(err, domain.ErrInvalidState):
		// A duplicate redirect for an already resolved flow.
		writeCallbackPage(w, http.StatusConflict, "This authorization link was already used.")
	default:
		writeCallbackPage(w, http.StatusInternalServerError, "Authorization failed. Please try again.")
	}
}

// handleConnectFlowStatus godoc
// @Summary      Poll connection flow
// @Description  Report the current phase of a pending authorization flow without blocking
// @Tags         Calendar
// @Produce      json
// @Security     BearerAuth
// @Param        state  path      string  true  "Flow state token"
// @Success      200    {object}  driving.ConnectFlowStatus
// @Failure      401    {object}  ErrorResponse  "Unauthorized"
// @Failure      404    {object}  ErrorResponse  "Unknown flow"
// @Router       /calendar/connect/{state} [get]
func (s *Server) handleConnectFlowStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.connectService.FlowStatus(r.Context(), r.PathValue("state"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "unknown flow")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get flow status")
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleConnectWait godoc
// @Summary      Wait for connection flow
// @Description  Block until the authorization flow resolves, the flow deadline passes, or the request is cancelled
// @Tags         Calendar
// @Produce      json
// @Security     BearerAuth
// @Param        state  path      string  true  "Flow state token"
// @Success      200    {object}  domain.ConnectionStatus
// @Failure      401    {object}  ErrorResponse  "Unauthorized"
// @Failure      403    {object}  ErrorResponse  "User denied or provider rejected the consent"
// @Failure      404    {object}  ErrorResponse  "Unknown flow"
// @Failure      408    {object}  ErrorResponse  "Authorization timed out"
// @Failure      502    {object}  ErrorResponse  "Token exchange failed"
// @Router       /calendar/connect/{state}/wait [get]
func (s *Server) handleConnectWait(w http.ResponseWriter, r *http.Request) {
	status, err := s.connectService.Wait(r.Context(), r.PathValue("state"))
	if err != nil {
		var oauthErr *domain.OAuthError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "unknown flow")
		case errors.Is(err, domain.ErrAuthorizationTimeout):
			writeError(w, http.StatusRequestTimeout, "authorization timed out")
		case errors.As(err, &oauthErr):
			// The user said no; that is their answer, not our failure.
			writeError(w, http.StatusForbidden, oauthErr.Error())
		case errors.Is(err, domain.ErrExchangeFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "authorization failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleConnectionStatus godoc
// @Summary      Get connection status
// @Description  Get the stored calendar connection state for the authenticated user
// @Tags         Calendar
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ConnectionStatus
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /calendar/status [get]
func (s *Server) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := s.connectService.Status(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get connection status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleListCalendars godoc
// @Summary      List calendars
// @Description  List the calendars available on the connected account, with their sync selection
// @Tags         Calendar
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   driving.CalendarInfo
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      409  {object}  ErrorResponse  "Calendar not connected or reauthorization required"
// @Router       /calendar/calendars [get]
func (s *Server) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	calendars, err := s.connectService.ListCalendars(r.Context(), authCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotConnected):
			writeError(w, http.StatusConflict, "calendar not connected")
		case errors.Is(err, domain.ErrReauthorizationRequired):
			writeError(w, http.StatusConflict, "reauthorization required")
		default:
			writeError(w, http.StatusInternalServerError, "failed to list calendars")
		}
		return
	}

	writeJSON(w, http.StatusOK, calendars)
}

// updateCalendarsRequest carries the new calendar selection
type updateCalendarsRequest struct {
	CalendarIDs []string `json:"calendar_ids"`
}

// handleUpdateCalendars godoc
// @Summary      Update calendar selection
// @Description  Replace the set of calendars selected for sync. Cached event windows are invalidated.
// @Tags         Calendar
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      updateCalendarsRequest  true  "Selected calendar IDs"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      409      {object}  ErrorResponse  "Calendar not connected"
// @Router       /calendar/calendars [put]
func (s *Server) handleUpdateCalendars(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateCalendarsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.connectService.UpdateCalendarIDs(r.Context(), authCtx.UserID, req.CalendarIDs); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotConnected):
			writeError(w, http.StatusConflict, "calendar not connected")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update calendar selection")
		}
		return
	}

	writeStatus(w, "ok")
}

// handleDisconnect godoc
// @Summary      Disconnect calendar
// @Description  Revoke tokens best-effort and remove the stored connection, synced events, and cached windows
// @Tags         Calendar
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /calendar/disconnect [post]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.connectService.Disconnect(r.Context(), authCtx.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to disconnect")
		return
	}

	writeStatus(w, "disconnected")
}

// Sync and event endpoints

// syncRequest bounds a manual sync trigger
type syncRequest struct {
	TimeMin *time.Time `json:"time_min,omitempty"`
	TimeMax *time.Time `json:"time_max,omitempty"`
	Force   bool       `json:"force,omitempty"`
}

// handleSync godoc
// @Summary      Sync calendar events
// @Description  Pull events from all selected calendars into the local store. A failed calendar does not abort the batch; its ID is reported in failed_calendars.
// @Tags         Calendar
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      syncRequest  false  "Optional sync window"
// @Success      200      {object}  domain.SyncResult
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      409      {object}  ErrorResponse  "Sync already running, not connected, or reauthorization required"
// @Router       /calendar/sync [post]
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req syncRequest
	if err := readJSON(r, &req); err != nil && r.ContentLength > 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := domain.SyncOptions{Force: req.Force}
	if req.TimeMin != nil {
		opts.TimeMin = *req.TimeMin
	}
	if req.TimeMax != nil {
		opts.TimeMax = *req.TimeMax
	}

	result, err := s.syncService.Sync(r.Context(), authCtx.UserID, opts)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			writeError(w, http.StatusConflict, "sync already in progress")
		case errors.Is(err, domain.ErrNotConnected):
			writeError(w, http.StatusConflict, "calendar not connected")
		case errors.Is(err, domain.ErrReauthorizationRequired):
			writeError(w, http.StatusConflict, "reauthorization required")
		default:
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListEvents godoc
// @Summary      List events
// @Description  List the user's synced events in a time window. Served from cache when a fresh copy exists unless force=true.
// @Tags         Calendar
// @Produce      json
// @Security     BearerAuth
// @Param        from   query     string  false  "Window start (RFC 3339). Defaults to 30 days ago."
// @Param        to     query     string  false  "Window end (RFC 3339). Defaults to 90 days ahead."
// @Param        force  query     bool    false  "Bypass the cache read"
// @Success      200    {array}   domain.CalendarEvent
// @Failure      400    {object}  ErrorResponse  "Malformed time bound"
// @Failure      401    {object}  ErrorResponse  "Unauthorized"
// @Router       /calendar/events [get]
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	query := driving.EventQuery{Force: q.Get("force") == "true"}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed from parameter")
			return
		}
		query.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed to parameter")
			return
		}
		query.To = t
	}

	events, err := s.syncService.Events(r.Context(), authCtx.UserID, query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// clearEventsResponse reports how many stored events were removed
type clearEventsResponse struct {
	Status  string `json:"status"`
	Deleted int    `json:"deleted"`
}

// handleClearEvents godoc
// @Summary      Clear synced events
// @Description  Remove every synced event and cached window for the authenticated user. The calendar connection itself is kept.
// @Tags         Calendar
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  clearEventsResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /calendar/events [delete]
func (s *Server) handleClearEvents(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deleted, err := s.syncService.ClearAll(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear events")
		return
	}

	writeJSON(w, http.StatusOK, clearEventsResponse{Status: "cleared", Deleted: deleted})
}

// Response plumbing

func readJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeStatus(w http.ResponseWriter, status string) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: status})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeCallbackPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("<!DOCTYPE html><html><body><p>" + message + "</p></body></html>"))
}
