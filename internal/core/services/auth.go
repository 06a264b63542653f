package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

var _ driving.AuthService = (*authService)(nil)

const defaultTokenTTL = 24 * time.Hour

// AuthServiceConfig wires the authentication service.
type AuthServiceConfig struct {
	Users    driven.UserStore
	Sessions driven.SessionStore
	Auth     driven.Authenticator
	TokenTTL time.Duration
	Logger   *slog.Logger
}

type authService struct {
	users    driven.UserStore
	sessions driven.SessionStore
	auth     driven.Authenticator
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewAuthService(cfg AuthServiceConfig) driving.AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &authService{
		users:    cfg.Users,
		sessions: cfg.Sessions,
		auth:     cfg.Auth,
		tokenTTL: cfg.TokenTTL,
		logger:   cfg.Logger,
	}
}

// Authenticate checks credentials and opens a new session. Lookup and
// password failures collapse into ErrInvalidCredentials so responses
// don't leak which emails exist.
func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrUnauthorized
	}
	if !s.auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return resp, nil
}

// ValidateToken resolves a bearer token to an auth context. The token
// must verify cryptographically and its session must still exist, so a
// logout kills outstanding tokens immediately.
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.auth.VerifyToken(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	return &domain.AuthContext{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, nil
}

// RefreshToken rotates a session: the refresh token is single-use and
// the old session is dropped before the replacement is returned.
func (s *authService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if req.RefreshToken == "" {
		return nil, domain.ErrTokenInvalid
	}

	session, err := s.sessions.GetByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if session.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	user, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("failed to drop rotated session", "session_id", session.ID, "error", err)
	}

	return s.openSession(ctx, user)
}

// Logout drops the session behind the given token. An unparseable
// token means there is nothing to revoke, which is not an error.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.auth.VerifyToken(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, claims.SessionID)
}

// LogoutAll revokes every session the user has, on every device.
func (s *authService) LogoutAll(ctx context.Context, userID string) error {
	return s.sessions.DeleteByUser(ctx, userID)
}

// ChangePassword verifies the current password, stores the new hash and
// revokes all sessions so every client has to log in again.
func (s *authService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return domain.ErrInvalidInput
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !s.auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()

	if err := s.users.Save(ctx, user); err != nil {
		return err
	}

	return s.sessions.DeleteByUser(ctx, userID)
}

// openSession mints a token, persists the session and builds the login
// response. Shared by login and refresh.
func (s *authService) openSession(ctx context.Context, user *domain.User) (*domain.LoginResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	sessionID := randomToken(16)

	token, err := s.auth.IssueToken(&domain.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: sessionID,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:           sessionID,
		UserID:       user.ID,
		Token:        token,
		RefreshToken: randomToken(32),
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		Token:        token,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         user.ToSummary(),
	}, nil
}

// randomToken returns n bytes of crypto randomness, base64url encoded.
func randomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
