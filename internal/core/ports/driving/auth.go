package driving

import (
	"context"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// AuthService is the login/session surface of the API.
type AuthService interface {
	// Authenticate checks credentials and opens a session.
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken resolves a bearer token into an auth context.
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// RefreshToken trades a refresh token for a fresh session.
	RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)

	// Logout revokes the session behind the token.
	Logout(ctx context.Context, token string) error

	// LogoutAll revokes every session the user has.
	LogoutAll(ctx context.Context, userID string) error

	// ChangePassword is the self-service password change; it revokes
	// all of the user's sessions on success.
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}
