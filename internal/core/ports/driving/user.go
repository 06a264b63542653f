package driving

import (
	"context"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// CreateUserRequest is the admin user-creation payload.
type CreateUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
}

// UpdateUserRequest is a partial update; nil fields stay untouched.
type UpdateUserRequest struct {
	Name   *string      `json:"name,omitempty"`
	Role   *domain.Role `json:"role,omitempty"`
	Active *bool        `json:"active,omitempty"`
}

// SetupRequest creates the first admin on an empty instance.
type SetupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type SetupResponse struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message"`
}

// UserService is the account management surface. Everything except
// Setup sits behind the admin middleware.
type UserService interface {
	Setup(ctx context.Context, req SetupRequest) (*SetupResponse, error)
	Create(ctx context.Context, req CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, id string) error

	// SetPassword is the admin reset path; no current password needed.
	SetPassword(ctx context.Context, id string, password string) error
}
