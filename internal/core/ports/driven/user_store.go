package driven

import (
	"context"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// UserStore is durable user persistence. Save is an upsert; Get and
// GetByEmail return domain.ErrNotFound for unknown users.
type UserStore interface {
	Save(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error

	// UpdateLastLogin stamps the user's last successful login.
	UpdateLastLogin(ctx context.Context, id string) error
}
