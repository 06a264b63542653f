package driven

import (
	"context"

	"github.com/daybook-app/daybook-core/internal/core/domain"
)

// SessionStore persists login sessions. Lookups for unknown sessions
// return domain.ErrSessionNotFound; implementations are expected to
// drop sessions at their ExpiresAt one way or another.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUser is logout-everywhere.
	DeleteByUser(ctx context.Context, userID string) error

	// ListByUser returns the user's live sessions only.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
}
