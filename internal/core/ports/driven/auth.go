package driven

import "github.com/daybook-app/daybook-core/internal/core/domain"

// Authenticator covers the cryptographic side of authentication:
// password hashing and access-token signing. Session persistence is
// SessionStore's job, not this one's.
type Authenticator interface {
	HashPassword(password string) (string, error)
	CheckPassword(password, hash string) bool

	IssueToken(claims *domain.Claims) (string, error)
	VerifyToken(token string) (*domain.Claims, error)
}
