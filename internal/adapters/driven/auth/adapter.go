package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

var _ driven.Authenticator = (*Authenticator)(nil)

// accessClaims is the JWT wire form of domain.Claims. Custom claims use
// short names to keep tokens compact; iat/exp ride in RegisteredClaims.
type accessClaims struct {
	UserID    string      `json:"uid"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	SessionID string      `json:"sid"`
	jwt.RegisteredClaims
}

// Authenticator signs HS256 access tokens and hashes passwords with bcrypt.
type Authenticator struct {
	secret []byte
	cost   int
}

func New(secret string) *Authenticator {
	return NewWithCost(secret, bcrypt.DefaultCost)
}

// NewWithCost exists for tests, which use bcrypt.MinCost to stay fast.
func NewWithCost(secret string, cost int) *Authenticator {
	return &Authenticator{secret: []byte(secret), cost: cost}
}

func (a *Authenticator) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (a *Authenticator) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs the claims into a compact HS256 JWT.
func (a *Authenticator) IssueToken(claims *domain.Claims) (string, error) {
	wire := accessClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(a.secret)
}

// VerifyToken checks the signature and returns the embedded claims.
// Expiry is enforced by jwt.ParseWithClaims; callers still re-check the
// session row so revocation works before the token ages out.
func (a *Authenticator) VerifyToken(token string) (*domain.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	wire, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &domain.Claims{
		UserID:    wire.UserID,
		Email:     wire.Email,
		Role:      wire.Role,
		SessionID: wire.SessionID,
		IssuedAt:  wire.IssuedAt.Unix(),
		ExpiresAt: wire.ExpiresAt.Unix(),
	}, nil
}
