package mocks

import (
	"encoding/base64"
	"encoding/json"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

var _ driven.Authenticator = (*MockAuthenticator)(nil)

// MockAuthenticator stands in for the real bcrypt/JWT implementation in
// service tests: passwords compare as plain text and tokens are just
// base64 JSON. Obviously not for production use.
type MockAuthenticator struct{}

func NewMockAuthenticator() *MockAuthenticator {
	return &MockAuthenticator{}
}

func (m *MockAuthenticator) HashPassword(password string) (string, error) {
	return password, nil
}

func (m *MockAuthenticator) CheckPassword(password, hash string) bool {
	return password == hash
}

func (m *MockAuthenticator) IssueToken(claims *domain.Claims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (m *MockAuthenticator) VerifyToken(token string) (*domain.Claims, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	var claims domain.Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}
