package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

const (
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
	defaultUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// scopes requested on consent. Read-only calendar access plus the email
// of the connected account for display.
var scopes = []string{
	"https://www.googleapis.com/auth/calendar.readonly",
	"openid",
	"email",
}

// Config holds the OAuth app credentials for the Google provider.
// The client secret never leaves the server.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Endpoint overrides for tests. Empty means Google's endpoints.
	TokenURL    string
	RevokeURL   string
	UserinfoURL string
	CalendarURL string
}

// BuildAuthURL constructs the Google consent page URL. Offline access and
// a forced consent prompt make Google return a refresh token.
func (p *Provider) BuildAuthURL(state string) string {
	cfg := oauth2.Config{
		ClientID:    p.cfg.ClientID,
		RedirectURL: p.cfg.RedirectURI,
		Scopes:      scopes,
		Endpoint:    googleoauth.Endpoint,
	}
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode exchanges an authorization code for tokens.
func (p *Provider) ExchangeCode(ctx context.Context, code, redirectURI string) (*driven.ProviderToken, error) {
	params := url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}

	token, err := p.tokenRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrExchangeFailed, err)
	}
	return token, nil
}

// Refresh obtains a new access token from a refresh token.
// A revoked or expired grant maps to domain.ErrReauthorizationRequired;
// everything else is a transient domain.ErrRefreshFailed.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*driven.ProviderToken, error) {
	params := url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	token, err := p.tokenRequest(ctx, params)
	if err != nil {
		var oauthErr *oauthError
		if errors.As(err, &oauthErr) && oauthErr.Code == "invalid_grant" {
			// The grant is permanently gone; only a new consent helps.
			return nil, domain.ErrReauthorizationRequired
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRefreshFailed, err)
	}
	return token, nil
}

// Revoke invalidates a token at Google. Best effort.
func (p *Provider) Revoke(ctx context.Context, token string) error {
	params := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(ctx, "POST",
		p.revokeURL(), strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("revoke failed: %s", string(body))
	}
	return nil
}

// UserEmail resolves the email of the account the token belongs to.
func (p *Provider) UserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.userinfoURL(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo failed: %s", string(body))
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return info.Email, nil
}

// oauthError is a structured error response from the token endpoint.
type oauthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *oauthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// tokenRequest POSTs to the token endpoint and decodes the response.
// The endpoint is called directly rather than through a TokenSource so
// the error code can be inspected.
func (p *Provider) tokenRequest(ctx context.Context, params url.Values) (*driven.ProviderToken, error) {
	req, err := http.NewRequestWithContext(ctx, "POST",
		p.tokenURL(), strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oerr oauthError
		if json.Unmarshal(body, &oerr) == nil && oerr.Code != "" {
			return nil, &oerr
		}
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access token")
	}

	return &driven.ProviderToken{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    tokenResp.ExpiresIn,
		Scope:        tokenResp.Scope,
	}, nil
}

func (p *Provider) tokenURL() string {
	if p.cfg.TokenURL != "" {
		return p.cfg.TokenURL
	}
	return defaultTokenURL
}

func (p *Provider) revokeURL() string {
	if p.cfg.RevokeURL != "" {
		return p.cfg.RevokeURL
	}
	return defaultRevokeURL
}

func (p *Provider) userinfoURL() string {
	if p.cfg.UserinfoURL != "" {
		return p.cfg.UserinfoURL
	}
	return defaultUserinfoURL
}
