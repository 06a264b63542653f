package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

var _ driven.OAuthStateStore = (*OAuthStateStore)(nil)

// defaultStateTTL bounds how long a started connect flow stays claimable.
const defaultStateTTL = 10 * time.Minute

// OAuthStateStore holds pending OAuth connect flows. States are single
// use: the callback consumes them with DELETE ... RETURNING so two
// racing callbacks cannot both redeem the same state.
type OAuthStateStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewOAuthStateStore(db *sql.DB) *OAuthStateStore {
	return &OAuthStateStore{db: db, ttl: defaultStateTTL}
}

func NewOAuthStateStoreWithTTL(db *sql.DB, ttl time.Duration) *OAuthStateStore {
	return &OAuthStateStore{db: db, ttl: ttl}
}

func (s *OAuthStateStore) Save(ctx context.Context, state *driven.OAuthState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = now.Add(s.ttl)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_states (state, user_id, redirect_uri, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		state.State,
		state.UserID,
		state.RedirectURI,
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// GetAndDelete redeems a state. Returns (nil, nil) when the state is
// unknown or already expired; the caller treats that as a bad callback.
func (s *OAuthStateStore) GetAndDelete(ctx context.Context, state string) (*driven.OAuthState, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM oauth_states
		WHERE state = $1 AND expires_at > NOW()
		RETURNING state, user_id, redirect_uri, created_at, expires_at`, state)

	var out driven.OAuthState
	err := row.Scan(&out.State, &out.UserID, &out.RedirectURI, &out.CreatedAt, &out.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redeem oauth state: %w", err)
	}
	return &out, nil
}

// Cleanup drops expired states. Run periodically by the scheduler.
func (s *OAuthStateStore) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at < NOW()`); err != nil {
		return fmt.Errorf("cleanup oauth states: %w", err)
	}
	return nil
}
