package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in Redis with the TTL derived from the
// session's own expiry, so expired sessions vanish without a sweeper.
// Layout per session: a JSON blob keyed by ID, two pointer keys for
// token and refresh-token lookup, and a per-user set for logout-all.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(id string) string          { return "daybook:session:" + id }
func tokenKey(token string) string         { return "daybook:session:token:" + token }
func refreshKey(token string) string       { return "daybook:session:refresh:" + token }
func userSessionsKey(userID string) string { return "daybook:session:user:" + userID }

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessionKey(session.ID), blob, ttl)
	pipe.Set(ctx, tokenKey(session.Token), session.ID, ttl)
	if session.RefreshToken != "" {
		pipe.Set(ctx, refreshKey(session.RefreshToken), session.ID, ttl)
	}
	pipe.SAdd(ctx, userSessionsKey(session.UserID), session.ID)
	// The set outlives its members a little; stale IDs are pruned on read.
	pipe.Expire(ctx, userSessionsKey(session.UserID), 30*24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	blob, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(blob, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.getViaPointer(ctx, tokenKey(token))
}

func (s *SessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.getViaPointer(ctx, refreshKey(refreshToken))
}

func (s *SessionStore) getViaPointer(ctx context.Context, key string) (*domain.Session, error) {
	id, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session pointer: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a session and its lookup keys. Deleting a session that
// is already gone is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.purge(ctx, session)
}

func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	session, err := s.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.purge(ctx, session)
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	for _, id := range ids {
		// Expired members just get skipped.
		_ = s.Delete(ctx, id)
	}
	s.client.Del(ctx, userSessionsKey(userID))
	return nil
}

func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	var live []*domain.Session
	var stale []any
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			stale = append(stale, id)
		case err != nil:
			return nil, err
		case session.IsExpired():
			stale = append(stale, id)
		default:
			live = append(live, session)
		}
	}

	if len(stale) > 0 {
		s.client.SRem(ctx, userSessionsKey(userID), stale...)
	}
	return live, nil
}

func (s *SessionStore) purge(ctx context.Context, session *domain.Session) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(session.ID))
	pipe.Del(ctx, tokenKey(session.Token))
	if session.RefreshToken != "" {
		pipe.Del(ctx, refreshKey(session.RefreshToken))
	}
	pipe.SRem(ctx, userSessionsKey(session.UserID), session.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
