package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure CalendarAccountStore implements the interface.
var _ driven.CalendarAccountStore = (*CalendarAccountStore)(nil)

// CalendarAccountStore implements driven.CalendarAccountStore using
// PostgreSQL. Token secrets are stored as an encrypted blob and decrypted
// on read.
type CalendarAccountStore struct {
	db     *sql.DB
	cipher *TokenCipher
}

// NewCalendarAccountStore creates a new PostgreSQL-backed account store.
func NewCalendarAccountStore(db *sql.DB, cipher *TokenCipher) *CalendarAccountStore {
	return &CalendarAccountStore{
		db:     db,
		cipher: cipher,
	}
}

// Get retrieves the connection record for a user with decrypted secrets.
// Returns nil, nil if the user has never connected a calendar.
func (s *CalendarAccountStore) Get(ctx context.Context, userID string) (*domain.CalendarAccount, error) {
	query := `
		SELECT user_id, authorized, secret_blob, token_expiry, calendar_ids,
		       account_email, last_sync_at, created_at, updated_at
		FROM calendar_accounts
		WHERE user_id = $1
	`

	var account domain.CalendarAccount
	var secretBlob []byte
	var tokenExpiry, lastSyncAt sql.NullTime
	var accountEmail sql.NullString
	var calendarIDs []string

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&account.UserID,
		&account.Authorized,
		&secretBlob,
		&tokenExpiry,
		pq.Array(&calendarIDs),
		&accountEmail,
		&lastSyncAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar account: %w", err)
	}

	account.TokenExpiry = TimePtr(tokenExpiry)
	account.LastSyncAt = TimePtr(lastSyncAt)
	account.CalendarIDs = calendarIDs
	if accountEmail.Valid {
		account.AccountEmail = accountEmail.String
	}

	if len(secretBlob) > 0 {
		var secrets domain.AccountSecrets
		if err := s.cipher.Decrypt(secretBlob, &secrets); err != nil {
			return nil, fmt.Errorf("decrypt account secrets: %w", err)
		}
		account.Secrets = &secrets
	}

	return &account, nil
}

// ListAuthorized retrieves every account with a live authorization.
// Secrets are not decrypted; background syncs re-read per user.
func (s *CalendarAccountStore) ListAuthorized(ctx context.Context) ([]*domain.CalendarAccount, error) {
	query := `
		SELECT user_id, authorized, token_expiry, calendar_ids,
		       account_email, last_sync_at, created_at, updated_at
		FROM calendar_accounts
		WHERE authorized = TRUE
		ORDER BY user_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list authorized accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.CalendarAccount
	for rows.Next() {
		var account domain.CalendarAccount
		var tokenExpiry, lastSyncAt sql.NullTime
		var accountEmail sql.NullString
		var calendarIDs []string

		err := rows.Scan(
			&account.UserID,
			&account.Authorized,
			&tokenExpiry,
			pq.Array(&calendarIDs),
			&accountEmail,
			&lastSyncAt,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan calendar account: %w", err)
		}

		account.TokenExpiry = TimePtr(tokenExpiry)
		account.LastSyncAt = TimePtr(lastSyncAt)
		account.CalendarIDs = calendarIDs
		if accountEmail.Valid {
			account.AccountEmail = accountEmail.String
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Upsert creates or replaces the connection record for a user.
func (s *CalendarAccountStore) Upsert(ctx context.Context, account *domain.CalendarAccount) error {
	var secretBlob []byte
	if account.Secrets != nil {
		var err error
		secretBlob, err = s.cipher.Encrypt(account.Secrets)
		if err != nil {
			return fmt.Errorf("encrypt account secrets: %w", err)
		}
	}

	query := `
		INSERT INTO calendar_accounts (
			user_id, authorized, secret_blob, token_expiry, calendar_ids,
			account_email, last_sync_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			authorized = EXCLUDED.authorized,
			secret_blob = EXCLUDED.secret_blob,
			token_expiry = EXCLUDED.token_expiry,
			calendar_ids = EXCLUDED.calendar_ids,
			account_email = EXCLUDED.account_email,
			last_sync_at = EXCLUDED.last_sync_at,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	calendarIDs := account.CalendarIDs
	if calendarIDs == nil {
		calendarIDs = []string{}
	}

	_, err := s.db.ExecContext(ctx, query,
		account.UserID,
		account.Authorized,
		secretBlob,
		NullTime(account.TokenExpiry),
		pq.Array(calendarIDs),
		account.AccountEmail,
		NullTime(account.LastSyncAt),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save calendar account: %w", err)
	}
	return nil
}

// Delete removes the connection record for a user.
func (s *CalendarAccountStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM calendar_accounts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete calendar account: %w", err)
	}
	return nil
}
