package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure ItemStore implements the interface.
var _ driven.ItemStore = (*ItemStore)(nil)

// ItemStore implements driven.ItemStore using PostgreSQL.
type ItemStore struct {
	db *sql.DB
}

// NewItemStore creates a new PostgreSQL-backed item store.
func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// Create stores a new item.
func (s *ItemStore) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (id, user_id, kind, title, body, url, completed,
		                   due_at, start_at, end_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.UserID,
		string(item.Kind),
		item.Title,
		item.Body,
		item.URL,
		item.Completed,
		NullTime(item.DueAt),
		NullTime(item.StartAt),
		NullTime(item.EndAt),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Get retrieves an item by ID.
func (s *ItemStore) Get(ctx context.Context, id string) (*domain.Item, error) {
	query := `
		SELECT id, user_id, kind, title, body, url, completed,
		       due_at, start_at, end_at, created_at, updated_at
		FROM items
		WHERE id = $1
	`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List retrieves a user's items, optionally filtered by kind.
func (s *ItemStore) List(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.Item, error) {
	query := `
		SELECT id, user_id, kind, title, body, url, completed,
		       due_at, start_at, end_at, created_at, updated_at
		FROM items
		WHERE user_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update replaces a stored item.
func (s *ItemStore) Update(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE items
		SET title = $2, body = $3, url = $4, completed = $5,
		    due_at = $6, start_at = $7, end_at = $8, updated_at = $9
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.Title,
		item.Body,
		item.URL,
		item.Completed,
		NullTime(item.DueAt),
		NullTime(item.StartAt),
		NullTime(item.EndAt),
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an item.
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var body, url sql.NullString
	var dueAt, startAt, endAt sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Kind,
		&item.Title,
		&body,
		&url,
		&item.Completed,
		&dueAt,
		&startAt,
		&endAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if body.Valid {
		item.Body = body.String
	}
	if url.Valid {
		item.URL = url.String
	}
	item.DueAt = TimePtr(dueAt)
	item.StartAt = TimePtr(startAt)
	item.EndAt = TimePtr(endAt)
	return &item, nil
}
