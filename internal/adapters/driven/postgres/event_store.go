package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
)

// Ensure CalendarEventStore implements the interface.
var _ driven.CalendarEventStore = (*CalendarEventStore)(nil)

// CalendarEventStore implements driven.CalendarEventStore using PostgreSQL.
// Rows are keyed by (user_id, provider_event_id) so repeated syncs update
// in place.
type CalendarEventStore struct {
	db *sql.DB
}

// NewCalendarEventStore creates a new PostgreSQL-backed event store.
func NewCalendarEventStore(db *sql.DB) *CalendarEventStore {
	return &CalendarEventStore{db: db}
}

// GetByProviderID retrieves the stored copy of a provider event.
// Returns nil, nil if the event has not been synced yet.
func (s *CalendarEventStore) GetByProviderID(ctx context.Context, userID, providerEventID string) (*domain.CalendarEvent, error) {
	query := `
		SELECT id, user_id, provider_event_id, calendar_id, title, description,
		       location, start_time, end_time, all_day, color, etag,
		       last_synced_at, raw_payload
		FROM calendar_events
		WHERE user_id = $1 AND provider_event_id = $2
	`

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, userID, providerEventID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return event, nil
}

// Upsert inserts the event or updates the row with the same
// (user_id, provider_event_id) key.
func (s *CalendarEventStore) Upsert(ctx context.Context, event *domain.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	query := `
		INSERT INTO calendar_events (
			id, user_id, provider_event_id, calendar_id, title, description,
			location, start_time, end_time, all_day, color, etag,
			last_synced_at, raw_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, provider_event_id) DO UPDATE SET
			calendar_id = EXCLUDED.calendar_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			all_day = EXCLUDED.all_day,
			color = EXCLUDED.color,
			etag = EXCLUDED.etag,
			last_synced_at = EXCLUDED.last_synced_at,
			raw_payload = EXCLUDED.raw_payload
	`

	var rawPayload any
	if len(event.RawPayload) > 0 {
		rawPayload = []byte(event.RawPayload)
	}

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.ProviderEventID,
		event.CalendarID,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.AllDay,
		event.Color,
		event.Etag,
		event.LastSyncedAt,
		rawPayload,
	)
	if err != nil {
		return fmt.Errorf("save calendar event: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's events overlapping the window, ordered by
// start time.
func (s *CalendarEventStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*domain.CalendarEvent, error) {
	query := `
		SELECT id, user_id, provider_event_id, calendar_id, title, description,
		       location, start_time, end_time, all_day, color, etag,
		       last_synced_at, raw_payload
		FROM calendar_events
		WHERE user_id = $1 AND end_time >= $2 AND start_time <= $3
		ORDER BY start_time
	`

	rows, err := s.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	var events []*domain.CalendarEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteByProviderID removes the stored copy of a provider event.
func (s *CalendarEventStore) DeleteByProviderID(ctx context.Context, userID, providerEventID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE user_id = $1 AND provider_event_id = $2`,
		userID, providerEventID,
	)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

// DeleteByUser removes all synced events for a user.
func (s *CalendarEventStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete calendar events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.CalendarEvent, error) {
	var event domain.CalendarEvent
	var description, location, etag sql.NullString
	var rawPayload []byte

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.ProviderEventID,
		&event.CalendarID,
		&event.Title,
		&description,
		&location,
		&event.StartTime,
		&event.EndTime,
		&event.AllDay,
		&event.Color,
		&etag,
		&event.LastSyncedAt,
		&rawPayload,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		event.Description = description.String
	}
	if location.Valid {
		event.Location = location.String
	}
	if etag.Valid {
		event.Etag = etag.String
	}
	event.RawPayload = rawPayload
	return &event, nil
}
