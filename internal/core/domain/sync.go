package domain

import "time"

// SyncStats holds per-event counters for a sync run.
type SyncStats struct {
	EventsAdded   int `json:"events_added"`
	EventsUpdated int `json:"events_updated"`
	EventsSkipped int `json:"events_skipped"`
	EventsDeleted int `json:"events_deleted"`
	Errors        int `json:"errors"`
}

// SyncOptions bounds a sync invocation.
type SyncOptions struct {
	// TimeMin/TimeMax bound the event window. Zero values get defaults
	// from the sync service.
	TimeMin time.Time `json:"time_min,omitempty"`
	TimeMax time.Time `json:"time_max,omitempty"`

	// Force bypasses the event cache read (the fresh result is still
	// written back).
	Force bool `json:"force,omitempty"`
}

// SyncResult represents the outcome of a calendar sync.
// Success is false only when every calendar in the batch failed;
// partial failures keep Success true and list the failed calendar ids.
type SyncResult struct {
	UserID             string    `json:"user_id"`
	Success            bool      `json:"success"`
	EventsProcessed    int       `json:"events_processed"`
	CalendarsProcessed int       `json:"calendars_processed"`
	FailedCalendars    []string  `json:"failed_calendars,omitempty"`
	Stats              SyncStats `json:"stats"`
	Message            string    `json:"message,omitempty"`
	Duration           float64   `json:"duration_seconds"`
}
