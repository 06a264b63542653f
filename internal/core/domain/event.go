package domain

import (
	"encoding/json"
	"time"
)

// CalendarEvent is the normalized representation of a synced provider event.
// One exists per provider event id per owner; sync upserts keyed by that id.
type CalendarEvent struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ProviderEventID string          `json:"provider_event_id"`
	CalendarID      string          `json:"calendar_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Location        string          `json:"location,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	AllDay          bool            `json:"all_day"`
	Color           string          `json:"color"`
	Etag            string          `json:"etag"`
	LastSyncedAt    time.Time       `json:"last_synced_at"`
	RawPayload      json.RawMessage `json:"-"`
}

// Validate checks the event invariants before persistence.
func (e *CalendarEvent) Validate() error {
	if e.UserID == "" || e.ProviderEventID == "" || e.Title == "" {
		return ErrInvalidInput
	}
	if e.EndTime.Before(e.StartTime) {
		return ErrInvalidInput
	}
	return nil
}

// eventPalette maps Google's eleven event color ids to display hex values.
var eventPalette = map[string]string{
	"1":  "#7986cb", // lavender
	"2":  "#33b679", // sage
	"3":  "#8e24aa", // grape
	"4":  "#e67c73", // flamingo
	"5":  "#f6bf26", // banana
	"6":  "#f4511e", // tangerine
	"7":  "#039be5", // peacock
	"8":  "#616161", // graphite
	"9":  "#3f51b5", // blueberry
	"10": "#0b8043", // basil
	"11": "#d50000", // tomato
}

// derivedColors is the fallback palette, indexed by title hash. Order is
// fixed so the same title always resolves to the same color.
var derivedColors = []string{
	"#7986cb", "#33b679", "#8e24aa", "#e67c73", "#f6bf26",
	"#f4511e", "#039be5", "#616161", "#3f51b5", "#0b8043", "#d50000",
}

// EventColor resolves a display color for an event. An explicit provider
// color id maps through the fixed palette; otherwise a deterministic color
// is derived from the first two characters of the title.
func EventColor(colorID, title string) string {
	if c, ok := eventPalette[colorID]; ok {
		return c
	}
	sum, n := 0, 0
	for _, r := range title {
		if n == 2 {
			break
		}
		sum += int(r)
		n++
	}
	return derivedColors[sum%len(derivedColors)]
}
