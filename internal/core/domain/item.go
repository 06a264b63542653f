package domain

import "time"

// ItemKind distinguishes the planner item collections.
type ItemKind string

const (
	ItemKindTask     ItemKind = "task"
	ItemKindProject  ItemKind = "project"
	ItemKindEvent    ItemKind = "event"
	ItemKindNote     ItemKind = "note"
	ItemKindBookmark ItemKind = "bookmark"
)

// Valid reports whether the kind is one of the known collections.
func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindTask, ItemKindProject, ItemKindEvent, ItemKindNote, ItemKindBookmark:
		return true
	}
	return false
}

// Item is a user-owned planner record: task, project, event, note or
// bookmark. These are simple owned records; all operations are scoped by
// the owning user id.
type Item struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      ItemKind   `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	URL       string     `json:"url,omitempty"`
	Completed bool       `json:"completed,omitempty"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	StartAt   *time.Time `json:"start_at,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks required fields before persistence.
func (i *Item) Validate() error {
	if i.UserID == "" || i.Title == "" || !i.Kind.Valid() {
		return ErrInvalidInput
	}
	return nil
}
