package models

import (
	"strings"
	"time"
)

// NoteType is the kind of a corkboard note
type NoteType string

const (
	NoteText     NoteType = "text"
	NotePhoto    NoteType = "photo"
	NoteLink     NoteType = "link"
	NoteReminder NoteType = "reminder"
)

// Valid reports whether t is a known note type
func (t NoteType) Valid() bool {
	switch t {
	case NoteText, NotePhoto, NoteLink, NoteReminder:
		return true
	}
	return false
}

// Note represents a sticky note on the family corkboard
type Note struct {
	ID            int64      `json:"id" db:"id"`
	Family        string     `json:"family" db:"family"`
	Content       string     `json:"content" db:"content"`
	Color         string     `json:"color" db:"color"`
	X             float64    `json:"x" db:"x"`
	Y             float64    `json:"y" db:"y"`
	Z             int64      `json:"z" db:"z"`
	Type          NoteType   `json:"type" db:"type"`
	Assignee      string     `json:"assignee,omitempty" db:"assignee"`
	DueAt         *time.Time `json:"due_at,omitempty" db:"due_at"`
	Tags          []string   `json:"tags,omitempty" db:"tags"`
	OrderIndex    int64      `json:"order_index" db:"order_index"`
	LinkedEventID *int64     `json:"linked_event_id,omitempty" db:"linked_event_id"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted returns true once the note has been soft-deleted
func (n *Note) IsDeleted() bool {
	return n.DeletedAt != nil
}

// IsOverdue returns true if the due instant is strictly before now
func (n *Note) IsOverdue(now time.Time) bool {
	return n.DueAt != nil && n.DueAt.Before(now)
}

// IsDueToday compares UTC calendar dates
func (n *Note) IsDueToday(now time.Time) bool {
	return n.DueAt != nil && DateOf(*n.DueAt).Equal(DateOf(now))
}

// DueFilter narrows a note listing by due date
type DueFilter string

const (
	DueAll     DueFilter = "all"
	DueToday   DueFilter = "today"
	DueOverdue DueFilter = "overdue"
)

// Matches applies the due classifier to n
func (f DueFilter) Matches(n *Note, now time.Time) bool {
	switch f {
	case DueToday:
		return n.IsDueToday(now)
	case DueOverdue:
		return n.IsOverdue(now)
	}
	return true
}

// ParseDueFilter falls back to DueAll for anything unrecognised
func ParseDueFilter(s string) DueFilter {
	switch f := DueFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case DueToday, DueOverdue:
		return f
	}
	return DueAll
}

// Comment represents a comment on a note
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	NoteID    int64     `json:"note_id" db:"note_id"`
	Author    string    `json:"author" db:"author"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ReactionEmojis is the fixed set of reactions a note accepts.
var ReactionEmojis = []string{"👍", "❤️", "😂", "🤔", "✅"}

// IsReactionEmoji reports whether e is in ReactionEmojis
func IsReactionEmoji(e string) bool {
	for _, allowed := range ReactionEmojis {
		if e == allowed {
			return true
		}
	}
	return false
}

// ReactionCount aggregates one emoji's reactions on a note
type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
	Mine  bool   `json:"mine"`
}
