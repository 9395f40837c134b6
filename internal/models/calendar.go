package models

import "time"

// Event represents a family calendar event. For all-day events EndAt is the
// exclusive midnight after the last included day.
type Event struct {
	ID        int64      `json:"id" db:"id"`
	Family    string     `json:"family" db:"family"`
	Title     string     `json:"title" db:"title"`
	StartAt   time.Time  `json:"start_at" db:"start_at"`
	EndAt     *time.Time `json:"end_at,omitempty" db:"end_at"`
	AllDay    bool       `json:"all_day" db:"all_day"`
	Assignees []string   `json:"assignees,omitempty" db:"assignees"`
}

// StartDate is the UTC calendar date the event starts on
func (e *Event) StartDate() time.Time {
	return DateOf(e.StartAt)
}

// RSVPStatus is an attendance answer
type RSVPStatus string

const (
	RSVPGoing RSVPStatus = "going"
	RSVPMaybe RSVPStatus = "maybe"
	RSVPCant  RSVPStatus = "cant"
)

// Valid reports whether s is a known status
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPGoing, RSVPMaybe, RSVPCant:
		return true
	}
	return false
}

// RSVP is one user's answer for one event
type RSVP struct {
	EventID     int64      `json:"event_id" db:"event_id"`
	Username    string     `json:"username" db:"username"`
	Status      RSVPStatus `json:"status" db:"status"`
	RespondedAt time.Time  `json:"responded_at" db:"responded_at"`
}

// Attendee is an RSVP joined with the responder's profile
type Attendee struct {
	Username  string     `json:"username"`
	Status    RSVPStatus `json:"status"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
}

// DisplayName prefers the profile name over the username
func (a *Attendee) DisplayName() string {
	return displayName(a.Username, a.FirstName, a.LastName)
}
