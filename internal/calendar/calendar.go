// Package calendar computes visible date windows and turns stored event rows
// into display entries. Everything here is pure and works on UTC dates.
package calendar

import (
	"errors"
	"strings"
	"time"

	"github.com/Kerhoff/hive/internal/models"
)

// ViewMode selects how much of the calendar is shown
type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewWeek  ViewMode = "week"
	ViewDay   ViewMode = "day"
	ViewList  ViewMode = "list"
)

// ParseViewMode falls back to the month grid
func ParseViewMode(s string) ViewMode {
	switch v := ViewMode(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewWeek, ViewDay, ViewList:
		return v
	}
	return ViewMonth
}

// ErrEndBeforeStart is returned when an event would end before it starts
var ErrEndBeforeStart = errors.New("end must be the same as or after start")

// Window is an inclusive range of UTC dates
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the UTC date of t lies in the window
func (w Window) Contains(t time.Time) bool {
	d := models.DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days lists every date of the window
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// WindowFor computes the window of view around ref. Weeks run Monday to
// Sunday.
func WindowFor(view ViewMode, ref time.Time) Window {
	ref = models.DateOf(ref)
	switch view {
	case ViewWeek:
		offset := (int(ref.Weekday()) + 6) % 7
		start := ref.AddDate(0, 0, -offset)
		return Window{Start: start, End: start.AddDate(0, 0, 6)}
	case ViewDay:
		return Window{Start: ref, End: ref}
	default:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(0, 1, -1)}
	}
}

// Shift moves ref by step views. Month views land on the first of the
// target month so short months never overflow.
func Shift(view ViewMode, ref time.Time, step int) time.Time {
	ref = models.DateOf(ref)
	switch view {
	case ViewWeek:
		return ref.AddDate(0, 0, 7*step)
	case ViewDay:
		return ref.AddDate(0, 0, step)
	default:
		return time.Date(ref.Year(), ref.Month()+time.Month(step), 1, 0, 0, 0, 0, time.UTC)
	}
}

// InWindow reports whether the event starts inside w and, when assignee is
// non-empty, whether its assignees contain it ignoring case.
func InWindow(e *models.Event, w Window, assignee string) bool {
	if !w.Contains(e.StartAt) {
		return false
	}
	if assignee = strings.TrimSpace(assignee); assignee == "" {
		return true
	}
	joined := strings.ToLower(strings.Join(e.Assignees, ","))
	return strings.Contains(joined, strings.ToLower(assignee))
}
