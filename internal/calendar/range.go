package calendar

import (
	"strings"
	"time"

	"github.com/Kerhoff/hive/internal/models"
)

const (
	DefaultStartTime = 9 * time.Hour
	DefaultEndTime   = 10 * time.Hour
)

// Range is an event's span as a person edits it: inclusive dates and, for
// timed events, clock times as offsets from midnight.
type Range struct {
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	AllDay    bool          `json:"all_day"`
	StartTime time.Duration `json:"start_time"`
	EndTime   time.Duration `json:"end_time"`
}

// EncodeRange converts r to stored instants. All-day events end at the
// midnight after their last day.
func EncodeRange(r Range) (time.Time, time.Time, error) {
	startDate := models.DateOf(r.StartDate)
	endDate := models.DateOf(r.EndDate)
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, ErrEndBeforeStart
	}

	if r.AllDay {
		return startDate, endDate.AddDate(0, 0, 1), nil
	}

	start := startDate.Add(r.StartTime)
	end := endDate.Add(r.EndTime)
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrEndBeforeStart
	}
	return start, end, nil
}

// DecodeRange reverses EncodeRange for editing
func DecodeRange(e *models.Event) Range {
	startDate := models.DateOf(e.StartAt)
	r := Range{
		StartDate: startDate,
		EndDate:   startDate,
		AllDay:    e.AllDay,
	}

	if e.AllDay {
		if e.EndAt != nil {
			if last := models.DateOf(*e.EndAt).AddDate(0, 0, -1); !last.Before(startDate) {
				r.EndDate = last
			}
		}
		r.StartTime = DefaultStartTime
		r.EndTime = DefaultEndTime
		return r
	}

	r.StartTime = e.StartAt.UTC().Sub(startDate)
	r.EndTime = r.StartTime
	if e.EndAt != nil {
		r.EndDate = models.DateOf(*e.EndAt)
		r.EndTime = e.EndAt.UTC().Sub(r.EndDate)
	}
	return r
}

// Entry is an event shaped for display
type Entry struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	AllDay          bool       `json:"all_day"`
	Assignees       string     `json:"assignees"`
	BorderColor     string     `json:"border_color"`
	BackgroundColor string     `json:"background_color"`
	DisplayEndDate  time.Time  `json:"display_end_date"`
}

// Entries keeps the events inside w that match assignee and shapes them for
// display, preserving order.
func Entries(events []*models.Event, w Window, assignee string) []Entry {
	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		if !InWindow(e, w, assignee) {
			continue
		}
		assignees := strings.Join(e.Assignees, ",")
		color := ColorFor(assignees)
		entries = append(entries, Entry{
			ID:              e.ID,
			Title:           e.Title,
			Start:           e.StartAt,
			End:             e.EndAt,
			AllDay:          e.AllDay,
			Assignees:       assignees,
			BorderColor:     color,
			BackgroundColor: color + "80",
			DisplayEndDate:  DecodeRange(e).EndDate,
		})
	}
	return entries
}
