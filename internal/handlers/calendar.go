package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/calendar"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/internal/telegram"
)

var (
	calDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	calTimeRegex = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// timedEventLength is the length of an event added with a start time
const timedEventLength = time.Hour

// ---------------------------------------------------------------------------
// EventAddHandler – /event <title> <date> [time]
// ---------------------------------------------------------------------------

// EventAddHandler handles the /event command to create a calendar event.
// It parses the date (YYYY-MM-DD) and optional time (HH:MM) from the end of
// the argument list; everything before is treated as the event title.
// Without a time the event is all-day.
type EventAddHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewEventAddHandler creates a new EventAddHandler.
func NewEventAddHandler(svc *service.Service, logger *logrus.Logger) *EventAddHandler {
	return &EventAddHandler{svc: svc, logger: logger}
}

// Handle processes the /event command.
func (h *EventAddHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	const usage = "Usage: /event <title> <YYYY-MM-DD> [HH:MM]"

	in, ok := parseEvent(req.Args)
	if !ok {
		return usage, nil
	}

	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}
	in.Assignees = []string{id.User}

	event, err := h.svc.CreateEvent(ctx, id, in)
	if err != nil {
		return userMessage(err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": req.ChatID,
		"family":  id.Family,
		"event":   event.ID,
	}).Info("Event added from Telegram")

	when := event.StartAt.Format("Mon, 02 Jan 2006")
	if !event.AllDay {
		when = event.StartAt.Format("Mon, 02 Jan 2006 15:04")
	}
	return fmt.Sprintf("📅 Event #%d: %s\n🕐 %s", event.ID, event.Title, when), nil
}

func parseEvent(args []string) (service.EventInput, bool) {
	var in service.EventInput
	if len(args) < 2 {
		return in, false
	}

	var clock time.Duration
	timed := calTimeRegex.MatchString(args[len(args)-1])
	if timed {
		t, err := time.Parse("15:04", args[len(args)-1])
		if err != nil {
			return in, false
		}
		clock = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
		args = args[:len(args)-1]
		if len(args) < 2 {
			return in, false
		}
	}

	last := args[len(args)-1]
	if !calDateRegex.MatchString(last) {
		return in, false
	}
	date, err := time.Parse("2006-01-02", last)
	if err != nil {
		return in, false
	}

	in.Title = strings.Join(args[:len(args)-1], " ")
	in.Range = calendar.Range{StartDate: date, EndDate: date, AllDay: !timed}
	if timed {
		in.Range.StartTime = clock
		in.Range.EndTime = clock + timedEventLength
		if in.Range.EndTime >= 24*time.Hour {
			in.Range.EndDate = date.AddDate(0, 0, 1)
			in.Range.EndTime -= 24 * time.Hour
		}
	}
	return in, true
}

// ---------------------------------------------------------------------------
// EventsHandler – /events
// ---------------------------------------------------------------------------

// EventsHandler lists this week's events
type EventsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(svc *service.Service, logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{svc: svc, logger: logger}
}

// Handle processes the /events command.
func (h *EventsHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}

	view, err := h.svc.CalendarView(ctx, id, calendar.ViewWeek, time.Time{}, "")
	if err != nil {
		return "", err
	}
	if len(view.Entries) == 0 {
		return "📅 Nothing on the calendar this week.", nil
	}

	var sb strings.Builder
	sb.WriteString("📅 This week:\n\n")
	for _, e := range view.Entries {
		if e.AllDay {
			fmt.Fprintf(&sb, "#%d %s: %s", e.ID, e.Start.Format("Mon 02 Jan"), e.Title)
		} else {
			fmt.Fprintf(&sb, "#%d %s: %s", e.ID, e.Start.Format("Mon 02 Jan 15:04"), e.Title)
		}
		if e.Assignees != "" {
			fmt.Fprintf(&sb, " 👥 %s", e.Assignees)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
