package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/internal/telegram"
)

const remindUsage = "Usage: /remind <YYYY-MM-DD> [HH:MM] <text>"

// RemindHandler handles /remind, pinning a reminder note with a due time
type RemindHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewRemindHandler(svc *service.Service, logger *logrus.Logger) *RemindHandler {
	return &RemindHandler{svc: svc, logger: logger}
}

func (h *RemindHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	if len(req.Args) < 2 {
		return remindUsage, nil
	}

	due, textStart, err := parseDue(req.Args)
	if err != nil {
		return "❌ Could not parse the date. " + remindUsage, nil
	}
	text := strings.Join(req.Args[textStart:], " ")
	if text == "" {
		return "❌ Please provide reminder text", nil
	}

	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}

	note, err := h.svc.CreateNote(ctx, id, service.NoteInput{
		Type:    models.NoteReminder,
		Content: text,
		DueAt:   &due,
	})
	if err != nil {
		return userMessage(err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": req.ChatID,
		"family":  id.Family,
		"note":    note.ID,
	}).Info("Reminder pinned from Telegram")

	return fmt.Sprintf("⏰ Reminder #%d due %s\n📝 %s", note.ID, due.Format(timestampLayout), text), nil
}

// parseDue reads a UTC date and an optional time from the front of args and
// returns where the remaining text starts. A date alone means midnight.
func parseDue(args []string) (time.Time, int, error) {
	if !calDateRegex.MatchString(args[0]) {
		return time.Time{}, 0, fmt.Errorf("invalid date %q", args[0])
	}
	if len(args) > 1 && calTimeRegex.MatchString(args[1]) {
		t, err := time.Parse("2006-01-02 15:04", args[0]+" "+args[1])
		if err != nil {
			return time.Time{}, 0, err
		}
		return t, 2, nil
	}
	t, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return time.Time{}, 0, err
	}
	return t, 1, nil
}

// RemindersHandler handles /reminders: overdue notes, then today's
type RemindersHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewRemindersHandler(svc *service.Service, logger *logrus.Logger) *RemindersHandler {
	return &RemindersHandler{svc: svc, logger: logger}
}

func (h *RemindersHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}

	overdue, err := h.svc.ListNotes(ctx, id, service.NoteQuery{Due: models.DueOverdue, Page: 1})
	if err != nil {
		return "", err
	}
	today, err := h.svc.ListNotes(ctx, id, service.NoteQuery{Due: models.DueToday, Page: 1})
	if err != nil {
		return "", err
	}

	// Earlier today is both overdue and due today; list it once.
	seen := make(map[int64]bool, len(overdue.Notes))
	for _, n := range overdue.Notes {
		seen[n.ID] = true
	}
	var upcoming []*models.Note
	for _, n := range today.Notes {
		if !seen[n.ID] {
			upcoming = append(upcoming, n)
		}
	}

	if len(overdue.Notes) == 0 && len(upcoming) == 0 {
		return "⏰ Nothing due. Set a reminder with /remind", nil
	}

	var sb strings.Builder
	if len(overdue.Notes) > 0 {
		sb.WriteString("🔴 Overdue:\n")
		for _, n := range overdue.Notes {
			formatNote(&sb, n)
		}
	}
	if len(upcoming) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("🟡 Due today:\n")
		for _, n := range upcoming {
			formatNote(&sb, n)
		}
	}
	return sb.String(), nil
}
