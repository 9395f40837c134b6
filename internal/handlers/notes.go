package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/internal/telegram"
)

// notesShown caps the /notes reply
const notesShown = 10

// NoteHandler handles /note <text>
type NoteHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewNoteHandler(svc *service.Service, logger *logrus.Logger) *NoteHandler {
	return &NoteHandler{svc: svc, logger: logger}
}

func (h *NoteHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	if len(req.Args) == 0 {
		return "Usage: /note <text>", nil
	}

	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}

	note, err := h.svc.CreateNote(ctx, id, service.NoteInput{Type: models.NoteText, Content: req.Text()})
	if err != nil {
		return userMessage(err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": req.ChatID,
		"family":  id.Family,
		"note":    note.ID,
	}).Info("Note pinned from Telegram")

	return fmt.Sprintf("📌 Note #%d pinned for %s", note.ID, id.Family), nil
}

// NotesHandler handles /notes
type NotesHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewNotesHandler(svc *service.Service, logger *logrus.Logger) *NotesHandler {
	return &NotesHandler{svc: svc, logger: logger}
}

func (h *NotesHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}

	page, err := h.svc.ListNotes(ctx, id, service.NoteQuery{Page: 1})
	if err != nil {
		return "", err
	}
	if len(page.Notes) == 0 {
		return "📌 The corkboard is empty. Pin something with /note", nil
	}

	var sb strings.Builder
	sb.WriteString("📌 Corkboard:\n\n")
	for i, n := range page.Notes {
		if i == notesShown {
			fmt.Fprintf(&sb, "… and %d more\n", page.Total-notesShown)
			break
		}
		formatNote(&sb, n)
	}
	return sb.String(), nil
}
