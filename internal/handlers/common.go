// Package handlers implements the Telegram bot commands on top of the
// service. Each handler returns the reply text; expected failures such as
// bad input become replies, everything else is returned as an error.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Kerhoff/hive/internal/identity"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/internal/telegram"
)

const timestampLayout = "Mon, 02 Jan 15:04"

// identityFor acts as the sender inside the family the chat is bound to
func identityFor(ctx context.Context, svc *service.Service, req telegram.Request) (models.Identity, error) {
	family, err := svc.TelegramFamily(ctx, req.ChatID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("resolve chat family: %w", err)
	}
	return identity.Normalize(models.Identity{User: req.User, Family: family}), nil
}

// userMessage turns validation and lookup failures into a reply
func userMessage(err error) (string, error) {
	switch {
	case service.IsValidation(err):
		return "❌ " + err.Error(), nil
	case errors.Is(err, service.ErrNotFound):
		return "❌ Not found", nil
	}
	return "", err
}

func parseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	return id, err == nil && id > 0
}

func formatNote(sb *strings.Builder, n *models.Note) {
	content := firstLine(n.Content)
	if n.Type == models.NotePhoto {
		content = "🖼 photo"
	}
	fmt.Fprintf(sb, "#%d: %s", n.ID, content)
	if n.Assignee != "" {
		fmt.Fprintf(sb, " 👤 %s", n.Assignee)
	}
	if n.DueAt != nil {
		fmt.Fprintf(sb, " 📅 %s", n.DueAt.Format(timestampLayout))
	}
	sb.WriteString("\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
