package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/telegram"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(_ context.Context, req telegram.Request) (string, error) {
	h.logger.WithField("chat_id", req.ChatID).Debug("Sent help message")

	return `📚 The Hive Help

Family:
• /family <name> - Bind this chat to a family

Corkboard:
• /note <text> - Pin a note
• /notes - Show the newest notes
• /remind <YYYY-MM-DD> [HH:MM] <text> - Pin a reminder
• /reminders - Show overdue and today's reminders

Calendar:
• /events - Show this week's events

Chat:
• /say <text> - Post to the general room

Wishlists:
• /wishlist [id] - Show wishlists, or the items of one
• /claim <item id> - Claim a gift

Times are UTC.`, nil
}
