package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/telegram"
)

// StartHandler handles the /start command
type StartHandler struct {
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		logger: logger,
	}
}

// Handle processes the /start command
func (h *StartHandler) Handle(_ context.Context, req telegram.Request) (string, error) {
	h.logger.WithFields(logrus.Fields{
		"chat_id": req.ChatID,
		"user":    req.User,
	}).Info("Sent start message")

	return `🐝 Welcome to The Hive!

I connect this chat to your family's corkboard, calendar, wishlists and chat.

Start by binding this chat to your family:
• /family <name>

Then try /note, /remind or /events. Use /help for everything else.`, nil
}
