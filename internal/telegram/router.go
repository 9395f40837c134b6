package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Request is one parsed bot command
type Request struct {
	ChatID int64
	User   string
	Args   []string
}

// Text joins the arguments back into free text
func (r Request) Text() string {
	return strings.Join(r.Args, " ")
}

// CommandHandler answers a command with the text to send back
type CommandHandler interface {
	Handle(ctx context.Context, req Request) (string, error)
}

// Sender is the part of the bot API the router replies through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Router handles message routing and command parsing
type Router struct {
	logger   *logrus.Logger
	handlers map[string]CommandHandler
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:   logger,
		handlers: make(map[string]CommandHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// HandleMessage runs the command in message, if any, and sends the reply
func (r *Router) HandleMessage(ctx context.Context, sender Sender, message *tgbotapi.Message) {
	if message.Text == "" || !message.IsCommand() {
		return
	}

	req := Request{
		ChatID: message.Chat.ID,
		User:   displayName(message.From),
		Args:   strings.Fields(message.CommandArguments()),
	}
	command := message.Command()

	fields := logrus.Fields{
		"command": command,
		"chat_id": req.ChatID,
		"user":    req.User,
	}
	r.logger.WithFields(fields).Debug("Received command")

	handler, exists := r.handlers[command]
	if !exists {
		r.logger.WithFields(fields).Warn("Unknown command")
		r.reply(sender, req.ChatID, "❓ Unknown command. Use /help to see available commands.")
		return
	}

	text, err := handler.Handle(ctx, req)
	if err != nil {
		r.logger.WithFields(fields).WithError(err).Error("Command handler failed")
		r.reply(sender, req.ChatID, "❌ An error occurred while processing your command. Please try again.")
		return
	}
	r.reply(sender, req.ChatID, text)
}

func (r *Router) reply(sender Sender, chatID int64, text string) {
	if text == "" {
		return
	}
	// Plain text: user content is not escaped for Markdown.
	if _, err := sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send reply")
	}
}

// displayName picks the name a Telegram user acts under
func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
