package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/internal/telegram"
)

// FamilyHandler handles /family <name>, binding the chat to a family
type FamilyHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewFamilyHandler(svc *service.Service, logger *logrus.Logger) *FamilyHandler {
	return &FamilyHandler{svc: svc, logger: logger}
}

func (h *FamilyHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	if len(req.Args) == 0 {
		family, err := h.svc.TelegramFamily(ctx, req.ChatID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🏠 This chat acts for family %q.\nUsage: /family <name>", family), nil
	}

	chat, err := h.svc.BindTelegramChat(ctx, req.ChatID, req.Text(), req.User)
	if err != nil {
		return userMessage(err)
	}
	return fmt.Sprintf("🏠 This chat now acts for family %q.", chat.Family), nil
}
