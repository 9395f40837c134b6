package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/internal/telegram"
)

// SayHandler handles /say <text>, posting into the family's general room
type SayHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewSayHandler(svc *service.Service, logger *logrus.Logger) *SayHandler {
	return &SayHandler{svc: svc, logger: logger}
}

func (h *SayHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	if len(req.Args) == 0 {
		return "Usage: /say <text>", nil
	}

	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}

	msg, err := h.svc.SendMessage(ctx, id, models.DefaultRoom, req.Text())
	if err != nil {
		return userMessage(err)
	}
	return fmt.Sprintf("💬 Posted to #%s as %s", msg.Room, msg.Author), nil
}
