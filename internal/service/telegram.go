package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
)

// BindTelegramChat points a Telegram chat at a family
func (s *Service) BindTelegramChat(ctx context.Context, chatID int64, family, boundBy string) (*models.TelegramChat, error) {
	family, err := requireText("family", family)
	if err != nil {
		return nil, err
	}

	chat := &models.TelegramChat{
		ChatID:  chatID,
		Family:  family,
		BoundBy: strings.TrimSpace(boundBy),
		BoundAt: s.now(),
	}
	if err := s.store.TelegramChats().Bind(ctx, chat); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"family":  family,
		"user":    chat.BoundBy,
	}).Info("Bound Telegram chat")

	return chat, nil
}

// TelegramFamily returns the family a chat is bound to, or the default
func (s *Service) TelegramFamily(ctx context.Context, chatID int64) (string, error) {
	chat, err := s.store.TelegramChats().GetByChatID(ctx, chatID)
	if err != nil {
		return "", err
	}
	if chat == nil {
		return models.DefaultFamily, nil
	}
	return chat.Family, nil
}
