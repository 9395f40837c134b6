package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

type telegramChatRepository struct {
	db repository.DBTX
}

// NewTelegramChatRepository creates a new Telegram chat binding repository
func NewTelegramChatRepository(db repository.DBTX) repository.TelegramChatRepository {
	return &telegramChatRepository{db: db}
}

// Bind points a chat at a family, replacing any earlier binding
func (r *telegramChatRepository) Bind(ctx context.Context, chat *models.TelegramChat) error {
	query := `
		INSERT INTO telegram_chats (chat_id, family, bound_by, bound_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE
		SET family = excluded.family, bound_by = excluded.bound_by, bound_at = excluded.bound_at`

	_, err := r.db.ExecContext(ctx, query,
		chat.ChatID,
		chat.Family,
		nullString(chat.BoundBy),
		models.FormatTimestamp(chat.BoundAt),
	)
	if err != nil {
		return fmt.Errorf("failed to bind telegram chat: %w", err)
	}
	return nil
}

func (r *telegramChatRepository) GetByChatID(ctx context.Context, chatID int64) (*models.TelegramChat, error) {
	query := `SELECT chat_id, family, COALESCE(bound_by, ''), bound_at FROM telegram_chats WHERE chat_id = ?`

	var (
		chat    models.TelegramChat
		boundAt string
	)
	err := r.db.QueryRowContext(ctx, query, chatID).Scan(&chat.ChatID, &chat.Family, &chat.BoundBy, &boundAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get telegram chat: %w", err)
	}
	if chat.BoundAt, err = models.ParseTimestamp(boundAt); err != nil {
		return nil, fmt.Errorf("telegram chat %d bound_at: %w", chat.ChatID, err)
	}

	return &chat, nil
}
