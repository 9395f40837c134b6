package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

type chatRepository struct {
	db repository.DBTX
}

// NewChatRepository creates a new chat message repository
func NewChatRepository(db repository.DBTX) repository.ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (family, room, author, text, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		msg.Family,
		msg.Room,
		msg.Author,
		msg.Text,
		models.FormatTimestamp(msg.CreatedAt),
	).Scan(&msg.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}

	return msg, nil
}

// Recent returns up to limit messages of a room, newest first
func (r *chatRepository) Recent(ctx context.Context, family, room string, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, family, room, author, text, created_at
		FROM chat_messages
		WHERE family = ? AND room = ?
		ORDER BY id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, family, room, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var (
			msg       models.ChatMessage
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.Family, &msg.Room, &msg.Author, &msg.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		if msg.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("chat message %d created_at: %w", msg.ID, err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// Rooms returns the family's distinct rooms sorted ignoring case
func (r *chatRepository) Rooms(ctx context.Context, family string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT room FROM chat_messages WHERE family = ?`, family)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat rooms: %w", err)
	}
	defer rows.Close()

	var rooms []string
	for rows.Next() {
		var room string
		if err := rows.Scan(&room); err != nil {
			return nil, fmt.Errorf("failed to scan chat room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(rooms, func(i, j int) bool {
		a, b := strings.ToLower(rooms[i]), strings.ToLower(rooms[j])
		if a == b {
			return rooms[i] < rooms[j]
		}
		return a < b
	})
	return rooms, nil
}

func (r *chatRepository) Count(ctx context.Context, family, room string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE family = ? AND room = ?`, family, room).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return n, nil
}

// DeleteOwn removes a message only if it is among the author's most recent
// window messages in that room.
func (r *chatRepository) DeleteOwn(ctx context.Context, family, room, author string, id int64, window int) error {
	query := `
		DELETE FROM chat_messages
		WHERE id = ? AND family = ? AND room = ? AND author = ?
			AND id IN (
				SELECT id FROM chat_messages
				WHERE family = ? AND room = ? AND author = ?
				ORDER BY id DESC
				LIMIT ?)`

	result, err := r.db.ExecContext(ctx, query, id, family, room, author, family, room, author, window)
	if err != nil {
		return fmt.Errorf("failed to delete chat message: %w", err)
	}

	return expectAffected(result, "chat message", id)
}
