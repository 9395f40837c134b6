package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

type reactionRepository struct {
	db repository.DBTX
}

// NewReactionRepository creates a new note reaction repository
func NewReactionRepository(db repository.DBTX) repository.ReactionRepository {
	return &reactionRepository{db: db}
}

// Toggle removes the (note, emoji, author) reaction if present and adds it
// otherwise. It reports whether the reaction is now present.
func (r *reactionRepository) Toggle(ctx context.Context, family string, noteID int64, emoji, author string, at time.Time) (bool, error) {
	deleteQuery := `
		DELETE FROM reactions
		WHERE note_id = ? AND emoji = ? AND author = ?
			AND note_id IN (SELECT id FROM notes WHERE family = ? AND deleted_at IS NULL)`

	result, err := r.db.ExecContext(ctx, deleteQuery, noteID, emoji, author, family)
	if err != nil {
		return false, fmt.Errorf("failed to remove reaction: %w", err)
	}
	removed, err := affected(result)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}

	insertQuery := `
		INSERT OR IGNORE INTO reactions (note_id, emoji, author, created_at)
		SELECT ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM notes WHERE id = ? AND family = ? AND deleted_at IS NULL)`

	result, err = r.db.ExecContext(ctx, insertQuery,
		noteID, emoji, author, models.FormatTimestamp(at), noteID, family)
	if err != nil {
		return false, fmt.Errorf("failed to add reaction: %w", err)
	}
	if err := expectAffected(result, "note", noteID); err != nil {
		return false, err
	}

	return true, nil
}

// Counts returns one entry per emoji that has reactions, in palette order
func (r *reactionRepository) Counts(ctx context.Context, family string, noteID int64, viewer string) ([]models.ReactionCount, error) {
	query := `
		SELECT r.emoji, COUNT(*), COALESCE(SUM(CASE WHEN r.author = ? THEN 1 ELSE 0 END), 0)
		FROM reactions r
		JOIN notes n ON n.id = r.note_id
		WHERE r.note_id = ? AND n.family = ?
		GROUP BY r.emoji`

	rows, err := r.db.QueryContext(ctx, query, viewer, noteID, family)
	if err != nil {
		return nil, fmt.Errorf("failed to query reactions: %w", err)
	}
	defer rows.Close()

	byEmoji := make(map[string]models.ReactionCount)
	for rows.Next() {
		var (
			count models.ReactionCount
			mine  int
		)
		if err := rows.Scan(&count.Emoji, &count.Count, &mine); err != nil {
			return nil, fmt.Errorf("failed to scan reaction count: %w", err)
		}
		count.Mine = mine > 0
		byEmoji[count.Emoji] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make([]models.ReactionCount, 0, len(byEmoji))
	for _, emoji := range models.ReactionEmojis {
		if count, ok := byEmoji[emoji]; ok {
			counts = append(counts, count)
		}
	}
	return counts, nil
}

func (r *reactionRepository) Clear(ctx context.Context, family string, noteID int64) error {
	query := `DELETE FROM reactions WHERE note_id = ? AND note_id IN (SELECT id FROM notes WHERE family = ?)`

	if _, err := r.db.ExecContext(ctx, query, noteID, family); err != nil {
		return fmt.Errorf("failed to clear reactions: %w", err)
	}
	return nil
}
