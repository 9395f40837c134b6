package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

type commentRepository struct {
	db repository.DBTX
}

// NewCommentRepository creates a new note comment repository
func NewCommentRepository(db repository.DBTX) repository.CommentRepository {
	return &commentRepository{db: db}
}

// Create adds a comment to an alive note of the family
func (r *commentRepository) Create(ctx context.Context, family string, comment *models.Comment) (*models.Comment, error) {
	query := `
		INSERT INTO comments (note_id, author, text, created_at)
		SELECT ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM notes WHERE id = ? AND family = ? AND deleted_at IS NULL)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		comment.NoteID,
		comment.Author,
		comment.Text,
		models.FormatTimestamp(comment.CreatedAt),
		comment.NoteID,
		family,
	).Scan(&comment.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("note %d: %w", comment.NoteID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// ListByNote returns the newest comments first
func (r *commentRepository) ListByNote(ctx context.Context, family string, noteID int64, limit int) ([]*models.Comment, error) {
	query := `
		SELECT c.id, c.note_id, c.author, c.text, c.created_at
		FROM comments c
		JOIN notes n ON n.id = c.note_id
		WHERE c.note_id = ? AND n.family = ?
		ORDER BY c.id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, noteID, family, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		var (
			comment   models.Comment
			createdAt string
		)
		if err := rows.Scan(&comment.ID, &comment.NoteID, &comment.Author, &comment.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if comment.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("comment %d created_at: %w", comment.ID, err)
		}
		comments = append(comments, &comment)
	}

	return comments, rows.Err()
}

func (r *commentRepository) Delete(ctx context.Context, family string, id int64) error {
	query := `DELETE FROM comments WHERE id = ? AND note_id IN (SELECT id FROM notes WHERE family = ?)`

	result, err := r.db.ExecContext(ctx, query, id, family)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return expectAffected(result, "comment", id)
}
