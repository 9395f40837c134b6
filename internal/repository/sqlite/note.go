package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

const noteColumns = `id, family, content, color, COALESCE(x, 40), COALESCE(y, 40), COALESCE(z, 0),
	COALESCE(type, 'text'), assignee, due_at, tags, COALESCE(order_index, 0), linked_event_id, deleted_at`

type noteRepository struct {
	db repository.DBTX
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db repository.DBTX) repository.NoteRepository {
	return &noteRepository{db: db}
}

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		note                         models.Note
		noteType                     string
		assignee, dueAt, tags, delAt sql.NullString
		linkedEventID                sql.NullInt64
	)
	if err := row.Scan(
		&note.ID,
		&note.Family,
		&note.Content,
		&note.Color,
		&note.X,
		&note.Y,
		&note.Z,
		&noteType,
		&assignee,
		&dueAt,
		&tags,
		&note.OrderIndex,
		&linkedEventID,
		&delAt,
	); err != nil {
		return nil, err
	}

	note.Type = models.NoteType(noteType)
	note.Assignee = assignee.String
	note.Tags = models.SplitList(tags.String)
	note.LinkedEventID = optionalInt64(linkedEventID)

	var err error
	if note.DueAt, err = optionalTime(dueAt); err != nil {
		return nil, fmt.Errorf("note %d due_at: %w", note.ID, err)
	}
	if note.DeletedAt, err = optionalTime(delAt); err != nil {
		return nil, fmt.Errorf("note %d deleted_at: %w", note.ID, err)
	}
	return &note, nil
}

// Create inserts the note on top of the family's alive notes. The order
// index is computed inside the insert so concurrent creators cannot collide,
// and the layer starts equal to it.
func (r *noteRepository) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	query := `
		INSERT INTO notes (family, content, color, x, y, z, type, assignee, due_at, tags, linked_event_id, order_index)
		SELECT ?, ?, ?, ?, ?, top.next, ?, ?, ?, ?, ?, top.next
		FROM (SELECT COALESCE(MAX(order_index), 0) + 1 AS next FROM notes WHERE family = ? AND deleted_at IS NULL) AS top
		RETURNING id, order_index, z`

	err := r.db.QueryRowContext(ctx, query,
		note.Family,
		note.Content,
		note.Color,
		note.X,
		note.Y,
		string(note.Type),
		nullString(note.Assignee),
		nullTime(note.DueAt),
		nullString(models.JoinList(note.Tags)),
		nullInt64(note.LinkedEventID),
		note.Family,
	).Scan(&note.ID, &note.OrderIndex, &note.Z)

	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	return note, nil
}

// GetByID returns the note even when soft-deleted
func (r *noteRepository) GetByID(ctx context.Context, family string, id int64) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = ? AND family = ?`

	note, err := scanNote(r.db.QueryRowContext(ctx, query, id, family))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get note by ID: %w", err)
	}

	return note, nil
}

func (r *noteRepository) List(ctx context.Context, family string, filters repository.NoteFilters) ([]*models.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE family = ? AND deleted_at IS NULL
			AND (? = '' OR instr(lower(content), lower(?)) > 0)
			AND (? = '' OR instr(lower(COALESCE(assignee, '')), lower(?)) > 0)
			AND (? = '' OR instr(lower(COALESCE(tags, '')), lower(?)) > 0)
		ORDER BY order_index DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query,
		family,
		filters.Query, filters.Query,
		filters.Assignee, filters.Assignee,
		filters.Tags, filters.Tags,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}

	return notes, rows.Err()
}

// Update rewrites the editable fields of an alive note. Position and order
// are left alone.
func (r *noteRepository) Update(ctx context.Context, note *models.Note) error {
	query := `
		UPDATE notes
		SET content = ?, color = ?, type = ?, assignee = ?, tags = ?, due_at = ?
		WHERE id = ? AND family = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query,
		note.Content,
		note.Color,
		string(note.Type),
		nullString(note.Assignee),
		nullString(models.JoinList(note.Tags)),
		nullTime(note.DueAt),
		note.ID,
		note.Family,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	return expectAffected(result, "note", note.ID)
}

// Move changes only the board position
func (r *noteRepository) Move(ctx context.Context, family string, id int64, x, y float64) error {
	query := `UPDATE notes SET x = ?, y = ? WHERE id = ? AND family = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, x, y, id, family)
	if err != nil {
		return fmt.Errorf("failed to move note: %w", err)
	}

	return expectAffected(result, "note", id)
}

// Raise puts the note above every other alive note and returns its new index
func (r *noteRepository) Raise(ctx context.Context, family string, id int64) (int64, error) {
	query := `
		UPDATE notes
		SET order_index = (SELECT COALESCE(MAX(order_index), 0) + 1 FROM notes WHERE family = ? AND deleted_at IS NULL),
			z = (SELECT COALESCE(MAX(order_index), 0) + 1 FROM notes WHERE family = ? AND deleted_at IS NULL)
		WHERE id = ? AND family = ? AND deleted_at IS NULL
		RETURNING order_index`

	var orderIndex int64
	err := r.db.QueryRowContext(ctx, query, family, family, id, family).Scan(&orderIndex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("note %d: %w", id, repository.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to raise note: %w", err)
	}

	return orderIndex, nil
}

func (r *noteRepository) SetLinkedEvent(ctx context.Context, family string, id int64, eventID *int64) error {
	query := `UPDATE notes SET linked_event_id = ? WHERE id = ? AND family = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, nullInt64(eventID), id, family)
	if err != nil {
		return fmt.Errorf("failed to link note to event: %w", err)
	}

	return expectAffected(result, "note", id)
}

// UnlinkEvent clears the weak reference on every note pointing at eventID
func (r *noteRepository) UnlinkEvent(ctx context.Context, family string, eventID int64) error {
	query := `UPDATE notes SET linked_event_id = NULL WHERE family = ? AND linked_event_id = ?`

	if _, err := r.db.ExecContext(ctx, query, family, eventID); err != nil {
		return fmt.Errorf("failed to unlink event %d from notes: %w", eventID, err)
	}
	return nil
}

func (r *noteRepository) SoftDelete(ctx context.Context, family string, id int64, at time.Time) error {
	query := `UPDATE notes SET deleted_at = ? WHERE id = ? AND family = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, models.FormatTimestamp(at), id, family)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	return expectAffected(result, "note", id)
}
