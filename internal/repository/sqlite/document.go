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

const documentColumns = `id, family, title, COALESCE(content, ''), deleted_at`

type documentRepository struct {
	db repository.DBTX
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db repository.DBTX) repository.DocumentRepository {
	return &documentRepository{db: db}
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc       models.Document
		deletedAt sql.NullString
	)
	if err := row.Scan(&doc.ID, &doc.Family, &doc.Title, &doc.Content, &deletedAt); err != nil {
		return nil, err
	}

	var err error
	if doc.DeletedAt, err = optionalTime(deletedAt); err != nil {
		return nil, fmt.Errorf("document %d deleted_at: %w", doc.ID, err)
	}
	return &doc, nil
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	query := `INSERT INTO documents (family, title, content) VALUES (?, ?, ?) RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, doc.Family, doc.Title, doc.Content).Scan(&doc.ID); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return doc, nil
}

// GetByID returns the document even when soft-deleted
func (r *documentRepository) GetByID(ctx context.Context, family string, id int64) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ? AND family = ?`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id, family))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document by ID: %w", err)
	}

	return doc, nil
}

func (r *documentRepository) List(ctx context.Context, family string) ([]*models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE family = ? AND deleted_at IS NULL
		ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, family)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (r *documentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := `UPDATE documents SET title = ?, content = ? WHERE id = ? AND family = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, doc.Title, doc.Content, doc.ID, doc.Family)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	return expectAffected(result, "document", doc.ID)
}

func (r *documentRepository) SoftDelete(ctx context.Context, family string, id int64, at time.Time) error {
	query := `UPDATE documents SET deleted_at = ? WHERE id = ? AND family = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, models.FormatTimestamp(at), id, family)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return expectAffected(result, "document", id)
}
