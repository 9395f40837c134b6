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

const (
	listColumns = `id, family, title, COALESCE(type, 'normal'), COALESCE(created_by, ''), deleted_at`
	itemColumns = `i.id, i.list_id, i.text, COALESCE(i.done, 0), COALESCE(i.url, ''), COALESCE(i.image_url, ''),
		COALESCE(i.claimed_by, ''), COALESCE(i.purchased_by, '')`

	// wishlistScope limits a claim transition to alive wishlists of the
	// family that the actor did not create.
	wishlistScope = `list_id IN (
		SELECT id FROM lists
		WHERE family = ? AND deleted_at IS NULL AND type = 'wishlist' AND COALESCE(created_by, '') <> ?)`
)

type listRepository struct {
	db repository.DBTX
}

// NewListRepository creates a new list repository
func NewListRepository(db repository.DBTX) repository.ListRepository {
	return &listRepository{db: db}
}

func scanList(row rowScanner) (*models.List, error) {
	var (
		list      models.List
		listType  string
		deletedAt sql.NullString
	)
	if err := row.Scan(&list.ID, &list.Family, &list.Title, &listType, &list.CreatedBy, &deletedAt); err != nil {
		return nil, err
	}
	list.Type = models.ListType(listType)

	var err error
	if list.DeletedAt, err = optionalTime(deletedAt); err != nil {
		return nil, fmt.Errorf("list %d deleted_at: %w", list.ID, err)
	}
	return &list, nil
}

func scanItem(row rowScanner) (*models.ListItem, error) {
	var (
		item models.ListItem
		done int
	)
	if err := row.Scan(
		&item.ID,
		&item.ListID,
		&item.Text,
		&done,
		&item.URL,
		&item.ImageURL,
		&item.ClaimedBy,
		&item.PurchasedBy,
	); err != nil {
		return nil, err
	}
	item.Done = done != 0
	return &item, nil
}

func (r *listRepository) Create(ctx context.Context, list *models.List) (*models.List, error) {
	query := `
		INSERT INTO lists (family, title, type, created_by)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		list.Family,
		list.Title,
		string(list.Type),
		nullString(list.CreatedBy),
	).Scan(&list.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	return list, nil
}

// GetByID returns the list even when soft-deleted
func (r *listRepository) GetByID(ctx context.Context, family string, id int64) (*models.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists WHERE id = ? AND family = ?`

	list, err := scanList(r.db.QueryRowContext(ctx, query, id, family))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get list by ID: %w", err)
	}

	return list, nil
}

// List returns alive lists, optionally of one type
func (r *listRepository) List(ctx context.Context, family string, listType models.ListType) ([]*models.List, error) {
	query := `
		SELECT ` + listColumns + `
		FROM lists
		WHERE family = ? AND deleted_at IS NULL AND (? = '' OR COALESCE(type, 'normal') = ?)
		ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, family, string(listType), string(listType))
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.List
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, list)
	}

	return lists, rows.Err()
}

func (r *listRepository) SoftDelete(ctx context.Context, family string, id int64, at time.Time) error {
	query := `UPDATE lists SET deleted_at = ? WHERE id = ? AND family = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, models.FormatTimestamp(at), id, family)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}

	return expectAffected(result, "list", id)
}

// AddItem appends an item to an alive list of the family
func (r *listRepository) AddItem(ctx context.Context, family string, item *models.ListItem) (*models.ListItem, error) {
	query := `
		INSERT INTO list_items (list_id, text, done, url, image_url)
		SELECT ?, ?, 0, ?, ?
		WHERE EXISTS (SELECT 1 FROM lists WHERE id = ? AND family = ? AND deleted_at IS NULL)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		item.ListID,
		item.Text,
		nullString(item.URL),
		nullString(item.ImageURL),
		item.ListID,
		family,
	).Scan(&item.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("list %d: %w", item.ListID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to add list item: %w", err)
	}

	item.Done = false
	return item, nil
}

func (r *listRepository) GetItem(ctx context.Context, family string, id int64) (*models.ListItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM list_items i
		JOIN lists l ON l.id = i.list_id
		WHERE i.id = ? AND l.family = ?`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id, family))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get list item by ID: %w", err)
	}

	return item, nil
}

// Items returns the newest items of a list first
func (r *listRepository) Items(ctx context.Context, family string, listID int64, limit int) ([]*models.ListItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM list_items i
		JOIN lists l ON l.id = i.list_id
		WHERE i.list_id = ? AND l.family = ?
		ORDER BY i.id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, listID, family, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query list items: %w", err)
	}
	defer rows.Close()

	var items []*models.ListItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// SetDone only applies to items of alive normal lists
func (r *listRepository) SetDone(ctx context.Context, family string, id int64, done bool) error {
	query := `
		UPDATE list_items SET done = ?
		WHERE id = ? AND list_id IN (
			SELECT id FROM lists
			WHERE family = ? AND deleted_at IS NULL AND COALESCE(type, 'normal') = 'normal')`

	result, err := r.db.ExecContext(ctx, query, done, id, family)
	if err != nil {
		return fmt.Errorf("failed to update list item: %w", err)
	}

	return expectAffected(result, "list item", id)
}

func (r *listRepository) DeleteItem(ctx context.Context, family string, id int64) error {
	query := `DELETE FROM list_items WHERE id = ? AND list_id IN (SELECT id FROM lists WHERE family = ?)`

	result, err := r.db.ExecContext(ctx, query, id, family)
	if err != nil {
		return fmt.Errorf("failed to delete list item: %w", err)
	}

	return expectAffected(result, "list item", id)
}

// Claim reserves an unclaimed item. It reports false when the guard fails.
func (r *listRepository) Claim(ctx context.Context, family string, id int64, by string) (bool, error) {
	query := `
		UPDATE list_items SET claimed_by = ?
		WHERE id = ? AND COALESCE(claimed_by, '') = '' AND COALESCE(purchased_by, '') = ''
			AND ` + wishlistScope

	result, err := r.db.ExecContext(ctx, query, by, id, family, by)
	if err != nil {
		return false, fmt.Errorf("failed to claim list item: %w", err)
	}
	return affected(result)
}

// Unclaim releases a claim held by the same person, unless already purchased
func (r *listRepository) Unclaim(ctx context.Context, family string, id int64, by string) (bool, error) {
	query := `
		UPDATE list_items SET claimed_by = NULL
		WHERE id = ? AND claimed_by = ? AND COALESCE(purchased_by, '') = ''
			AND ` + wishlistScope

	result, err := r.db.ExecContext(ctx, query, id, by, family, by)
	if err != nil {
		return false, fmt.Errorf("failed to unclaim list item: %w", err)
	}
	return affected(result)
}

// Purchase locks a claim held by the same person
func (r *listRepository) Purchase(ctx context.Context, family string, id int64, by string) (bool, error) {
	query := `
		UPDATE list_items SET purchased_by = ?
		WHERE id = ? AND claimed_by = ? AND COALESCE(purchased_by, '') = ''
			AND ` + wishlistScope

	result, err := r.db.ExecContext(ctx, query, by, id, by, family, by)
	if err != nil {
		return false, fmt.Errorf("failed to purchase list item: %w", err)
	}
	return affected(result)
}
