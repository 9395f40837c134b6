package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/hive/internal/repository"
)

type settingRepository struct {
	db repository.DBTX
}

// NewSettingRepository creates a new app setting repository
func NewSettingRepository(db repository.DBTX) repository.SettingRepository {
	return &settingRepository{db: db}
}

// Get reports whether the key is set; a NULL value counts as unset
func (r *settingRepository) Get(ctx context.Context, family, key string) (string, bool, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM app_settings WHERE family = ? AND key = ?`, family, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value.String, value.Valid, nil
}

func (r *settingRepository) Set(ctx context.Context, family, key, value string) error {
	query := `
		INSERT INTO app_settings (family, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT (family, key) DO UPDATE SET value = excluded.value`

	if _, err := r.db.ExecContext(ctx, query, family, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}
