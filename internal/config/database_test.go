package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/hive/pkg/logger"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "hive.db"), time.Second, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDatabase(t)

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())

	var version int
	var dirty bool
	require.NoError(t, db.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty))
	assert.Equal(t, 2, version)
	assert.False(t, dirty)

	var journal string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&journal))
	assert.Equal(t, "wal", journal)

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrateUpgradesLegacyStore(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	legacy := []string{
		`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, content TEXT NOT NULL, color TEXT NOT NULL)`,
		`CREATE TABLE lists (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL)`,
		`CREATE TABLE list_items (id INTEGER PRIMARY KEY AUTOINCREMENT, list_id INTEGER NOT NULL, text TEXT NOT NULL, done INTEGER)`,
		`INSERT INTO notes (content, color) VALUES ('old note', '#FFF176')`,
		`INSERT INTO lists (title) VALUES ('old list')`,
		`INSERT INTO list_items (list_id, text, done) VALUES (1, 'old item', NULL)`,
	}
	for _, stmt := range legacy {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	require.NoError(t, db.Migrate())

	var (
		family, noteType string
		orderIndex       int
		x                float64
		deletedAt        *string
	)
	err := db.QueryRow(`SELECT family, type, order_index, x, deleted_at FROM notes WHERE id = 1`).
		Scan(&family, &noteType, &orderIndex, &x, &deletedAt)
	require.NoError(t, err)
	assert.Equal(t, "public", family)
	assert.Equal(t, "text", noteType)
	assert.Equal(t, 0, orderIndex)
	assert.Equal(t, 40.0, x)
	assert.Nil(t, deletedAt)

	var listType string
	require.NoError(t, db.QueryRow(`SELECT type FROM lists WHERE id = 1`).Scan(&listType))
	assert.Equal(t, "normal", listType)

	var done int
	require.NoError(t, db.QueryRow(`SELECT done FROM list_items WHERE id = 1`).Scan(&done))
	assert.Equal(t, 0, done)

	cols, err := db.tableColumns(ctx, "list_items")
	require.NoError(t, err)
	for _, name := range []string{"url", "image_url", "claimed_by", "purchased_by"} {
		assert.True(t, cols[name], name)
	}

	// Tables the legacy store never had are created.
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM chat_messages`).Scan(&n))
	assert.Zero(t, n)
}

func TestWithTxRollsBack(t *testing.T) {
	db := openTestDatabase(t)
	require.NoError(t, db.Migrate())
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents (title, family) VALUES ('draft', 'smith')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n))
	assert.Zero(t, n)
}

func TestIsBusy(t *testing.T) {
	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	locked := sqlite3.Error{Code: sqlite3.ErrLocked}

	assert.True(t, IsBusy(busy))
	assert.True(t, IsBusy(locked))
	assert.True(t, IsBusy(fmt.Errorf("failed to create note: %w", busy)))
	assert.False(t, IsBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, IsBusy(errors.New("database is busy")))
	assert.False(t, IsBusy(nil))
}
