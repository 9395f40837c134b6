package config

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// tablesVersion is the migration that creates every table. Columns added by
// later releases are applied by ensureColumns right after it, so stores
// created by older releases reach the current shape before indexes are built.
const tablesVersion = 1

type column struct {
	table      string
	name       string
	definition string
}

// additiveColumns lists every column introduced after a table's first
// release. Entries are only ever appended.
var additiveColumns = []column{
	{"notes", "x", "REAL DEFAULT 40"},
	{"notes", "y", "REAL DEFAULT 40"},
	{"notes", "z", "INTEGER DEFAULT 0"},
	{"notes", "type", "TEXT DEFAULT 'text'"},
	{"notes", "assignee", "TEXT"},
	{"notes", "due_at", "TEXT"},
	{"notes", "tags", "TEXT"},
	{"notes", "order_index", "INTEGER DEFAULT 0"},
	{"notes", "linked_event_id", "INTEGER"},
	{"notes", "family", "TEXT NOT NULL DEFAULT 'public'"},
	{"notes", "deleted_at", "TEXT"},
	{"lists", "family", "TEXT NOT NULL DEFAULT 'public'"},
	{"lists", "deleted_at", "TEXT"},
	{"lists", "type", "TEXT DEFAULT 'normal'"},
	{"lists", "created_by", "TEXT"},
	{"list_items", "url", "TEXT"},
	{"list_items", "image_url", "TEXT"},
	{"list_items", "claimed_by", "TEXT"},
	{"list_items", "purchased_by", "TEXT"},
	{"documents", "family", "TEXT NOT NULL DEFAULT 'public'"},
	{"documents", "deleted_at", "TEXT"},
	{"events", "all_day", "INTEGER DEFAULT 0"},
	{"post_media", "thumb_path", "TEXT"},
	{"post_media", "media_type", "TEXT DEFAULT 'image'"},
}

// backfills replace NULLs left by rows written before a column gained its
// default. Each statement is idempotent.
var backfills = []string{
	"UPDATE list_items SET done = 0 WHERE done IS NULL",
	"UPDATE documents SET content = '' WHERE content IS NULL",
	"UPDATE events SET all_day = 0 WHERE all_day IS NULL",
	"UPDATE lists SET type = 'normal' WHERE type IS NULL",
	"UPDATE notes SET type = 'text' WHERE type IS NULL",
	"UPDATE notes SET order_index = 0 WHERE order_index IS NULL",
	"UPDATE notes SET x = 40 WHERE x IS NULL",
	"UPDATE notes SET y = 40 WHERE y IS NULL",
	"UPDATE notes SET z = 0 WHERE z IS NULL",
	"UPDATE post_media SET media_type = 'image' WHERE media_type IS NULL",
}

// Migrate brings the schema up to date. It is safe to run on every start,
// including against a store created by an older release that predates the
// migration table. Any failure is fatal to the caller.
func (d *Database) Migrate() error {
	ctx := context.Background()

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(d.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		version = 0
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	// Every migration is idempotent, so an interrupted one is simply re-run.
	if dirty {
		d.logger.WithField("version", version).Warn("Schema marked dirty, re-applying last migration")
		previous := int(version) - 1
		if previous == 0 {
			previous = -1
		}
		if err := m.Force(previous); err != nil {
			return fmt.Errorf("failed to reset dirty schema version: %w", err)
		}
		if previous < 0 {
			version = 0
		} else {
			version = uint(previous)
		}
	}

	if version < tablesVersion {
		if err := m.Migrate(tablesVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	if err := d.ensureColumns(ctx); err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, stmt := range backfills {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to backfill (%s): %w", stmt, err)
		}
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}

func (d *Database) ensureColumns(ctx context.Context) error {
	existing := make(map[string]map[string]bool)

	for _, col := range additiveColumns {
		cols, ok := existing[col.table]
		if !ok {
			var err error
			cols, err = d.tableColumns(ctx, col.table)
			if err != nil {
				return err
			}
			existing[col.table] = cols
		}
		if cols[col.name] {
			continue
		}

		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.name, col.definition)
		if _, err := d.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", col.table, col.name, err)
		}
		cols[col.name] = true

		d.logger.WithFields(logrus.Fields{
			"table":  col.table,
			"column": col.name,
		}).Info("Added column")
	}
	return nil
}

func (d *Database) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := d.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue interface{}
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
