package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database holds the shared database connection and configuration. The
// process uses exactly one connection; SQLite serialises writers and the
// busy timeout bounds how long a statement waits on a lock held elsewhere.
type Database struct {
	*sql.DB
	logger *logrus.Logger
	path   string
}

// NewDatabase opens the SQLite store at path with WAL journaling, foreign
// keys and a bounded busy wait.
func NewDatabase(path string, busyTimeout time.Duration, logger *logrus.Logger) (*Database, error) {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	params.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite3", path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"path":         path,
		"busy_timeout": busyTimeout,
	}).Info("Database connection established successfully")

	return &Database{
		DB:     db,
		logger: logger,
		path:   path,
	}, nil
}

// WithTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise. fn must only use tx: the pool has a
// single connection, so touching the *sql.DB from inside fn would deadlock.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			d.logger.WithError(rbErr).Warn("Transaction rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Vacuum rebuilds the database file, reclaiming space after a purge.
func (d *Database) Vacuum(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

// Path returns the file the database was opened from.
func (d *Database) Path() string {
	return d.path
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// IsBusy reports whether err is a lock contention failure that outlived the
// busy timeout. Such failures are safe for the caller to retry.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
