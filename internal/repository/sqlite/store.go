package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kerhoff/hive/internal/config"
	"github.com/Kerhoff/hive/internal/repository"
)

// purgeTables lists every table, children before parents.
var purgeTables = []string{
	"comments",
	"reactions",
	"list_items",
	"event_rsvps",
	"post_media",
	"post_likes",
	"post_comments",
	"notes",
	"lists",
	"documents",
	"events",
	"posts",
	"albums",
	"chat_messages",
	"user_profiles",
	"app_settings",
	"telegram_chats",
}

// Store hands out repositories bound either to the shared connection or to
// a single transaction on it.
type Store struct {
	db   *config.Database
	conn repository.DBTX
	inTx bool
}

// NewStore creates a store over the shared database connection
func NewStore(db *config.Database) *Store {
	return &Store{db: db, conn: db.DB}
}

func (s *Store) Notes() repository.NoteRepository         { return NewNoteRepository(s.conn) }
func (s *Store) Comments() repository.CommentRepository   { return NewCommentRepository(s.conn) }
func (s *Store) Reactions() repository.ReactionRepository { return NewReactionRepository(s.conn) }
func (s *Store) Lists() repository.ListRepository         { return NewListRepository(s.conn) }
func (s *Store) Documents() repository.DocumentRepository { return NewDocumentRepository(s.conn) }
func (s *Store) Events() repository.EventRepository       { return NewEventRepository(s.conn) }
func (s *Store) Feed() repository.FeedRepository          { return NewFeedRepository(s.conn) }
func (s *Store) Chat() repository.ChatRepository          { return NewChatRepository(s.conn) }
func (s *Store) Profiles() repository.ProfileRepository   { return NewProfileRepository(s.conn) }
func (s *Store) Settings() repository.SettingRepository   { return NewSettingRepository(s.conn) }

func (s *Store) TelegramChats() repository.TelegramChatRepository {
	return NewTelegramChatRepository(s.conn)
}

// InTx runs fn in a transaction. Calls nested inside an open transaction
// join it.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&Store{db: s.db, conn: tx, inTx: true})
	})
}

// Purge truncates every table. The schema itself is left intact so a
// failure part way never needs manual repair.
func (s *Store) Purge(ctx context.Context) error {
	return s.InTx(ctx, func(tx repository.Store) error {
		return tx.(*Store).purge(ctx)
	})
}

func (s *Store) purge(ctx context.Context) error {
	for _, table := range purgeTables {
		if _, err := s.conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM sqlite_sequence"); err != nil {
		return fmt.Errorf("failed to reset id sequences: %w", err)
	}
	return nil
}

// Vacuum reclaims space; it cannot run inside a transaction.
func (s *Store) Vacuum(ctx context.Context) error {
	if s.inTx {
		return fmt.Errorf("vacuum cannot run inside a transaction")
	}
	return s.db.Vacuum(ctx)
}
