package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Kerhoff/hive/internal/models"
)

// ErrNotFound is returned when a row is missing or belongs to another family.
// The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("record not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NoteRepository defines the interface for corkboard note operations
type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	GetByID(ctx context.Context, family string, id int64) (*models.Note, error)
	List(ctx context.Context, family string, filters NoteFilters) ([]*models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	Move(ctx context.Context, family string, id int64, x, y float64) error
	Raise(ctx context.Context, family string, id int64) (int64, error)
	SetLinkedEvent(ctx context.Context, family string, id int64, eventID *int64) error
	UnlinkEvent(ctx context.Context, family string, eventID int64) error
	SoftDelete(ctx context.Context, family string, id int64, at time.Time) error
}

// CommentRepository defines the interface for note comment operations
type CommentRepository interface {
	Create(ctx context.Context, family string, comment *models.Comment) (*models.Comment, error)
	ListByNote(ctx context.Context, family string, noteID int64, limit int) ([]*models.Comment, error)
	Delete(ctx context.Context, family string, id int64) error
}

// ReactionRepository defines the interface for note reaction operations
type ReactionRepository interface {
	Toggle(ctx context.Context, family string, noteID int64, emoji, author string, at time.Time) (bool, error)
	Counts(ctx context.Context, family string, noteID int64, viewer string) ([]models.ReactionCount, error)
	Clear(ctx context.Context, family string, noteID int64) error
}

// ListRepository defines the interface for list and list item operations
type ListRepository interface {
	Create(ctx context.Context, list *models.List) (*models.List, error)
	GetByID(ctx context.Context, family string, id int64) (*models.List, error)
	List(ctx context.Context, family string, listType models.ListType) ([]*models.List, error)
	SoftDelete(ctx context.Context, family string, id int64, at time.Time) error
	AddItem(ctx context.Context, family string, item *models.ListItem) (*models.ListItem, error)
	GetItem(ctx context.Context, family string, id int64) (*models.ListItem, error)
	Items(ctx context.Context, family string, listID int64, limit int) ([]*models.ListItem, error)
	SetDone(ctx context.Context, family string, id int64, done bool) error
	DeleteItem(ctx context.Context, family string, id int64) error
	Claim(ctx context.Context, family string, id int64, by string) (bool, error)
	Unclaim(ctx context.Context, family string, id int64, by string) (bool, error)
	Purchase(ctx context.Context, family string, id int64, by string) (bool, error)
}

// DocumentRepository defines the interface for document operations
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	GetByID(ctx context.Context, family string, id int64) (*models.Document, error)
	List(ctx context.Context, family string) ([]*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	SoftDelete(ctx context.Context, family string, id int64, at time.Time) error
}

// EventRepository defines the interface for calendar event and RSVP operations
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	GetByID(ctx context.Context, family string, id int64) (*models.Event, error)
	ListByDate(ctx context.Context, family string, from, to time.Time) ([]*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, family string, id int64) error
	SetRSVP(ctx context.Context, family string, rsvp *models.RSVP) error
	ClearRSVP(ctx context.Context, family string, eventID int64, username string) error
	DeleteRSVPs(ctx context.Context, family string, eventID int64) error
	Attendees(ctx context.Context, family string, eventID int64) ([]*models.Attendee, error)
}

// FeedRepository defines the interface for albums, posts and their children
type FeedRepository interface {
	CreateAlbum(ctx context.Context, album *models.Album) (*models.Album, error)
	GetAlbum(ctx context.Context, family string, id int64) (*models.Album, error)
	ListAlbums(ctx context.Context, family string) ([]*models.Album, error)
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	GetPost(ctx context.Context, family string, id int64, viewer string) (*models.Post, error)
	ListPosts(ctx context.Context, family string, filters PostFilters) ([]*models.Post, error)
	AddMedia(ctx context.Context, family string, media *models.PostMedia) (*models.PostMedia, error)
	Media(ctx context.Context, family string, postID int64, limit int) ([]*models.PostMedia, error)
	ToggleLike(ctx context.Context, family string, postID int64, author string) (bool, error)
	AddComment(ctx context.Context, family string, comment *models.PostComment) (*models.PostComment, error)
	Comments(ctx context.Context, family string, postID int64, limit int) ([]*models.PostComment, error)
	DeleteComment(ctx context.Context, family string, id int64) error
	DeletePost(ctx context.Context, family string, id int64) ([]*models.PostMedia, error)
}

// ChatRepository defines the interface for chat message operations
type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	Recent(ctx context.Context, family, room string, limit int) ([]*models.ChatMessage, error)
	Rooms(ctx context.Context, family string) ([]string, error)
	Count(ctx context.Context, family, room string) (int, error)
	DeleteOwn(ctx context.Context, family, room, author string, id int64, window int) error
}

// ProfileRepository defines the interface for user profile operations
type ProfileRepository interface {
	GetOrCreate(ctx context.Context, family, username string) (*models.UserProfile, error)
	Update(ctx context.Context, profile *models.UserProfile) error
}

// SettingRepository defines the interface for per-family settings
type SettingRepository interface {
	Get(ctx context.Context, family, key string) (string, bool, error)
	Set(ctx context.Context, family, key, value string) error
}

// TelegramChatRepository defines the interface for Telegram chat bindings
type TelegramChatRepository interface {
	Bind(ctx context.Context, chat *models.TelegramChat) error
	GetByChatID(ctx context.Context, chatID int64) (*models.TelegramChat, error)
}

// Store groups every repository over one connection or transaction
type Store interface {
	Notes() NoteRepository
	Comments() CommentRepository
	Reactions() ReactionRepository
	Lists() ListRepository
	Documents() DocumentRepository
	Events() EventRepository
	Feed() FeedRepository
	Chat() ChatRepository
	Profiles() ProfileRepository
	Settings() SettingRepository
	TelegramChats() TelegramChatRepository

	// InTx runs fn against a Store bound to a single transaction.
	InTx(ctx context.Context, fn func(Store) error) error
	// Purge empties every table in one transaction.
	Purge(ctx context.Context) error
	Vacuum(ctx context.Context) error
}

// NoteFilters represents filters for querying notes. Empty fields match all.
type NoteFilters struct {
	Query    string
	Assignee string
	Tags     string
}

// PostFilters represents filters for querying feed posts
type PostFilters struct {
	AlbumID *int64
	Viewer  string
	Limit   int
	Offset  int
}
