package handlers

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/hive/internal/config"
	"github.com/Kerhoff/hive/internal/identity"
	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/preview"
	"github.com/Kerhoff/hive/internal/repository/sqlite"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/internal/telegram"
	"github.com/Kerhoff/hive/pkg/logger"
)

const familyChat int64 = -1001

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()

	db, err := config.NewDatabase(filepath.Join(dir, "hive.db"), time.Second, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	store := sqlite.NewStore(db)
	blobs, err := media.NewBlobStore(filepath.Join(dir, "uploads"), log)
	require.NoError(t, err)
	processor := media.NewProcessor(blobs, media.NewClassifier(), media.NoopThumbnailer{}, 1<<20, nil, log)

	return service.New(store, identity.NewResolver(store.Settings(), log), processor, preview.NoopFetcher{}, nil, log, service.Options{})
}

func request(user string, args ...string) telegram.Request {
	return telegram.Request{ChatID: familyChat, User: user, Args: args}
}

func TestFamilyBinding(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	h := NewFamilyHandler(svc, logger.Discard())

	reply, err := h.Handle(ctx, request("alice"))
	require.NoError(t, err)
	assert.Contains(t, reply, `"public"`)

	reply, err = h.Handle(ctx, request("alice", "smith"))
	require.NoError(t, err)
	assert.Contains(t, reply, `"smith"`)

	// Notes from the chat land in the bound family.
	_, err = NewNoteHandler(svc, logger.Discard()).Handle(ctx, request("alice", "Call", "grandma"))
	require.NoError(t, err)

	page, err := svc.ListNotes(ctx, models.Identity{User: "bob", Family: "smith"}, service.NoteQuery{})
	require.NoError(t, err)
	require.Len(t, page.Notes, 1)
	assert.Equal(t, "Call grandma", page.Notes[0].Content)
}

func TestNoteCommands(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	log := logger.Discard()

	reply, err := NewNoteHandler(svc, log).Handle(ctx, request("alice"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, "Usage"))

	reply, err = NewNotesHandler(svc, log).Handle(ctx, request("alice"))
	require.NoError(t, err)
	assert.Contains(t, reply, "empty")

	_, err = NewNoteHandler(svc, log).Handle(ctx, request("alice", "Buy", "milk"))
	require.NoError(t, err)

	reply, err = NewNotesHandler(svc, log).Handle(ctx, request("bob"))
	require.NoError(t, err)
	assert.Contains(t, reply, "#1: Buy milk")
}

func TestRemindCommands(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	log := logger.Discard()

	reply, err := NewRemindHandler(svc, log).Handle(ctx, request("alice", "tomorrow", "dentist"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Could not parse")

	reply, err = NewRemindHandler(svc, log).Handle(ctx, request("alice", "2020-01-02", "09:30", "Pay", "rent"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Reminder #1")

	page, err := svc.ListNotes(ctx, models.Identity{User: "alice", Family: models.DefaultFamily}, service.NoteQuery{})
	require.NoError(t, err)
	require.Len(t, page.Notes, 1)
	note := page.Notes[0]
	assert.Equal(t, models.NoteReminder, note.Type)
	require.NotNil(t, note.DueAt)
	assert.True(t, note.DueAt.Equal(time.Date(2020, 1, 2, 9, 30, 0, 0, time.UTC)))

	reply, err = NewRemindersHandler(svc, log).Handle(ctx, request("bob"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Overdue")
	assert.Contains(t, reply, "Pay rent")
	assert.NotContains(t, reply, "Due today")
}

func TestParseDue(t *testing.T) {
	due, next, err := parseDue([]string{"2024-03-01", "walk"})
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	assert.True(t, due.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	due, next, err = parseDue([]string{"2024-03-01", "7:05", "walk"})
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	assert.Equal(t, 7, due.Hour())

	_, _, err = parseDue([]string{"01/03/2024", "walk"})
	assert.Error(t, err)
}

func TestParseEvent(t *testing.T) {
	in, ok := parseEvent([]string{"School", "play", "2024-05-10"})
	require.True(t, ok)
	assert.Equal(t, "School play", in.Title)
	assert.True(t, in.Range.AllDay)

	in, ok = parseEvent([]string{"Late", "show", "2024-05-10", "23:30"})
	require.True(t, ok)
	assert.False(t, in.Range.AllDay)
	assert.Equal(t, 23*time.Hour+30*time.Minute, in.Range.StartTime)
	assert.Equal(t, 30*time.Minute, in.Range.EndTime)
	assert.Equal(t, 11, in.Range.EndDate.Day())

	_, ok = parseEvent([]string{"2024-05-10"})
	assert.False(t, ok)
	_, ok = parseEvent([]string{"Party", "friday"})
	assert.False(t, ok)
}

func TestEventCommands(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	log := logger.Discard()

	today := time.Now().UTC().Format("2006-01-02")
	reply, err := NewEventAddHandler(svc, log).Handle(ctx, request("alice", "Movie", "night", today, "20:00"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Event #1: Movie night")

	reply, err = NewEventsHandler(svc, log).Handle(ctx, request("bob"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Movie night")
	assert.Contains(t, reply, "alice")
}

func TestSayCommand(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reply, err := NewSayHandler(svc, logger.Discard()).Handle(ctx, request("alice", "Dinner", "is", "ready"))
	require.NoError(t, err)
	assert.Contains(t, reply, "#general")

	view, err := svc.ViewChat(ctx, models.Identity{User: "bob", Family: models.DefaultFamily}, models.DefaultRoom)
	require.NoError(t, err)
	assert.True(t, view.Notify)
	require.NotNil(t, view.Latest)
	assert.Equal(t, "Dinner is ready", view.Latest.Text)
}

func TestWishlistCommands(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	log := logger.Discard()
	alice := models.Identity{User: "alice", Family: models.DefaultFamily}

	list, err := svc.CreateList(ctx, alice, "Alice's birthday", models.ListWishlist)
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, alice, list.ID, service.ItemInput{Text: "Kite"})
	require.NoError(t, err)

	reply, err := NewWishListHandler(svc, log).Handle(ctx, request("bob"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Alice's birthday")

	claim := NewClaimHandler(svc, log)
	reply, err = claim.Handle(ctx, request("bob", "#1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "You claimed Kite")

	reply, err = claim.Handle(ctx, request("carol", "1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "can't be claimed")

	reply, err = claim.Handle(ctx, request("carol", "99"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Not found")

	show := NewWishListHandler(svc, log)
	reply, err = show.Handle(ctx, request("carol", "1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "claimed by bob")

	// The creator never sees who claimed.
	reply, err = show.Handle(ctx, request("alice", "1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Kite")
	assert.NotContains(t, reply, "claimed")
	assert.Equal(t, int64(1), item.ID)
}
