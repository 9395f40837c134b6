package service

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/hive/internal/calendar"
	"github.com/Kerhoff/hive/internal/config"
	"github.com/Kerhoff/hive/internal/identity"
	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/preview"
	"github.com/Kerhoff/hive/internal/repository/sqlite"
	"github.com/Kerhoff/hive/pkg/logger"
)

var (
	alice = models.Identity{User: "Alice", Family: "smith"}
	bob   = models.Identity{User: "Bob", Family: "smith"}
	carol = models.Identity{User: "Carol", Family: "smith"}
	eve   = models.Identity{User: "Eve", Family: "jones"}

	pngData = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")
)

type testEnv struct {
	svc       *Service
	uploadDir string
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()

	db, err := config.NewDatabase(filepath.Join(dir, "hive.db"), time.Second, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	store := sqlite.NewStore(db)
	uploadDir := filepath.Join(dir, "uploads")
	blobs, err := media.NewBlobStore(uploadDir, log)
	require.NoError(t, err)
	processor := media.NewProcessor(blobs, media.NewClassifier(), media.NoopThumbnailer{}, 1<<20, nil, log)

	svc := New(store, identity.NewResolver(store.Settings(), log), processor, preview.NoopFetcher{}, nil, log, opts)
	return &testEnv{svc: svc, uploadDir: uploadDir}
}

func newTestService(t *testing.T) *Service {
	return newTestEnv(t, Options{}).svc
}

func uploadCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestNoteOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var ids []int64
	for i, content := range []string{"one", "two", "three"} {
		note, err := svc.CreateNote(ctx, alice, NoteInput{Content: content})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), note.OrderIndex)
		assert.Equal(t, DefaultNoteColor, note.Color)
		assert.Equal(t, models.NoteText, note.Type)
		ids = append(ids, note.ID)
	}

	page, err := svc.ListNotes(ctx, alice, NoteQuery{})
	require.NoError(t, err)
	require.Len(t, page.Notes, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{page.Notes[0].OrderIndex, page.Notes[1].OrderIndex, page.Notes[2].OrderIndex})

	// Moving never reorders.
	require.NoError(t, svc.MoveNote(ctx, alice, ids[0], 300, 120))
	page, err = svc.ListNotes(ctx, alice, NoteQuery{})
	require.NoError(t, err)
	assert.Equal(t, ids[2], page.Notes[0].ID)
	assert.Equal(t, 300.0, page.Notes[2].X)

	raised, err := svc.RaiseNote(ctx, alice, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(4), raised)
	page, err = svc.ListNotes(ctx, alice, NoteQuery{})
	require.NoError(t, err)
	assert.Equal(t, ids[0], page.Notes[0].ID)
}

func TestListNotesPaging(t *testing.T) {
	svc := newTestEnv(t, Options{PageSize: 2}).svc
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		_, err := svc.CreateNote(ctx, alice, NoteInput{Content: content})
		require.NoError(t, err)
	}

	first, err := svc.ListNotes(ctx, alice, NoteQuery{Page: 1})
	require.NoError(t, err)
	assert.Len(t, first.Notes, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, 3, first.Total)

	second, err := svc.ListNotes(ctx, alice, NoteQuery{Page: 2})
	require.NoError(t, err)
	require.Len(t, second.Notes, 1)
	assert.Equal(t, "a", second.Notes[0].Content)
	assert.False(t, second.HasMore)
}

func TestListNotesHugePage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateNote(ctx, alice, NoteInput{Content: "only"})
	require.NoError(t, err)

	for _, p := range []int{math.MaxInt / 2, math.MaxInt, MaxPage + 1} {
		var page *NotePage
		require.NotPanics(t, func() {
			page, err = svc.ListNotes(ctx, alice, NoteQuery{Page: p})
		})
		require.NoError(t, err)
		assert.Empty(t, page.Notes)
		assert.Equal(t, MaxPage, page.Page)
		assert.Equal(t, 1, page.Total)
		assert.False(t, page.HasMore)
	}

	posts, err := svc.ListPosts(ctx, alice, nil, math.MaxInt)
	require.NoError(t, err)
	assert.Empty(t, posts.Posts)
	assert.Equal(t, MaxPage, posts.Page)
}

func TestListNotesFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	yesterday := now.Add(-26 * time.Hour)
	tonight := now.Add(6 * time.Hour)

	_, err := svc.CreateNote(ctx, alice, NoteInput{Type: models.NoteReminder, Content: "Pay rent", DueAt: &yesterday, Assignee: "Bob"})
	require.NoError(t, err)
	_, err = svc.CreateNote(ctx, alice, NoteInput{Type: models.NoteReminder, Content: "Dentist", DueAt: &tonight, Tags: []string{"health", " kids "}})
	require.NoError(t, err)
	_, err = svc.CreateNote(ctx, alice, NoteInput{Content: "Buy MILK"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query NoteQuery
		want  []string
	}{
		{"all", NoteQuery{}, []string{"Buy MILK", "Dentist", "Pay rent"}},
		{"content ignores case", NoteQuery{Query: "milk"}, []string{"Buy MILK"}},
		{"assignee", NoteQuery{Assignee: "bo"}, []string{"Pay rent"}},
		{"tags", NoteQuery{Tags: "KIDS"}, []string{"Dentist"}},
		{"due today", NoteQuery{Due: models.DueToday}, []string{"Dentist"}},
		{"overdue", NoteQuery{Due: models.DueOverdue}, []string{"Pay rent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListNotes(ctx, alice, tt.query)
			require.NoError(t, err)
			var got []string
			for _, n := range page.Notes {
				got = append(got, n.Content)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateNoteValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateNote(ctx, alice, NoteInput{Content: "   "})
	assert.True(t, IsValidation(err))

	_, err = svc.CreateNote(ctx, alice, NoteInput{Type: models.NoteLink, Content: "ftp://example.com/file"})
	assert.True(t, IsValidation(err))

	_, err = svc.CreateNote(ctx, alice, NoteInput{Type: "poem", Content: "roses"})
	assert.True(t, IsValidation(err))

	note, err := svc.CreateNote(ctx, alice, NoteInput{Type: models.NoteLink, Content: "https://example.com", Color: "#64B5F6"})
	require.NoError(t, err)
	assert.Equal(t, "#64B5F6", note.Color)
	assert.Equal(t, 40.0, note.X)
	assert.Equal(t, 40.0, note.Y)
}

func TestPhotoNote(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	_, err := env.svc.CreatePhotoNote(ctx, alice, media.Upload{Filename: "notes.txt", Data: []byte("plain text")}, NoteInput{})
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, uploadCount(t, env.uploadDir))

	note, err := env.svc.CreatePhotoNote(ctx, alice, media.Upload{Filename: "cat.png", Data: pngData}, NoteInput{})
	require.NoError(t, err)
	assert.Equal(t, models.NotePhoto, note.Type)
	assert.FileExists(t, note.Content)

	content := "caption"
	_, err = env.svc.UpdateNote(ctx, alice, note.ID, NoteUpdate{Content: &content})
	assert.True(t, IsValidation(err))
}

func TestCrossFamilyScope(t *testing.T) {
	env := newTestEnv(t, Options{})
	svc := env.svc
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, alice, NoteInput{Content: "family secret"})
	require.NoError(t, err)
	list, err := svc.CreateList(ctx, alice, "Groceries", models.ListNormal)
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, alice, list.ID, ItemInput{Text: "eggs"})
	require.NoError(t, err)
	doc, err := svc.CreateDocument(ctx, alice, "Passwords")
	require.NoError(t, err)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	event, err := svc.CreateEvent(ctx, alice, EventInput{Title: "Party", Range: calendar.Range{StartDate: day, EndDate: day, AllDay: true}})
	require.NoError(t, err)
	post, err := svc.CreatePost(ctx, alice, PostInput{Caption: "hello", Files: []media.Upload{{Filename: "a.png", Data: pngData}}})
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, alice, "", "hi")
	require.NoError(t, err)
	wish, err := svc.CreateList(ctx, alice, "Birthday", models.ListWishlist)
	require.NoError(t, err)
	gift, err := svc.AddItem(ctx, alice, wish.ID, ItemInput{Text: "bike"})
	require.NoError(t, err)
	comment, err := svc.AddComment(ctx, alice, note.ID, "mine")
	require.NoError(t, err)
	postComment, err := svc.AddPostComment(ctx, alice, post.ID, "nice")
	require.NoError(t, err)
	_, err = svc.ToggleReaction(ctx, alice, note.ID, "👍")
	require.NoError(t, err)
	require.NoError(t, svc.SetRSVP(ctx, bob, event.ID, models.RSVPGoing))
	_, err = svc.PromoteNote(ctx, alice, note.ID, EventInput{})
	require.NoError(t, err)

	content := "hacked"
	checks := map[string]error{}
	_, checks["get note"] = svc.GetNote(ctx, eve, note.ID)
	_, checks["update note"] = svc.UpdateNote(ctx, eve, note.ID, NoteUpdate{Content: &content})
	checks["move note"] = svc.MoveNote(ctx, eve, note.ID, 1, 1)
	_, checks["raise note"] = svc.RaiseNote(ctx, eve, note.ID)
	checks["delete note"] = svc.DeleteNote(ctx, eve, note.ID)
	_, checks["comment note"] = svc.AddComment(ctx, eve, note.ID, "boo")
	_, checks["react note"] = svc.ToggleReaction(ctx, eve, note.ID, "👍")
	_, checks["promote note"] = svc.PromoteNote(ctx, eve, note.ID, EventInput{})
	_, checks["get list"] = svc.GetList(ctx, eve, list.ID)
	_, checks["items"] = svc.Items(ctx, eve, list.ID)
	_, checks["add item"] = svc.AddItem(ctx, eve, list.ID, ItemInput{Text: "spam"})
	checks["done item"] = svc.SetItemDone(ctx, eve, item.ID, true)
	checks["delete item"] = svc.DeleteItem(ctx, eve, item.ID)
	checks["delete list"] = svc.DeleteList(ctx, eve, list.ID)
	_, checks["get document"] = svc.GetDocument(ctx, eve, doc.ID)
	_, checks["update document"] = svc.UpdateDocument(ctx, eve, doc.ID, "x", "y")
	checks["delete document"] = svc.DeleteDocument(ctx, eve, doc.ID)
	_, checks["get event"] = svc.GetEvent(ctx, eve, event.ID)
	_, checks["update event"] = svc.UpdateEvent(ctx, eve, event.ID, EventInput{Title: "x", Range: calendar.Range{StartDate: day, EndDate: day, AllDay: true}})
	checks["rsvp"] = svc.SetRSVP(ctx, eve, event.ID, models.RSVPGoing)
	checks["delete event"] = svc.DeleteEvent(ctx, eve, event.ID)
	_, checks["get post"] = svc.GetPost(ctx, eve, post.ID)
	_, checks["like post"] = svc.ToggleLike(ctx, eve, post.ID)
	_, checks["comment post"] = svc.AddPostComment(ctx, eve, post.ID, "boo")
	checks["delete post"] = svc.DeletePost(ctx, eve, post.ID)
	checks["delete message"] = svc.DeleteMessage(ctx, eve, "", msg.ID)
	_, _, checks["claim item"] = svc.ClaimItem(ctx, eve, gift.ID)
	_, _, checks["unclaim item"] = svc.UnclaimItem(ctx, eve, gift.ID)
	_, _, checks["purchase item"] = svc.PurchaseItem(ctx, eve, gift.ID)
	_, checks["note comments"] = svc.Comments(ctx, eve, note.ID)
	checks["delete comment"] = svc.DeleteComment(ctx, eve, comment.ID)
	_, checks["post comments"] = svc.PostComments(ctx, eve, post.ID)
	checks["delete post comment"] = svc.DeletePostComment(ctx, eve, postComment.ID)
	_, checks["reactions"] = svc.Reactions(ctx, eve, note.ID)
	checks["clear reactions"] = svc.ClearReactions(ctx, eve, note.ID)
	checks["clear rsvp"] = svc.ClearRSVP(ctx, eve, event.ID)
	_, checks["attendees"] = svc.Attendees(ctx, eve, event.ID)
	checks["unlink note"] = svc.UnlinkNoteEvent(ctx, eve, note.ID)

	for name, err := range checks {
		assert.ErrorIs(t, err, ErrNotFound, name)
	}

	// Nothing of the other family leaked or changed.
	got, err := svc.GetNote(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "family secret", got.Content)
	assert.False(t, got.IsDeleted())
	assert.NotNil(t, got.LinkedEventID)

	comments, err := svc.Comments(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	postComments, err := svc.PostComments(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.Len(t, postComments, 1)
	reactions, err := svc.Reactions(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, reactions)
	attendees, err := svc.Attendees(ctx, alice, event.ID)
	require.NoError(t, err)
	assert.Len(t, attendees, 1)
	gifts, err := svc.Items(ctx, bob, wish.ID)
	require.NoError(t, err)
	require.Len(t, gifts, 1)
	assert.Empty(t, gifts[0].ClaimedBy)

	notes, err := svc.ListNotes(ctx, eve, NoteQuery{})
	require.NoError(t, err)
	assert.Empty(t, notes.Notes)

	items, err := svc.Items(ctx, alice, list.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Done)

	view, err := svc.ViewChat(ctx, eve, "")
	require.NoError(t, err)
	assert.Empty(t, view.Messages)

	_, err = svc.GetPost(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, uploadCount(t, env.uploadDir))
}

func TestSoftDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, alice, NoteInput{Content: "gone"})
	require.NoError(t, err)
	list, err := svc.CreateList(ctx, alice, "Old list", models.ListNormal)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(ctx, alice, "Old doc")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, alice, note.ID))
	require.NoError(t, svc.DeleteList(ctx, alice, list.ID))
	require.NoError(t, svc.DeleteDocument(ctx, alice, doc.ID))

	notes, err := svc.ListNotes(ctx, alice, NoteQuery{})
	require.NoError(t, err)
	assert.Empty(t, notes.Notes)
	lists, err := svc.Lists(ctx, alice, "")
	require.NoError(t, err)
	assert.Empty(t, lists)
	docs, err := svc.Documents(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, docs)

	gotNote, err := svc.GetNote(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.NotNil(t, gotNote.DeletedAt)
	gotList, err := svc.GetList(ctx, alice, list.ID)
	require.NoError(t, err)
	assert.NotNil(t, gotList.DeletedAt)
	gotDoc, err := svc.GetDocument(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.NotNil(t, gotDoc.DeletedAt)

	// Deleted rows accept no further changes.
	assert.ErrorIs(t, svc.DeleteNote(ctx, alice, note.ID), ErrNotFound)
	_, err = svc.AddItem(ctx, alice, list.ID, ItemInput{Text: "late"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReactionToggle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, alice, NoteInput{Content: "react to me"})
	require.NoError(t, err)

	for i, want := range []bool{true, false, true} {
		added, err := svc.ToggleReaction(ctx, alice, note.ID, "👍")
		require.NoError(t, err)
		assert.Equal(t, want, added, "toggle %d", i)
	}

	_, err = svc.ToggleReaction(ctx, bob, note.ID, "👍")
	require.NoError(t, err)
	_, err = svc.ToggleReaction(ctx, bob, note.ID, "❤️")
	require.NoError(t, err)

	counts, err := svc.Reactions(ctx, alice, note.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.ReactionCount{Emoji: "👍", Count: 2, Mine: true}, counts[0])
	assert.Equal(t, models.ReactionCount{Emoji: "❤️", Count: 1, Mine: false}, counts[1])

	_, err = svc.ToggleReaction(ctx, alice, note.ID, "🦄")
	assert.True(t, IsValidation(err))

	require.NoError(t, svc.ClearReactions(ctx, alice, note.ID))
	counts, err = svc.Reactions(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestNoteComments(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, alice, NoteInput{Content: "discuss"})
	require.NoError(t, err)

	first, err := svc.AddComment(ctx, bob, note.ID, "first")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, carol, note.ID, "second")
	require.NoError(t, err)

	comments, err := svc.Comments(ctx, alice, note.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Text)

	require.NoError(t, svc.DeleteComment(ctx, alice, first.ID))
	comments, err = svc.Comments(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestWishlistClaims(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, alice, "Birthday", models.ListWishlist)
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, alice, list.ID, ItemInput{Text: "Bike", URL: "https://shop.example/bike.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/bike.jpg", item.ImageURL)

	step := func(fn func(context.Context, models.Identity, int64) (models.ListItem, bool, error), who models.Identity, wantChanged bool) models.ListItem {
		t.Helper()
		got, changed, err := fn(ctx, who, item.ID)
		require.NoError(t, err)
		assert.Equal(t, wantChanged, changed)
		return got
	}

	// The creator never takes part.
	step(svc.ClaimItem, alice, false)

	got := step(svc.ClaimItem, bob, true)
	assert.Equal(t, "Bob", got.ClaimedBy)
	step(svc.ClaimItem, carol, false)
	step(svc.UnclaimItem, carol, false)
	step(svc.PurchaseItem, carol, false)

	got = step(svc.UnclaimItem, bob, true)
	assert.Empty(t, got.ClaimedBy)

	step(svc.ClaimItem, bob, true)
	got = step(svc.PurchaseItem, bob, true)
	assert.Equal(t, "Bob", got.PurchasedBy)

	// Purchased is final.
	step(svc.UnclaimItem, bob, false)
	step(svc.PurchaseItem, bob, false)
	step(svc.ClaimItem, carol, false)

	seen, err := svc.Items(ctx, carol, list.ID)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "Bob", seen[0].ClaimedBy)
	assert.Equal(t, "Bob", seen[0].PurchasedBy)

	hidden, err := svc.Items(ctx, alice, list.ID)
	require.NoError(t, err)
	require.Len(t, hidden, 1)
	assert.Empty(t, hidden[0].ClaimedBy)
	assert.Empty(t, hidden[0].PurchasedBy)

	got = step(svc.ClaimItem, alice, false)
	assert.Empty(t, got.ClaimedBy)
}

func TestNormalListItems(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, alice, "Chores", "")
	require.NoError(t, err)
	assert.Equal(t, models.ListNormal, list.Type)

	item, err := svc.AddItem(ctx, alice, list.ID, ItemInput{Text: "Dishes", URL: "https://ignored.example"})
	require.NoError(t, err)
	assert.Empty(t, item.URL)

	require.NoError(t, svc.SetItemDone(ctx, bob, item.ID, true))
	items, err := svc.Items(ctx, bob, list.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Done)

	_, _, err = svc.ClaimItem(ctx, bob, item.ID)
	assert.True(t, IsValidation(err))

	require.NoError(t, svc.DeleteItem(ctx, alice, item.ID))
	items, err = svc.Items(ctx, bob, list.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAllDayEventRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	day := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)

	event, err := svc.CreateEvent(ctx, alice, EventInput{
		Title: "Picnic",
		Range: calendar.Range{StartDate: day, EndDate: day, AllDay: true},
	})
	require.NoError(t, err)

	stored, err := svc.GetEvent(ctx, alice, event.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartAt.Equal(day))
	require.NotNil(t, stored.EndAt)
	assert.True(t, stored.EndAt.Equal(day.AddDate(0, 0, 1)))

	r, err := svc.EventRange(ctx, alice, event.ID)
	require.NoError(t, err)
	assert.True(t, r.StartDate.Equal(day))
	assert.True(t, r.EndDate.Equal(day))
	assert.True(t, r.AllDay)
}

func TestEventValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	day := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateEvent(ctx, alice, EventInput{
		Title: "Backwards",
		Range: calendar.Range{StartDate: day, EndDate: day.AddDate(0, 0, -1), AllDay: true},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end", verr.Field)

	_, err = svc.CreateEvent(ctx, alice, EventInput{
		Title: "Timed backwards",
		Range: calendar.Range{StartDate: day, EndDate: day, StartTime: 10 * time.Hour, EndTime: 9 * time.Hour},
	})
	require.ErrorAs(t, err, &verr)

	_, err = svc.CreateEvent(ctx, alice, EventInput{Range: calendar.Range{StartDate: day, EndDate: day}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestCalendarView(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, e := range []struct {
		title string
		day   time.Time
		who   []string
	}{
		{"Feb start", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), []string{"Bob"}},
		{"Leap day", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), []string{"Alice"}},
		{"March", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), nil},
	} {
		_, err := svc.CreateEvent(ctx, alice, EventInput{
			Title:     e.title,
			Range:     calendar.Range{StartDate: e.day, EndDate: e.day, AllDay: true},
			Assignees: e.who,
		})
		require.NoError(t, err)
	}

	ref := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	view, err := svc.CalendarView(ctx, alice, calendar.ViewMonth, ref, "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), view.Window.End)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "Feb start", view.Entries[0].Title)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), view.Prev)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), view.Next)

	view, err = svc.CalendarView(ctx, alice, calendar.ViewMonth, ref, "ali")
	require.NoError(t, err)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "Leap day", view.Entries[0].Title)
	assert.Equal(t, view.Entries[0].BorderColor+"80", view.Entries[0].BackgroundColor)
}

func TestRSVPAndAttendees(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	day := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	event, err := svc.CreateEvent(ctx, alice, EventInput{Title: "BBQ", Range: calendar.Range{StartDate: day, EndDate: day, AllDay: true}})
	require.NoError(t, err)

	zed := models.Identity{User: "zed", Family: "smith"}
	amy := models.Identity{User: "Amy", Family: "smith"}
	ben := models.Identity{User: "ben", Family: "smith"}
	cal := models.Identity{User: "Cal", Family: "smith"}

	require.NoError(t, svc.SetRSVP(ctx, zed, event.ID, models.RSVPGoing))
	require.NoError(t, svc.SetRSVP(ctx, amy, event.ID, models.RSVPMaybe))
	require.NoError(t, svc.SetRSVP(ctx, ben, event.ID, models.RSVPCant))
	require.NoError(t, svc.SetRSVP(ctx, cal, event.ID, models.RSVPMaybe))
	// Last answer wins.
	require.NoError(t, svc.SetRSVP(ctx, ben, event.ID, models.RSVPGoing))

	_, _, err = svc.SaveProfile(ctx, ben, ProfileInput{FirstName: "Benjamin", LastName: "Smith"})
	require.NoError(t, err)

	attendees, err := svc.Attendees(ctx, alice, event.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 4)

	var names []string
	for _, a := range attendees {
		names = append(names, a.Username)
	}
	assert.Equal(t, []string{"ben", "zed", "Amy", "Cal"}, names)
	assert.Equal(t, "Benjamin Smith", attendees[0].DisplayName())
	assert.Equal(t, "zed", attendees[1].DisplayName())

	assert.True(t, IsValidation(svc.SetRSVP(ctx, zed, event.ID, "perhaps")))

	require.NoError(t, svc.ClearRSVP(ctx, zed, event.ID))
	attendees, err = svc.Attendees(ctx, alice, event.ID)
	require.NoError(t, err)
	assert.Len(t, attendees, 3)
}

func TestPromoteAndDeleteEvent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	due := time.Date(2024, 9, 2, 15, 0, 0, 0, time.UTC)

	note, err := svc.CreateNote(ctx, alice, NoteInput{Type: models.NoteReminder, Content: "Vet visit\nbring papers", DueAt: &due, Assignee: "Bob"})
	require.NoError(t, err)

	event, err := svc.PromoteNote(ctx, alice, note.ID, EventInput{})
	require.NoError(t, err)
	assert.Equal(t, "Vet visit", event.Title)
	assert.Equal(t, []string{"Bob"}, event.Assignees)
	assert.True(t, event.AllDay)
	assert.True(t, event.StartAt.Equal(time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)))

	linked, err := svc.GetNote(ctx, alice, note.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.LinkedEventID)
	assert.Equal(t, event.ID, *linked.LinkedEventID)

	require.NoError(t, svc.SetRSVP(ctx, bob, event.ID, models.RSVPGoing))
	require.NoError(t, svc.DeleteEvent(ctx, alice, event.ID))

	_, err = svc.GetEvent(ctx, alice, event.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	unlinked, err := svc.GetNote(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Nil(t, unlinked.LinkedEventID)
}

func TestChatFreshness(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, alice, "", "hello")
	require.NoError(t, err)

	view, err := svc.ViewChat(ctx, bob, "")
	require.NoError(t, err)
	assert.True(t, view.Notify)
	require.Len(t, view.NewFromOthers, 1)
	assert.Equal(t, first.ID, view.Latest.ID)
	assert.Equal(t, first.ID, view.Cursor)

	view, err = svc.ViewChat(ctx, bob, "")
	require.NoError(t, err)
	assert.False(t, view.Notify)
	assert.Empty(t, view.NewFromOthers)

	// Own messages never notify, but still advance the cursor.
	own, err := svc.SendMessage(ctx, bob, "general", "hi Alice")
	require.NoError(t, err)
	view, err = svc.ViewChat(ctx, bob, "")
	require.NoError(t, err)
	assert.False(t, view.Notify)
	assert.Equal(t, own.ID, view.Cursor)

	next, err := svc.SendMessage(ctx, alice, "", "dinner at 7")
	require.NoError(t, err)
	view, err = svc.ViewChat(ctx, bob, "")
	require.NoError(t, err)
	assert.True(t, view.Notify)
	require.Len(t, view.NewFromOthers, 1)
	assert.Equal(t, next.ID, view.NewFromOthers[0].ID)

	view, err = svc.ViewChat(ctx, bob, "")
	require.NoError(t, err)
	assert.False(t, view.Notify)

	// Messages are chronological.
	require.Len(t, view.Messages, 3)
	assert.Equal(t, first.ID, view.Messages[0].ID)
	assert.Equal(t, next.ID, view.Messages[2].ID)
}

func TestChatCursorsWithColonNames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c := models.Identity{User: "c", Family: "smith"}
	bc := models.Identity{User: "b:c", Family: "smith"}

	_, err := svc.SendMessage(ctx, bob, "a:b", "first")
	require.NoError(t, err)
	view, err := svc.ViewChat(ctx, c, "a:b")
	require.NoError(t, err)
	assert.True(t, view.Notify)

	latest, err := svc.SendMessage(ctx, bob, "a:b", "second")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, bob, "a", "elsewhere")
	require.NoError(t, err)

	// Reading room "a" as "b:c" leaves c's cursor in "a:b" alone.
	_, err = svc.ViewChat(ctx, bc, "a")
	require.NoError(t, err)

	view, err = svc.ViewChat(ctx, c, "a:b")
	require.NoError(t, err)
	assert.True(t, view.Notify)
	require.Len(t, view.NewFromOthers, 1)
	assert.Equal(t, latest.ID, view.Latest.ID)
}

func TestChatRooms(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rooms, err := svc.Rooms(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"general"}, rooms)

	_, err = svc.SendMessage(ctx, alice, "Planning", "first")
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, alice, "chores")
	require.NoError(t, err)

	rooms, err = svc.Rooms(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"general", "chores", "Planning"}, rooms)

	view, err := svc.ViewChat(ctx, alice, "Planning")
	require.NoError(t, err)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, models.SystemAuthor, view.Messages[0].Author)
	assert.Equal(t, "Room 'Planning' created", view.Messages[0].Text)

	_, err = svc.SendMessage(ctx, alice, "Planning", "second")
	require.NoError(t, err)
	view, err = svc.ViewChat(ctx, alice, "Planning")
	require.NoError(t, err)
	assert.Len(t, view.Messages, 3)
}

func TestDeleteOwnRecentMessages(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var mine []*models.ChatMessage
	for i := 0; i < 11; i++ {
		msg, err := svc.SendMessage(ctx, alice, "", "msg")
		require.NoError(t, err)
		mine = append(mine, msg)
	}
	other, err := svc.SendMessage(ctx, bob, "", "not yours")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteMessage(ctx, alice, "", mine[0].ID), ErrNotFound)
	assert.ErrorIs(t, svc.DeleteMessage(ctx, alice, "", other.ID), ErrNotFound)
	assert.NoError(t, svc.DeleteMessage(ctx, alice, "", mine[10].ID))
	// The window slides once a recent message is gone.
	assert.NoError(t, svc.DeleteMessage(ctx, alice, "", mine[0].ID))
}

func TestFeed(t *testing.T) {
	env := newTestEnv(t, Options{PageSize: 1})
	svc := env.svc
	ctx := context.Background()

	album, err := svc.CreateAlbum(ctx, alice, "Holidays")
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, alice, PostInput{
		Caption: "mixed",
		Files: []media.Upload{
			{Filename: "a.png", Data: pngData},
			{Filename: "b.txt", Data: []byte("not media")},
		},
	})
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, uploadCount(t, env.uploadDir))

	_, err = svc.CreatePost(ctx, alice, PostInput{})
	assert.True(t, IsValidation(err))

	missing := int64(999)
	_, err = svc.CreatePost(ctx, alice, PostInput{Caption: "x", AlbumID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	post, err := svc.CreatePost(ctx, alice, PostInput{
		AlbumID: &album.ID,
		Caption: "beach",
		Files:   []media.Upload{{Filename: "a.png", Data: pngData}, {Filename: "b.png", Data: pngData}},
	})
	require.NoError(t, err)
	require.Len(t, post.Media, 2)
	assert.Equal(t, 2, uploadCount(t, env.uploadDir))

	_, err = svc.CreatePost(ctx, bob, PostInput{Caption: "just words"})
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	_, err = svc.AddPostComment(ctx, carol, post.ID, "nice")
	require.NoError(t, err)

	page, err := svc.ListPosts(ctx, bob, nil, 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "just words", page.Posts[0].Caption)
	assert.True(t, page.HasMore)

	page, err = svc.ListPosts(ctx, bob, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	got := page.Posts[0]
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, 1, got.LikeCount)
	assert.Equal(t, 1, got.CommentCount)
	assert.True(t, got.LikedByMe)
	assert.Len(t, got.Media, 2)
	assert.False(t, page.HasMore)

	inAlbum, err := svc.ListPosts(ctx, alice, &album.ID, 1)
	require.NoError(t, err)
	require.Len(t, inAlbum.Posts, 1)
	assert.False(t, inAlbum.Posts[0].LikedByMe)

	comments, err := svc.PostComments(ctx, alice, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	require.NoError(t, svc.DeletePost(ctx, alice, post.ID))
	_, err = svc.GetPost(ctx, alice, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, uploadCount(t, env.uploadDir))
}

func TestProfileMakesIdentitySticky(t *testing.T) {
	env := newTestEnv(t, Options{})
	svc := env.svc
	ctx := context.Background()

	profile, ref, err := svc.SaveProfile(ctx, models.Identity{User: " Dana ", Family: "lee"}, ProfileInput{
		FirstName: "Dana",
		Avatar:    &media.Upload{Filename: "me.png", Data: pngData},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana", profile.Username)
	assert.Equal(t, "family=lee&user=Dana", ref)
	assert.FileExists(t, profile.AvatarPath)

	id, err := svc.ResolveIdentity(ctx, identity.Input{QueryFamily: "lee"})
	require.NoError(t, err)
	assert.Equal(t, models.Identity{User: "Dana", Family: "lee"}, id)

	// A new avatar replaces the old file.
	updated, _, err := svc.SaveProfile(ctx, id, ProfileInput{
		FirstName: "Dana",
		Avatar:    &media.Upload{Filename: "me2.png", Data: pngData},
	})
	require.NoError(t, err)
	assert.NotEqual(t, profile.AvatarPath, updated.AvatarPath)
	assert.NoFileExists(t, profile.AvatarPath)
	assert.Equal(t, 1, uploadCount(t, env.uploadDir))

	_, _, err = svc.SaveProfile(ctx, id, ProfileInput{Avatar: &media.Upload{Filename: "clip.txt", Data: []byte("text")}})
	assert.True(t, IsValidation(err))
}

func TestFactoryReset(t *testing.T) {
	env := newTestEnv(t, Options{AdminSecret: "s3cret"})
	svc := env.svc
	ctx := context.Background()

	_, err := svc.CreateNote(ctx, alice, NoteInput{Content: "keep?"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, alice, PostInput{Files: []media.Upload{{Filename: "a.png", Data: pngData}}})
	require.NoError(t, err)
	_, _, err = svc.SaveIdentity(ctx, alice)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.FactoryReset(ctx, "wrong", "RESET"), ErrForbidden)
	assert.True(t, IsValidation(svc.FactoryReset(ctx, "s3cret", "reset")))

	notes, err := svc.ListNotes(ctx, alice, NoteQuery{})
	require.NoError(t, err)
	assert.Len(t, notes.Notes, 1)

	require.NoError(t, svc.FactoryReset(ctx, "s3cret", "  RESET "))

	notes, err = svc.ListNotes(ctx, alice, NoteQuery{})
	require.NoError(t, err)
	assert.Empty(t, notes.Notes)
	assert.Equal(t, 0, uploadCount(t, env.uploadDir))

	id, err := svc.ResolveIdentity(ctx, identity.Input{QueryFamily: alice.Family})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultUser, id.User)

	// Counters restart after a purge.
	note, err := svc.CreateNote(ctx, alice, NoteInput{Content: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), note.ID)
	assert.Equal(t, int64(1), note.OrderIndex)
}

func TestFactoryResetDisabled(t *testing.T) {
	svc := newTestService(t)

	assert.False(t, svc.ResetEnabled())
	assert.ErrorIs(t, svc.CheckResetSecret(""), ErrResetDisabled)
	assert.ErrorIs(t, svc.FactoryReset(context.Background(), "", "RESET"), ErrResetDisabled)
}

func TestTelegramBinding(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	family, err := svc.TelegramFamily(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultFamily, family)

	_, err = svc.BindTelegramChat(ctx, 42, "smith", "Alice")
	require.NoError(t, err)
	_, err = svc.BindTelegramChat(ctx, 42, "jones", "Eve")
	require.NoError(t, err)

	family, err = svc.TelegramFamily(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "jones", family)

	_, err = svc.BindTelegramChat(ctx, 42, " ", "Eve")
	assert.True(t, IsValidation(err))
}
