package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/hive/internal/config"
	"github.com/Kerhoff/hive/internal/identity"
	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/metrics"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/preview"
	"github.com/Kerhoff/hive/internal/repository/sqlite"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/pkg/logger"
)

const (
	asAlice = "user=Alice&family=smith"
	asBob   = "user=Bob&family=smith"
	asEve   = "user=Eve&family=jones"
)

var pngData = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

func newTestServer(t *testing.T, opts service.Options) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	m, err := metrics.New()
	require.NoError(t, err)

	svc := service.New(store, identity.NewResolver(store.Settings(), log), processor, preview.NoopFetcher{}, m, log, opts)
	return NewServer(svc, NewSessionStore("test-secret"), m, uploadDir, log)
}

func do(t *testing.T, s *Server, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, service.Options{})

	rec := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hive_http_requests_total{method="GET",route="/healthz",status_code="200"} 1`)
}

func TestIdentityResolution(t *testing.T) {
	s := newTestServer(t, service.Options{})

	var got struct {
		Identity models.Identity `json:"identity"`
		Ref      string          `json:"ref"`
	}

	rec := do(t, s, http.MethodGet, "/api/identity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, models.Identity{User: models.DefaultUser, Family: models.DefaultFamily}, got.Identity)

	rec = do(t, s, http.MethodPost, "/api/identity", identityRequest{User: " Alice ", Family: "smith"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, "Alice", got.Identity.User)
	assert.Equal(t, "family=smith&user=Alice", got.Ref)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	// The session outranks the query.
	rec = do(t, s, http.MethodGet, "/api/identity?user=Mallory&family=jones", nil, cookies...)
	decode(t, rec, &got)
	assert.Equal(t, models.Identity{User: "Alice", Family: "smith"}, got.Identity)

	// Without a session the family's last active user is picked.
	rec = do(t, s, http.MethodGet, "/api/identity?family=smith", nil)
	decode(t, rec, &got)
	assert.Equal(t, "Alice", got.Identity.User)
}

func TestNoteEndpoints(t *testing.T) {
	s := newTestServer(t, service.Options{})

	rec := do(t, s, http.MethodPost, "/api/notes?"+asAlice, noteRequest{Content: "Buy milk", Tags: []string{"home"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var note models.Note
	decode(t, rec, &note)
	assert.Equal(t, "smith", note.Family)

	rec = do(t, s, http.MethodGet, "/api/notes?tags=home&"+asBob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.NotePage
	decode(t, rec, &page)
	require.Len(t, page.Notes, 1)
	assert.Equal(t, note.ID, page.Notes[0].ID)

	target := fmt.Sprintf("/api/notes/%d", note.ID)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, target+"?"+asEve, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, target+"?"+asEve, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/notes/abc?"+asAlice, nil).Code)

	rec = do(t, s, http.MethodPost, "/api/notes?"+asAlice, noteRequest{Type: "poem", Content: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var verr map[string]any
	decode(t, rec, &verr)
	assert.Equal(t, "type", verr["field"])

	content := "Buy oat milk"
	rec = do(t, s, http.MethodPatch, target+"?"+asAlice, noteUpdateRequest{Content: &content})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &note)
	assert.Equal(t, content, note.Content)

	rec = do(t, s, http.MethodPut, target+"/position?"+asAlice, positionRequest{X: 120, Y: 80})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodPost, target+"/reactions?"+asBob, reactionRequest{Emoji: "👍"})
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled map[string]bool
	decode(t, rec, &toggled)
	assert.True(t, toggled["added"])

	rec = do(t, s, http.MethodPost, target+"/event?"+asAlice, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event models.Event
	decode(t, rec, &event)
	assert.Equal(t, "Buy oat milk", event.Title)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, target+"?"+asAlice, nil).Code)
	rec = do(t, s, http.MethodGet, "/api/notes?"+asAlice, nil)
	decode(t, rec, &page)
	assert.Empty(t, page.Notes)
}

func TestPhotoNoteUpload(t *testing.T) {
	s := newTestServer(t, service.Options{})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("photo", "fridge.png")
	require.NoError(t, err)
	_, err = part.Write(pngData)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("tags", "kitchen, home"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/notes/photo?"+asAlice, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var note models.Note
	decode(t, rec, &note)
	assert.Equal(t, models.NotePhoto, note.Type)
	assert.Equal(t, []string{"kitchen", "home"}, note.Tags)

	rec = do(t, s, http.MethodPost, "/api/notes/photo?"+asAlice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWishlistEndpoints(t *testing.T) {
	s := newTestServer(t, service.Options{})

	rec := do(t, s, http.MethodPost, "/api/lists?"+asAlice, listRequest{Title: "Birthday", Type: "wishlist"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var list models.List
	decode(t, rec, &list)

	rec = do(t, s, http.MethodPost, fmt.Sprintf("/api/lists/%d/items?%s", list.ID, asAlice), itemRequest{Text: "Bike"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var item models.ListItem
	decode(t, rec, &item)

	var result struct {
		Item    models.ListItem `json:"item"`
		Changed bool            `json:"changed"`
	}
	claim := fmt.Sprintf("/api/items/%d/claim?", item.ID)

	rec = do(t, s, http.MethodPost, claim+asBob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.True(t, result.Changed)
	assert.Equal(t, "Bob", result.Item.ClaimedBy)

	rec = do(t, s, http.MethodPost, claim+"user=Carol&family=smith", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.False(t, result.Changed)

	// The list creator never sees who claimed.
	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/lists/%d/items?%s", list.ID, asAlice), nil)
	var items []models.ListItem
	decode(t, rec, &items)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].ClaimedBy)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, claim+asEve, nil).Code)
}

func TestEventEndpoints(t *testing.T) {
	s := newTestServer(t, service.Options{})

	rec := do(t, s, http.MethodPost, "/api/events?"+asAlice, eventRequest{
		Title:     "Camping",
		StartDate: "2024-07-05",
		EndDate:   "2024-07-07",
		AllDay:    true,
		Assignees: []string{"Alice", "Bob"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event models.Event
	decode(t, rec, &event)

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/events/%d?%s", event.ID, asAlice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Range struct {
			EndDate time.Time `json:"end_date"`
			AllDay  bool      `json:"all_day"`
		} `json:"range"`
	}
	decode(t, rec, &got)
	assert.True(t, got.Range.AllDay)
	assert.Equal(t, "2024-07-07", got.Range.EndDate.Format(dateLayout))

	rec = do(t, s, http.MethodGet, "/api/calendar?view=week&date=2024-07-03&"+asBob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Entries []json.RawMessage `json:"entries"`
	}
	decode(t, rec, &view)
	assert.Len(t, view.Entries, 1)

	rec = do(t, s, http.MethodPost, "/api/events?"+asAlice, eventRequest{
		Title:     "Backwards",
		StartDate: "2024-07-05",
		EndDate:   "2024-07-04",
		AllDay:    true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/events?"+asAlice, eventRequest{Title: "Bad", StartDate: "05/07/2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rsvp := fmt.Sprintf("/api/events/%d/rsvp?%s", event.ID, asBob)
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPut, rsvp, rsvpRequest{Status: "going"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, rsvp, rsvpRequest{Status: "perhaps"}).Code)
}

func TestChatEndpoints(t *testing.T) {
	s := newTestServer(t, service.Options{})

	rec := do(t, s, http.MethodPost, "/api/chat/rooms/general/messages?"+asBob, textRequest{Text: "Dinner at 7"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view models.ChatView
	rec = do(t, s, http.MethodGet, "/api/chat/rooms/general?"+asAlice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	assert.True(t, view.Notify)
	require.NotNil(t, view.Latest)
	assert.Equal(t, "Dinner at 7", view.Latest.Text)

	rec = do(t, s, http.MethodGet, "/api/chat/rooms/general?"+asAlice, nil)
	decode(t, rec, &view)
	assert.False(t, view.Notify)
}

func TestResetEndpoints(t *testing.T) {
	disabled := newTestServer(t, service.Options{})
	assert.Equal(t, http.StatusForbidden, do(t, disabled, http.MethodGet, "/api/admin/reset", nil).Code)

	s := newTestServer(t, service.Options{AdminSecret: "s3cret"})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reset", nil)
	req.Header.Set(adminSecretHeader, "nope")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/reset", nil)
	req.Header.Set(adminSecretHeader, "s3cret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	do(t, s, http.MethodPost, "/api/notes?"+asAlice, noteRequest{Content: "gone soon"})

	rec = do(t, s, http.MethodPost, "/api/admin/reset", resetRequest{Secret: "s3cret", Confirm: "yes"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/admin/reset", resetRequest{Secret: "s3cret", Confirm: "RESET"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page service.NotePage
	decode(t, do(t, s, http.MethodGet, "/api/notes?"+asAlice, nil), &page)
	assert.Empty(t, page.Notes)
}

func TestRespondErrorMapsBusyStore(t *testing.T) {
	s := newTestServer(t, service.Options{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	s.respondError(c, fmt.Errorf("failed to create note: %w", sqlite3.Error{Code: sqlite3.ErrBusy}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, true, body["retryable"])
}

func postFile(t *testing.T, s *Server, target, field, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestOversizedUploadsAreRejected(t *testing.T) {
	s := newTestServer(t, service.Options{})

	// Over the per-file limit but within the body allowance.
	over := append(append([]byte{}, pngData...), bytes.Repeat([]byte{0}, 1<<20)...)
	rec := postFile(t, s, "/api/notes/photo?"+asAlice, "photo", "big.png", over)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")

	// Over the whole body allowance.
	huge := bytes.Repeat([]byte{0}, 3<<20)
	rec = postFile(t, s, "/api/notes/photo?"+asAlice, "photo", "huge.png", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = postFile(t, s, "/api/posts?"+asAlice, "files", "huge.png", bytes.Repeat([]byte{0}, 14<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var page service.PostPage
	decode(t, do(t, s, http.MethodGet, "/api/posts?"+asAlice, nil), &page)
	assert.Empty(t, page.Posts)

	var notes service.NotePage
	decode(t, do(t, s, http.MethodGet, "/api/notes?"+asAlice, nil), &notes)
	assert.Empty(t, notes.Notes)
}

func TestHugePageNumber(t *testing.T) {
	s := newTestServer(t, service.Options{})

	rec := do(t, s, http.MethodPost, "/api/notes?"+asAlice, noteRequest{Content: "milk"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/notes?page=%d&%s", math.MaxInt64, asAlice), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page service.NotePage
	decode(t, rec, &page)
	assert.Empty(t, page.Notes)
	assert.Equal(t, service.MaxPage, page.Page)

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/posts?page=%d&%s", math.MaxInt64, asAlice), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
