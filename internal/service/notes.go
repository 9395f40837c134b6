package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/calendar"
	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/preview"
	"github.com/Kerhoff/hive/internal/repository"
)

const (
	// DefaultNoteColor is the yellow preset
	DefaultNoteColor = "#FFF176"
	defaultNoteX     = 40
	defaultNoteY     = 40
	commentLimit     = 50
)

// NoteInput holds the fields of a new note
type NoteInput struct {
	Type     models.NoteType
	Content  string
	Color    string
	Assignee string
	Tags     []string
	DueAt    *time.Time
}

// NoteUpdate changes only the fields that are set
type NoteUpdate struct {
	Content  *string
	Color    *string
	Assignee *string
	Tags     *[]string
	DueAt    *time.Time
	ClearDue bool
}

// NoteQuery filters and pages a note listing
type NoteQuery struct {
	Query    string
	Assignee string
	Tags     string
	Due      models.DueFilter
	Page     int
}

// NotePage is one page of notes
type NotePage struct {
	Notes    []*models.Note `json:"notes"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int            `json:"total"`
	HasMore  bool           `json:"has_more"`
}

// CreateNote adds a text, link or reminder note on top of the board.
// Photo notes go through CreatePhotoNote.
func (s *Service) CreateNote(ctx context.Context, id models.Identity, in NoteInput) (*models.Note, error) {
	if in.Type == "" {
		in.Type = models.NoteText
	}
	if !in.Type.Valid() || in.Type == models.NotePhoto {
		return nil, invalid("type", fmt.Sprintf("unsupported note type %q", in.Type))
	}

	content, err := requireText("content", in.Content)
	if err != nil {
		return nil, err
	}
	if in.Type == models.NoteLink && !preview.IsWebURL(content) {
		return nil, invalid("content", "enter a valid link (http/https)")
	}

	return s.insertNote(ctx, id, in, content)
}

// CreatePhotoNote stores an image and pins it as a note
func (s *Service) CreatePhotoNote(ctx context.Context, id models.Identity, upload media.Upload, in NoteInput) (*models.Note, error) {
	classification, err := s.media.Validate(upload, true)
	if err != nil {
		return nil, invalid("photo", err.Error())
	}

	stored, err := s.media.Save(ctx, upload, classification)
	if err != nil {
		return nil, err
	}

	in.Type = models.NotePhoto
	note, err := s.insertNote(ctx, id, in, stored.Path)
	if err != nil {
		s.media.Remove(stored.Path, stored.ThumbPath)
		return nil, err
	}
	return note, nil
}

func (s *Service) insertNote(ctx context.Context, id models.Identity, in NoteInput, content string) (*models.Note, error) {
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = DefaultNoteColor
	}

	note := &models.Note{
		Family:   id.Family,
		Content:  content,
		Color:    color,
		X:        defaultNoteX,
		Y:        defaultNoteY,
		Type:     in.Type,
		Assignee: strings.TrimSpace(in.Assignee),
		Tags:     models.SplitList(strings.Join(in.Tags, ",")),
		DueAt:    utcPtr(in.DueAt),
	}

	note, err := s.store.Notes().Create(ctx, note)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"note":   note.ID,
		"type":   note.Type,
	}).Info("Created note")

	return note, nil
}

// GetNote returns a note of the family, including soft-deleted ones
func (s *Service) GetNote(ctx context.Context, id models.Identity, noteID int64) (*models.Note, error) {
	note, err := s.store.Notes().GetByID(ctx, id.Family, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, notFound("note", noteID)
	}
	return note, nil
}

// ListNotes returns alive notes, most recently raised first. The due filter
// runs before paging so every page is full.
func (s *Service) ListNotes(ctx context.Context, id models.Identity, q NoteQuery) (*NotePage, error) {
	notes, err := s.store.Notes().List(ctx, id.Family, repository.NoteFilters{
		Query:    strings.TrimSpace(q.Query),
		Assignee: strings.TrimSpace(q.Assignee),
		Tags:     strings.TrimSpace(q.Tags),
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	filtered := notes[:0]
	for _, note := range notes {
		if q.Due.Matches(note, now) {
			filtered = append(filtered, note)
		}
	}

	page := clampPage(q.Page)
	start := len(filtered)
	if page-1 <= len(filtered)/s.pageSize {
		start = min((page-1)*s.pageSize, len(filtered))
	}
	end := min(start+s.pageSize, len(filtered))

	return &NotePage{
		Notes:    filtered[start:end],
		Page:     page,
		PageSize: s.pageSize,
		Total:    len(filtered),
		HasMore:  end < len(filtered),
	}, nil
}

// UpdateNote edits content and metadata. Position and order are untouched.
func (s *Service) UpdateNote(ctx context.Context, id models.Identity, noteID int64, upd NoteUpdate) (*models.Note, error) {
	note, err := s.aliveNote(ctx, id, noteID)
	if err != nil {
		return nil, err
	}

	if upd.Content != nil {
		content, err := requireText("content", *upd.Content)
		if err != nil {
			return nil, err
		}
		if note.Type == models.NotePhoto {
			return nil, invalid("content", "photo notes cannot be edited")
		}
		if note.Type == models.NoteLink && !preview.IsWebURL(content) {
			return nil, invalid("content", "enter a valid link (http/https)")
		}
		note.Content = content
	}
	if upd.Color != nil {
		if color := strings.TrimSpace(*upd.Color); color != "" {
			note.Color = color
		}
	}
	if upd.Assignee != nil {
		note.Assignee = strings.TrimSpace(*upd.Assignee)
	}
	if upd.Tags != nil {
		note.Tags = models.SplitList(strings.Join(*upd.Tags, ","))
	}
	switch {
	case upd.ClearDue:
		note.DueAt = nil
	case upd.DueAt != nil:
		note.DueAt = utcPtr(upd.DueAt)
	}

	if err := s.store.Notes().Update(ctx, note); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"note":   note.ID,
	}).Info("Updated note")

	return note, nil
}

// MoveNote changes only the board position
func (s *Service) MoveNote(ctx context.Context, id models.Identity, noteID int64, x, y float64) error {
	return s.store.Notes().Move(ctx, id.Family, noteID, x, y)
}

// RaiseNote brings a note to the top of the listing
func (s *Service) RaiseNote(ctx context.Context, id models.Identity, noteID int64) (int64, error) {
	return s.store.Notes().Raise(ctx, id.Family, noteID)
}

// DeleteNote soft-deletes the note
func (s *Service) DeleteNote(ctx context.Context, id models.Identity, noteID int64) error {
	if err := s.store.Notes().SoftDelete(ctx, id.Family, noteID, s.now()); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"note":   noteID,
	}).Info("Deleted note")
	return nil
}

// PromoteNote creates an event from a note and links the two, atomically
func (s *Service) PromoteNote(ctx context.Context, id models.Identity, noteID int64, in EventInput) (*models.Event, error) {
	note, err := s.aliveNote(ctx, id, noteID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Title) == "" {
		in.Title = noteTitle(note)
	}
	if len(in.Assignees) == 0 && note.Assignee != "" {
		in.Assignees = []string{note.Assignee}
	}
	if in.Range.StartDate.IsZero() {
		start := s.now()
		if note.DueAt != nil {
			start = *note.DueAt
		}
		in.Range = calendar.Range{StartDate: start, EndDate: start, AllDay: true}
	}

	event, err := s.buildEvent(id, in)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Events().Create(ctx, event); err != nil {
			return err
		}
		return tx.Notes().SetLinkedEvent(ctx, id.Family, noteID, &event.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"note":   noteID,
		"event":  event.ID,
	}).Info("Promoted note to event")

	return event, nil
}

// UnlinkNoteEvent drops the note's reference to its event
func (s *Service) UnlinkNoteEvent(ctx context.Context, id models.Identity, noteID int64) error {
	return s.store.Notes().SetLinkedEvent(ctx, id.Family, noteID, nil)
}

// AddComment comments on an alive note
func (s *Service) AddComment(ctx context.Context, id models.Identity, noteID int64, text string) (*models.Comment, error) {
	text, err := requireText("text", text)
	if err != nil {
		return nil, err
	}

	return s.store.Comments().Create(ctx, id.Family, &models.Comment{
		NoteID:    noteID,
		Author:    id.User,
		Text:      text,
		CreatedAt: s.now(),
	})
}

// Comments returns the newest comments of a note
func (s *Service) Comments(ctx context.Context, id models.Identity, noteID int64) ([]*models.Comment, error) {
	if _, err := s.GetNote(ctx, id, noteID); err != nil {
		return nil, err
	}
	return s.store.Comments().ListByNote(ctx, id.Family, noteID, commentLimit)
}

func (s *Service) DeleteComment(ctx context.Context, id models.Identity, commentID int64) error {
	return s.store.Comments().Delete(ctx, id.Family, commentID)
}

// ToggleReaction adds or removes the viewer's emoji and reports whether it
// is now present.
func (s *Service) ToggleReaction(ctx context.Context, id models.Identity, noteID int64, emoji string) (bool, error) {
	emoji = strings.TrimSpace(emoji)
	if !models.IsReactionEmoji(emoji) {
		return false, invalid("emoji", "unsupported reaction")
	}

	var added bool
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		added, err = tx.Reactions().Toggle(ctx, id.Family, noteID, emoji, id.User, s.now())
		return err
	})
	return added, err
}

// Reactions returns per-emoji counts for a note
func (s *Service) Reactions(ctx context.Context, id models.Identity, noteID int64) ([]models.ReactionCount, error) {
	if _, err := s.GetNote(ctx, id, noteID); err != nil {
		return nil, err
	}
	return s.store.Reactions().Counts(ctx, id.Family, noteID, id.User)
}

// ClearReactions removes every reaction from a note
func (s *Service) ClearReactions(ctx context.Context, id models.Identity, noteID int64) error {
	if _, err := s.aliveNote(ctx, id, noteID); err != nil {
		return err
	}
	return s.store.Reactions().Clear(ctx, id.Family, noteID)
}

func (s *Service) aliveNote(ctx context.Context, id models.Identity, noteID int64) (*models.Note, error) {
	note, err := s.GetNote(ctx, id, noteID)
	if err != nil {
		return nil, err
	}
	if note.IsDeleted() {
		return nil, notFound("note", noteID)
	}
	return note, nil
}

func noteTitle(note *models.Note) string {
	title := strings.TrimSpace(strings.SplitN(note.Content, "\n", 2)[0])
	if note.Type == models.NotePhoto || title == "" {
		return "Note #" + fmt.Sprint(note.ID)
	}
	if r := []rune(title); len(r) > 80 {
		title = string(r[:80])
	}
	return title
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
