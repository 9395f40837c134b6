package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
)

type noteRequest struct {
	Type     string     `json:"type"`
	Content  string     `json:"content"`
	Color    string     `json:"color"`
	Assignee string     `json:"assignee"`
	Tags     []string   `json:"tags"`
	DueAt    *time.Time `json:"due_at"`
}

type noteUpdateRequest struct {
	Content  *string    `json:"content"`
	Color    *string    `json:"color"`
	Assignee *string    `json:"assignee"`
	Tags     *[]string  `json:"tags"`
	DueAt    *time.Time `json:"due_at"`
	ClearDue bool       `json:"clear_due"`
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type textRequest struct {
	Text string `json:"text"`
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

func (s *Server) handleListNotes(c *gin.Context) {
	page, err := s.svc.ListNotes(c.Request.Context(), actor(c), service.NoteQuery{
		Query:    c.Query("q"),
		Assignee: c.Query("assignee"),
		Tags:     c.Query("tags"),
		Due:      models.ParseDueFilter(c.Query("due")),
		Page:     queryPage(c),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleCreateNote(c *gin.Context) {
	var req noteRequest
	if !bindJSON(c, &req) {
		return
	}

	note, err := s.svc.CreateNote(c.Request.Context(), actor(c), service.NoteInput{
		Type:     models.NoteType(req.Type),
		Content:  req.Content,
		Color:    req.Color,
		Assignee: req.Assignee,
		Tags:     req.Tags,
		DueAt:    req.DueAt,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) handleCreatePhotoNote(c *gin.Context) {
	s.limitUpload(c, 1)
	fh, err := c.FormFile("photo")
	if err != nil {
		formError(c, err, "photo file is required")
		return
	}
	upload, err := readUpload(fh, s.svc.MaxUploadBytes())
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	in := service.NoteInput{
		Color:    c.PostForm("color"),
		Assignee: c.PostForm("assignee"),
		Tags:     models.SplitList(c.PostForm("tags")),
	}
	if raw := strings.TrimSpace(c.PostForm("due_at")); raw != "" {
		due, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "due_at must be an RFC 3339 timestamp")
			return
		}
		in.DueAt = &due
	}

	note, err := s.svc.CreatePhotoNote(c.Request.Context(), actor(c), upload, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) handleGetNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	note, err := s.svc.GetNote(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleUpdateNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req noteUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	note, err := s.svc.UpdateNote(c.Request.Context(), actor(c), id, service.NoteUpdate{
		Content:  req.Content,
		Color:    req.Color,
		Assignee: req.Assignee,
		Tags:     req.Tags,
		DueAt:    req.DueAt,
		ClearDue: req.ClearDue,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleMoveNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req positionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.svc.MoveNote(c.Request.Context(), actor(c), id, req.X, req.Y); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRaiseNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := s.svc.RaiseNote(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_index": order})
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteNote(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePromoteNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	// An empty body takes every default from the note.
	var req eventRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	event, err := s.svc.PromoteNote(c.Request.Context(), actor(c), id, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (s *Server) handleUnlinkNoteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.UnlinkNoteEvent(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Comments & reactions
// ---------------------------------------------------------------------------

func (s *Server) handleGetComments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	comments, err := s.svc.Comments(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (s *Server) handleAddComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req textRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := s.svc.AddComment(c.Request.Context(), actor(c), id, req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteComment(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetReactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	counts, err := s.svc.Reactions(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) handleToggleReaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reactionRequest
	if !bindJSON(c, &req) {
		return
	}
	added, err := s.svc.ToggleReaction(c.Request.Context(), actor(c), id, req.Emoji)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (s *Server) handleClearReactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.ClearReactions(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
