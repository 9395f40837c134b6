package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
)

type listRequest struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

type itemRequest struct {
	Text     string `json:"text"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

type doneRequest struct {
	Done bool `json:"done"`
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleGetLists(c *gin.Context) {
	lists, err := s.svc.Lists(c.Request.Context(), actor(c), models.ListType(c.Query("type")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (s *Server) handleCreateList(c *gin.Context) {
	var req listRequest
	if !bindJSON(c, &req) {
		return
	}
	list, err := s.svc.CreateList(c.Request.Context(), actor(c), req.Title, models.ListType(req.Type))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (s *Server) handleGetList(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.svc.GetList(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleDeleteList(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteList(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetItems(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	items, err := s.svc.Items(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleAddItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req itemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := s.svc.AddItem(c.Request.Context(), actor(c), id, service.ItemInput{
		Text:     req.Text,
		URL:      req.URL,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleSetItemDone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req doneRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.svc.SetItemDone(c.Request.Context(), actor(c), id, req.Done); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteItem(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type itemTransition func(ctx context.Context, id models.Identity, itemID int64) (models.ListItem, bool, error)

// handleTransition answers 200 whether or not the state changed; a refused
// transition is reported through "changed".
func (s *Server) handleTransition(fn itemTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		item, changed, err := fn(c.Request.Context(), actor(c), id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": item, "changed": changed})
	}
}

func (s *Server) handleClaimItem(c *gin.Context) {
	s.handleTransition(s.svc.ClaimItem)(c)
}

func (s *Server) handleUnclaimItem(c *gin.Context) {
	s.handleTransition(s.svc.UnclaimItem)(c)
}

func (s *Server) handlePurchaseItem(c *gin.Context) {
	s.handleTransition(s.svc.PurchaseItem)(c)
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

func (s *Server) handleGetDocuments(c *gin.Context) {
	docs, err := s.svc.Documents(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(c *gin.Context) {
	var req documentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := s.svc.CreateDocument(c.Request.Context(), actor(c), req.Title)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	doc, err := s.svc.GetDocument(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleUpdateDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req documentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := s.svc.UpdateDocument(c.Request.Context(), actor(c), id, req.Title, req.Content)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteDocument(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
