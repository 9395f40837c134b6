package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type roomRequest struct {
	Room string `json:"room"`
}

func (s *Server) handleGetRooms(c *gin.Context) {
	rooms, err := s.svc.Rooms(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req roomRequest
	if !bindJSON(c, &req) {
		return
	}
	room, err := s.svc.CreateRoom(c.Request.Context(), actor(c), req.Room)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// handleViewChat returns the room window and advances the viewer's cursor,
// so a second call reports nothing new.
func (s *Server) handleViewChat(c *gin.Context) {
	view, err := s.svc.ViewChat(c.Request.Context(), actor(c), c.Param("room"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req textRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := s.svc.SendMessage(c.Request.Context(), actor(c), c.Param("room"), req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) handleDeleteMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteMessage(c.Request.Context(), actor(c), c.Param("room"), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
