package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const adminSecretHeader = "X-Admin-Secret"

type resetRequest struct {
	Secret  string `json:"secret"`
	Confirm string `json:"confirm"`
}

// handleResetStatus checks the secret without touching any data. It is
// the first of the two reset steps.
func (s *Server) handleResetStatus(c *gin.Context) {
	if err := s.svc.CheckResetSecret(c.GetHeader(adminSecretHeader)); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlocked": true})
}

func (s *Server) handleReset(c *gin.Context) {
	var req resetRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.svc.FactoryReset(c.Request.Context(), req.Secret, req.Confirm); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithField("client", c.ClientIP()).Info("Factory reset served")
	c.JSON(http.StatusOK, gin.H{"reset": true})
}
