package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/config"
	"github.com/Kerhoff/hive/internal/metrics"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/pkg/logger"
)

// Server provides the HTTP API and serves uploaded media.
type Server struct {
	svc       *service.Service
	sessions  sessions.Store
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	uploadDir string
	engine    *gin.Engine
}

// NewServer creates a Server, registers all routes, and returns it. m may
// be nil, in which case /metrics is not served.
func NewServer(svc *service.Service, store sessions.Store, m *metrics.Metrics, uploadDir string, logger *logrus.Logger) *Server {
	s := &Server{
		svc:       svc,
		sessions:  store,
		metrics:   m,
		logger:    logger,
		uploadDir: uploadDir,
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	s.engine.Static("/uploads", s.uploadDir)

	// Admin routes act on the whole store, not on one family.
	admin := s.engine.Group("/api/admin")
	admin.GET("/reset", s.handleResetStatus)
	admin.POST("/reset", s.handleReset)

	api := s.engine.Group("/api", s.identityMiddleware())

	// API – Identity & profile
	api.GET("/identity", s.handleGetIdentity)
	api.POST("/identity", s.handleSaveIdentity)
	api.GET("/profile", s.handleGetProfile)
	api.POST("/profile", s.handleSaveProfile)

	// API – Corkboard notes
	api.GET("/notes", s.handleListNotes)
	api.POST("/notes", s.handleCreateNote)
	api.POST("/notes/photo", s.handleCreatePhotoNote)
	api.GET("/notes/:id", s.handleGetNote)
	api.PATCH("/notes/:id", s.handleUpdateNote)
	api.PUT("/notes/:id/position", s.handleMoveNote)
	api.POST("/notes/:id/raise", s.handleRaiseNote)
	api.DELETE("/notes/:id", s.handleDeleteNote)
	api.POST("/notes/:id/event", s.handlePromoteNote)
	api.DELETE("/notes/:id/event", s.handleUnlinkNoteEvent)
	api.GET("/notes/:id/comments", s.handleGetComments)
	api.POST("/notes/:id/comments", s.handleAddComment)
	api.DELETE("/comments/:id", s.handleDeleteComment)
	api.GET("/notes/:id/reactions", s.handleGetReactions)
	api.POST("/notes/:id/reactions", s.handleToggleReaction)
	api.DELETE("/notes/:id/reactions", s.handleClearReactions)

	// API – Lists & wishlists
	api.GET("/lists", s.handleGetLists)
	api.POST("/lists", s.handleCreateList)
	api.GET("/lists/:id", s.handleGetList)
	api.DELETE("/lists/:id", s.handleDeleteList)
	api.GET("/lists/:id/items", s.handleGetItems)
	api.POST("/lists/:id/items", s.handleAddItem)
	api.PUT("/items/:id/done", s.handleSetItemDone)
	api.DELETE("/items/:id", s.handleDeleteItem)
	api.POST("/items/:id/claim", s.handleClaimItem)
	api.POST("/items/:id/unclaim", s.handleUnclaimItem)
	api.POST("/items/:id/purchase", s.handlePurchaseItem)

	// API – Documents
	api.GET("/documents", s.handleGetDocuments)
	api.POST("/documents", s.handleCreateDocument)
	api.GET("/documents/:id", s.handleGetDocument)
	api.PUT("/documents/:id", s.handleUpdateDocument)
	api.DELETE("/documents/:id", s.handleDeleteDocument)

	// API – Calendar
	api.GET("/calendar", s.handleCalendarView)
	api.POST("/events", s.handleCreateEvent)
	api.GET("/events/:id", s.handleGetEvent)
	api.PUT("/events/:id", s.handleUpdateEvent)
	api.DELETE("/events/:id", s.handleDeleteEvent)
	api.PUT("/events/:id/rsvp", s.handleSetRSVP)
	api.DELETE("/events/:id/rsvp", s.handleClearRSVP)
	api.GET("/events/:id/attendees", s.handleGetAttendees)

	// API – Feed
	api.GET("/albums", s.handleGetAlbums)
	api.POST("/albums", s.handleCreateAlbum)
	api.GET("/posts", s.handleListPosts)
	api.POST("/posts", s.handleCreatePost)
	api.GET("/posts/:id", s.handleGetPost)
	api.DELETE("/posts/:id", s.handleDeletePost)
	api.POST("/posts/:id/like", s.handleToggleLike)
	api.GET("/posts/:id/comments", s.handleGetPostComments)
	api.POST("/posts/:id/comments", s.handleAddPostComment)
	api.DELETE("/post-comments/:id", s.handleDeletePostComment)

	// API – Chat
	api.GET("/chat/rooms", s.handleGetRooms)
	api.POST("/chat/rooms", s.handleCreateRoom)
	api.GET("/chat/rooms/:room", s.handleViewChat)
	api.POST("/chat/rooms/:room/messages", s.handleSendMessage)
	api.DELETE("/chat/rooms/:room/messages/:id", s.handleDeleteMessage)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.ObserveRequest(c.Request.Method, route, status)

		entry := logger.WithFields(s.logger, logrus.Fields{
			"method":   c.Request.Method,
			"route":    route,
			"status":   status,
			"duration": time.Since(start),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	}
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

// respondError maps service errors onto status codes. Unknown errors are
// logged and reported without detail.
func (s *Server) respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrResetDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case config.IsBusy(err):
		s.metrics.StoreBusy()
		s.logger.WithError(err).Warn("Store busy")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store is busy, try again", "retryable": true})
	default:
		s.logger.WithError(err).WithField("route", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// bindJSON decodes the request body into dst. The caller should return
// immediately when ok == false.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// pathID extracts the :id path value and converts it to int64.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryPage reads the page query parameter, defaulting to 1.
func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return min(page, service.MaxPage)
}

// formOverhead is the room left for non-file form fields and multipart
// framing on top of the file size limit.
const formOverhead = 1 << 20

// limitUpload caps the request body at files uploads of the configured
// maximum size.
func (s *Server) limitUpload(c *gin.Context, files int) {
	limit := s.svc.MaxUploadBytes()
	if limit <= 0 {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(files)*limit+formOverhead)
}

// formError answers a failed multipart read. A body over the upload limit
// is a 413, anything else a 400 with message.
func formError(c *gin.Context, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload is too large"})
		return
	}
	badRequest(c, message)
}
