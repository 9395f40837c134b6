package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kerhoff/hive/internal/service"
)

type albumRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleGetAlbums(c *gin.Context) {
	albums, err := s.svc.Albums(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}

func (s *Server) handleCreateAlbum(c *gin.Context) {
	var req albumRequest
	if !bindJSON(c, &req) {
		return
	}
	album, err := s.svc.CreateAlbum(c.Request.Context(), actor(c), req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, album)
}

func (s *Server) handleListPosts(c *gin.Context) {
	albumID, ok := optionalID(c, c.Query("album"))
	if !ok {
		return
	}
	page, err := s.svc.ListPosts(c.Request.Context(), actor(c), albumID, queryPage(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// handleCreatePost takes a multipart form with album_id, caption and any
// number of "files" parts.
func (s *Server) handleCreatePost(c *gin.Context) {
	s.limitUpload(c, service.MaxPostFiles)
	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		formError(c, err, "invalid multipart form")
		return
	}

	albumID, ok := optionalID(c, c.PostForm("album_id"))
	if !ok {
		return
	}
	in := service.PostInput{AlbumID: albumID, Caption: c.PostForm("caption")}

	if form != nil {
		for _, fh := range form.File["files"] {
			upload, err := readUpload(fh, s.svc.MaxUploadBytes())
			if err != nil {
				badRequest(c, err.Error())
				return
			}
			in.Files = append(in.Files, upload)
		}
	}

	post, err := s.svc.CreatePost(c.Request.Context(), actor(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleGetPost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := s.svc.GetPost(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) handleDeletePost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeletePost(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleToggleLike(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	liked, err := s.svc.ToggleLike(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (s *Server) handleGetPostComments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	comments, err := s.svc.PostComments(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (s *Server) handleAddPostComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req textRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := s.svc.AddPostComment(c.Request.Context(), actor(c), id, req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) handleDeletePostComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeletePostComment(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// optionalID parses an optional id value; empty means absent.
func optionalID(c *gin.Context, raw string) (*int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "album must be a positive integer")
		return nil, false
	}
	return &id, true
}
