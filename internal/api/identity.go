package api

import (
	"crypto/sha256"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/Kerhoff/hive/internal/identity"
	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
)

const (
	sessionName = "hive"
	identityKey = "identity"
)

// NewSessionStore builds the cookie store holding the acting identity. The
// secret is hashed into the cookie key.
func NewSessionStore(secret string) sessions.Store {
	store := sessions.NewCookieStore(sessionKey(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// sessionKey derives a 32 byte key from secret. Without a secret the key
// is random and sessions end with the process.
func sessionKey(secret string) []byte {
	if secret == "" {
		secret = uuid.NewString()
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// identityMiddleware resolves who is acting and stores it in the gin context
func (s *Server) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		in := identity.Input{
			QueryUser:   c.Query("user"),
			QueryFamily: c.Query("family"),
		}

		// A cookie signed with an old secret yields a fresh session and an error.
		if sess, err := s.sessions.Get(c.Request, sessionName); err == nil {
			in.SessionUser, _ = sess.Values["user"].(string)
			in.SessionFamily, _ = sess.Values["family"].(string)
		}

		id, err := s.svc.ResolveIdentity(c.Request.Context(), in)
		if err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// actor retrieves the resolved identity from the context
func actor(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(models.Identity); ok {
			return id
		}
	}
	return models.Identity{User: models.DefaultUser, Family: models.DefaultFamily}
}

func (s *Server) writeSession(c *gin.Context, id models.Identity) {
	sess, _ := s.sessions.Get(c.Request, sessionName)
	sess.Values["user"] = id.User
	sess.Values["family"] = id.Family
	if err := sess.Save(c.Request, c.Writer); err != nil {
		s.logger.WithError(err).Warn("Failed to save session")
	}
}

// ---------------------------------------------------------------------------
// Identity & profile
// ---------------------------------------------------------------------------

type identityRequest struct {
	User   string `json:"user"`
	Family string `json:"family"`
}

func (s *Server) handleGetIdentity(c *gin.Context) {
	id := actor(c)
	c.JSON(http.StatusOK, gin.H{"identity": id, "ref": id.Query()})
}

func (s *Server) handleSaveIdentity(c *gin.Context) {
	var req identityRequest
	if !bindJSON(c, &req) {
		return
	}

	id, ref, err := s.svc.SaveIdentity(c.Request.Context(), models.Identity{User: req.User, Family: req.Family})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.writeSession(c, id)
	c.JSON(http.StatusOK, gin.H{"identity": id, "ref": ref})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	profile, err := s.svc.GetProfile(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleSaveProfile(c *gin.Context) {
	s.limitUpload(c, 1)
	in := service.ProfileInput{
		FirstName: c.PostForm("first_name"),
		LastName:  c.PostForm("last_name"),
	}

	if fh, err := c.FormFile("avatar"); err == nil {
		upload, err := readUpload(fh, s.svc.MaxUploadBytes())
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		in.Avatar = &upload
	}

	profile, ref, err := s.svc.SaveProfile(c.Request.Context(), actor(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.writeSession(c, models.Identity{User: profile.Username, Family: profile.Family})
	c.JSON(http.StatusOK, gin.H{"profile": profile, "ref": ref})
}

// readUpload loads a multipart file into memory. Files over maxBytes are
// rejected from the header before anything is read.
func readUpload(fh *multipart.FileHeader, maxBytes int64) (media.Upload, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return media.Upload{}, fmt.Errorf("%s: %w", fh.Filename, media.ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return media.Upload{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return media.Upload{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return media.Upload{Filename: fh.Filename, Data: data}, nil
}
