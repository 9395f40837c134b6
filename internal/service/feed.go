package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

const (
	// MaxPostFiles caps the attachments of a single post
	MaxPostFiles     = 12
	postCommentLimit = 100
)

// PostInput holds a new post and its uploads
type PostInput struct {
	AlbumID *int64
	Caption string
	Files   []media.Upload
}

func (s *Service) CreateAlbum(ctx context.Context, id models.Identity, name string) (*models.Album, error) {
	name, err := requireText("name", name)
	if err != nil {
		return nil, err
	}

	album, err := s.store.Feed().CreateAlbum(ctx, &models.Album{
		Family:    id.Family,
		Name:      name,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"album":  album.ID,
	}).Info("Created album")

	return album, nil
}

func (s *Service) Albums(ctx context.Context, id models.Identity) ([]*models.Album, error) {
	return s.store.Feed().ListAlbums(ctx, id.Family)
}

// CreatePost validates every upload before writing anything, stores the
// blobs, then inserts the post and its media in one transaction. Blobs are
// removed again when the insert fails.
func (s *Service) CreatePost(ctx context.Context, id models.Identity, in PostInput) (*models.Post, error) {
	caption := strings.TrimSpace(in.Caption)
	if caption == "" && len(in.Files) == 0 {
		return nil, invalid("caption", "add a caption or at least one file")
	}
	if len(in.Files) > MaxPostFiles {
		return nil, invalid("files", "too many files")
	}

	classes := make([]media.Classification, len(in.Files))
	for i, upload := range in.Files {
		c, err := s.media.Validate(upload, false)
		if err != nil {
			return nil, invalid("files", err.Error())
		}
		classes[i] = c
	}

	if in.AlbumID != nil {
		album, err := s.store.Feed().GetAlbum(ctx, id.Family, *in.AlbumID)
		if err != nil {
			return nil, err
		}
		if album == nil {
			return nil, notFound("album", *in.AlbumID)
		}
	}

	stored := make([]*media.Stored, 0, len(in.Files))
	cleanup := func() {
		for _, st := range stored {
			s.media.Remove(st.Path, st.ThumbPath)
		}
	}
	for i, upload := range in.Files {
		st, err := s.media.Save(ctx, upload, classes[i])
		if err != nil {
			cleanup()
			return nil, err
		}
		stored = append(stored, st)
	}

	post := &models.Post{
		Family:    id.Family,
		AlbumID:   in.AlbumID,
		Author:    id.User,
		Caption:   caption,
		CreatedAt: s.now(),
	}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Feed().CreatePost(ctx, post); err != nil {
			return err
		}
		for _, st := range stored {
			m, err := tx.Feed().AddMedia(ctx, id.Family, &models.PostMedia{
				PostID:    post.ID,
				Path:      st.Path,
				ThumbPath: st.ThumbPath,
				MIME:      st.MIME,
				Kind:      st.Kind,
			})
			if err != nil {
				return err
			}
			post.Media = append(post.Media, m)
		}
		return nil
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"post":   post.ID,
		"media":  len(post.Media),
	}).Info("Created post")

	return post, nil
}

// PostPage is one page of the feed
type PostPage struct {
	Posts    []*models.Post `json:"posts"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	HasMore  bool           `json:"has_more"`
}

// ListPosts returns a page of posts, newest first, optionally of one album
func (s *Service) ListPosts(ctx context.Context, id models.Identity, albumID *int64, page int) (*PostPage, error) {
	page = clampPage(page)

	// One extra row tells whether another page exists.
	posts, err := s.store.Feed().ListPosts(ctx, id.Family, repository.PostFilters{
		AlbumID: albumID,
		Viewer:  id.User,
		Limit:   s.pageSize + 1,
		Offset:  s.offset(page),
	})
	if err != nil {
		return nil, err
	}

	hasMore := len(posts) > s.pageSize
	if hasMore {
		posts = posts[:s.pageSize]
	}

	return &PostPage{Posts: posts, Page: page, PageSize: s.pageSize, HasMore: hasMore}, nil
}

func (s *Service) GetPost(ctx context.Context, id models.Identity, postID int64) (*models.Post, error) {
	post, err := s.store.Feed().GetPost(ctx, id.Family, postID, id.User)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", postID)
	}
	return post, nil
}

// ToggleLike likes or unlikes a post and reports whether it is now liked
func (s *Service) ToggleLike(ctx context.Context, id models.Identity, postID int64) (bool, error) {
	var liked bool
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		liked, err = tx.Feed().ToggleLike(ctx, id.Family, postID, id.User)
		return err
	})
	return liked, err
}

func (s *Service) AddPostComment(ctx context.Context, id models.Identity, postID int64, text string) (*models.PostComment, error) {
	text, err := requireText("text", text)
	if err != nil {
		return nil, err
	}

	return s.store.Feed().AddComment(ctx, id.Family, &models.PostComment{
		PostID:    postID,
		Author:    id.User,
		Text:      text,
		CreatedAt: s.now(),
	})
}

// PostComments returns the newest comments of a post
func (s *Service) PostComments(ctx context.Context, id models.Identity, postID int64) ([]*models.PostComment, error) {
	if _, err := s.GetPost(ctx, id, postID); err != nil {
		return nil, err
	}
	return s.store.Feed().Comments(ctx, id.Family, postID, postCommentLimit)
}

func (s *Service) DeletePostComment(ctx context.Context, id models.Identity, commentID int64) error {
	return s.store.Feed().DeleteComment(ctx, id.Family, commentID)
}

// DeletePost removes a post with all of its children. Blobs are removed
// after commit; failures there are only logged.
func (s *Service) DeletePost(ctx context.Context, id models.Identity, postID int64) error {
	var removed []*models.PostMedia
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		removed, err = tx.Feed().DeletePost(ctx, id.Family, postID)
		return err
	})
	if err != nil {
		return err
	}

	for _, m := range removed {
		s.media.Remove(m.Path, m.ThumbPath)
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"post":   postID,
		"media":  len(removed),
	}).Info("Deleted post")
	return nil
}
