package models

import "time"

// MediaKind separates photos from videos
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Album groups feed posts
type Album struct {
	ID        int64     `json:"id" db:"id"`
	Family    string    `json:"family" db:"family"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Post is a feed entry with attached media
type Post struct {
	ID           int64        `json:"id" db:"id"`
	Family       string       `json:"family" db:"family"`
	AlbumID      *int64       `json:"album_id,omitempty" db:"album_id"`
	Author       string       `json:"author" db:"author"`
	Caption      string       `json:"caption" db:"caption"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	LikeCount    int          `json:"like_count"`
	CommentCount int          `json:"comment_count"`
	LikedByMe    bool         `json:"liked_by_me"`
	Media        []*PostMedia `json:"media,omitempty"`
}

// PostMedia is one stored photo or video of a post
type PostMedia struct {
	ID        int64     `json:"id" db:"id"`
	PostID    int64     `json:"post_id" db:"post_id"`
	Path      string    `json:"path" db:"path"`
	ThumbPath string    `json:"thumb_path,omitempty" db:"thumb_path"`
	MIME      string    `json:"mime" db:"mime"`
	Kind      MediaKind `json:"media_type" db:"media_type"`
}

// DisplayPath prefers the thumbnail when one exists
func (m *PostMedia) DisplayPath() string {
	if m.ThumbPath != "" {
		return m.ThumbPath
	}
	return m.Path
}

// PostComment is a timestamped comment on a post
type PostComment struct {
	ID        int64     `json:"id" db:"id"`
	PostID    int64     `json:"post_id" db:"post_id"`
	Author    string    `json:"author" db:"author"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
