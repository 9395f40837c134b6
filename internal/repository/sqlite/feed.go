package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

// mediaPerPost caps the attachments loaded with each listed post
const mediaPerPost = 12

const postColumns = `p.id, p.family, p.album_id, p.author, COALESCE(p.caption, ''), p.created_at,
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
	(SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id),
	EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.author = ?)`

type feedRepository struct {
	db repository.DBTX
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db repository.DBTX) repository.FeedRepository {
	return &feedRepository{db: db}
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post      models.Post
		albumID   sql.NullInt64
		createdAt string
		liked     int
	)
	if err := row.Scan(
		&post.ID,
		&post.Family,
		&albumID,
		&post.Author,
		&post.Caption,
		&createdAt,
		&post.LikeCount,
		&post.CommentCount,
		&liked,
	); err != nil {
		return nil, err
	}

	var err error
	if post.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("post %d created_at: %w", post.ID, err)
	}
	post.AlbumID = optionalInt64(albumID)
	post.LikedByMe = liked != 0
	return &post, nil
}

func (r *feedRepository) CreateAlbum(ctx context.Context, album *models.Album) (*models.Album, error) {
	query := `INSERT INTO albums (family, name, created_at) VALUES (?, ?, ?) RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		album.Family,
		album.Name,
		models.FormatTimestamp(album.CreatedAt),
	).Scan(&album.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create album: %w", err)
	}

	return album, nil
}

func (r *feedRepository) GetAlbum(ctx context.Context, family string, id int64) (*models.Album, error) {
	query := `SELECT id, family, name, created_at FROM albums WHERE id = ? AND family = ?`

	var (
		album     models.Album
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, id, family).Scan(&album.ID, &album.Family, &album.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get album by ID: %w", err)
	}
	if album.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("album %d created_at: %w", album.ID, err)
	}

	return &album, nil
}

func (r *feedRepository) ListAlbums(ctx context.Context, family string) ([]*models.Album, error) {
	query := `SELECT id, family, name, created_at FROM albums WHERE family = ? ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, family)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*models.Album
	for rows.Next() {
		var (
			album     models.Album
			createdAt string
		)
		if err := rows.Scan(&album.ID, &album.Family, &album.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		if album.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("album %d created_at: %w", album.ID, err)
		}
		albums = append(albums, &album)
	}

	return albums, rows.Err()
}

// CreatePost inserts a post; a referenced album must belong to the family
func (r *feedRepository) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (family, album_id, author, caption, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE ? IS NULL OR EXISTS (SELECT 1 FROM albums WHERE id = ? AND family = ?)
		RETURNING id`

	albumID := nullInt64(post.AlbumID)
	err := r.db.QueryRowContext(ctx, query,
		post.Family,
		albumID,
		post.Author,
		nullString(post.Caption),
		models.FormatTimestamp(post.CreatedAt),
		albumID,
		albumID,
		post.Family,
	).Scan(&post.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("album %d: %w", albumID.Int64, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

// GetPost returns the post with its counts and media
func (r *feedRepository) GetPost(ctx context.Context, family string, id int64, viewer string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.id = ? AND p.family = ?`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, viewer, id, family))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post by ID: %w", err)
	}

	if post.Media, err = r.Media(ctx, family, post.ID, mediaPerPost); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns a page of posts, newest first
func (r *feedRepository) ListPosts(ctx context.Context, family string, filters repository.PostFilters) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		WHERE p.family = ? AND (? IS NULL OR p.album_id = ?)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`

	albumID := nullInt64(filters.AlbumID)
	rows, err := r.db.QueryContext(ctx, query,
		filters.Viewer, family, albumID, albumID, filters.Limit, filters.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// The connection is shared, so the cursor has to be released before
	// media can be queried.
	rows.Close()

	for _, post := range posts {
		if post.Media, err = r.Media(ctx, family, post.ID, mediaPerPost); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// AddMedia attaches a stored file to a post of the family
func (r *feedRepository) AddMedia(ctx context.Context, family string, media *models.PostMedia) (*models.PostMedia, error) {
	query := `
		INSERT INTO post_media (post_id, path, thumb_path, mime, media_type)
		SELECT ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM posts WHERE id = ? AND family = ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		media.PostID,
		media.Path,
		nullString(media.ThumbPath),
		nullString(media.MIME),
		string(media.Kind),
		media.PostID,
		family,
	).Scan(&media.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %d: %w", media.PostID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to add post media: %w", err)
	}

	return media, nil
}

// Media returns a post's attachments, oldest first
func (r *feedRepository) Media(ctx context.Context, family string, postID int64, limit int) ([]*models.PostMedia, error) {
	query := `
		SELECT m.id, m.post_id, m.path, COALESCE(m.thumb_path, ''), COALESCE(m.mime, ''), COALESCE(m.media_type, 'image')
		FROM post_media m
		JOIN posts p ON p.id = m.post_id
		WHERE m.post_id = ? AND p.family = ?
		ORDER BY m.id ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, postID, family, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query post media: %w", err)
	}
	defer rows.Close()

	var media []*models.PostMedia
	for rows.Next() {
		var (
			m    models.PostMedia
			kind string
		)
		if err := rows.Scan(&m.ID, &m.PostID, &m.Path, &m.ThumbPath, &m.MIME, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan post media: %w", err)
		}
		m.Kind = models.MediaKind(kind)
		media = append(media, &m)
	}

	return media, rows.Err()
}

// ToggleLike flips the author's like and reports whether it is now present
func (r *feedRepository) ToggleLike(ctx context.Context, family string, postID int64, author string) (bool, error) {
	deleteQuery := `
		DELETE FROM post_likes
		WHERE post_id = ? AND author = ? AND post_id IN (SELECT id FROM posts WHERE family = ?)`

	result, err := r.db.ExecContext(ctx, deleteQuery, postID, author, family)
	if err != nil {
		return false, fmt.Errorf("failed to remove like: %w", err)
	}
	removed, err := affected(result)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}

	insertQuery := `
		INSERT OR IGNORE INTO post_likes (post_id, author)
		SELECT ?, ?
		WHERE EXISTS (SELECT 1 FROM posts WHERE id = ? AND family = ?)`

	result, err = r.db.ExecContext(ctx, insertQuery, postID, author, postID, family)
	if err != nil {
		return false, fmt.Errorf("failed to add like: %w", err)
	}
	if err := expectAffected(result, "post", postID); err != nil {
		return false, err
	}

	return true, nil
}

func (r *feedRepository) AddComment(ctx context.Context, family string, comment *models.PostComment) (*models.PostComment, error) {
	query := `
		INSERT INTO post_comments (post_id, author, text, created_at)
		SELECT ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM posts WHERE id = ? AND family = ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		comment.PostID,
		comment.Author,
		comment.Text,
		models.FormatTimestamp(comment.CreatedAt),
		comment.PostID,
		family,
	).Scan(&comment.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %d: %w", comment.PostID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to add post comment: %w", err)
	}

	return comment, nil
}

// Comments returns a post's most recent comments, newest first
func (r *feedRepository) Comments(ctx context.Context, family string, postID int64, limit int) ([]*models.PostComment, error) {
	query := `
		SELECT c.id, c.post_id, c.author, c.text, c.created_at
		FROM post_comments c
		JOIN posts p ON p.id = c.post_id
		WHERE c.post_id = ? AND p.family = ?
		ORDER BY c.id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, postID, family, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query post comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.PostComment
	for rows.Next() {
		var (
			comment   models.PostComment
			createdAt string
		)
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.Author, &comment.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan post comment: %w", err)
		}
		if comment.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("post comment %d created_at: %w", comment.ID, err)
		}
		comments = append(comments, &comment)
	}

	return comments, rows.Err()
}

func (r *feedRepository) DeleteComment(ctx context.Context, family string, id int64) error {
	query := `DELETE FROM post_comments WHERE id = ? AND post_id IN (SELECT id FROM posts WHERE family = ?)`

	result, err := r.db.ExecContext(ctx, query, id, family)
	if err != nil {
		return fmt.Errorf("failed to delete post comment: %w", err)
	}

	return expectAffected(result, "post comment", id)
}

// DeletePost removes a post and every child row, returning the media rows
// so their blobs can be removed. Run it inside a transaction.
func (r *feedRepository) DeletePost(ctx context.Context, family string, id int64) ([]*models.PostMedia, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ? AND family = ?`, id, family).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up post: %w", err)
	}

	media, err := r.Media(ctx, family, id, -1)
	if err != nil {
		return nil, err
	}

	for _, table := range []string{"post_media", "post_likes", "post_comments"} {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE post_id = ?", id); err != nil {
			return nil, fmt.Errorf("failed to delete %s of post %d: %w", table, id, err)
		}
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ? AND family = ?`, id, family)
	if err != nil {
		return nil, fmt.Errorf("failed to delete post: %w", err)
	}
	if err := expectAffected(result, "post", id); err != nil {
		return nil, err
	}

	return media, nil
}
