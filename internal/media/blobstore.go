package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// BlobStore keeps uploaded files in one directory under generated names,
// so concurrent uploads never collide.
type BlobStore struct {
	dir    string
	logger *logrus.Logger
}

// NewBlobStore creates the upload directory if needed
func NewBlobStore(dir string, logger *logrus.Logger) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &BlobStore{dir: dir, logger: logger}, nil
}

// Dir returns the upload directory
func (b *BlobStore) Dir() string {
	return b.dir
}

// Store writes data under a fresh unique name and returns its path
func (b *BlobStore) Store(data []byte, ext string) (string, error) {
	path := filepath.Join(b.dir, uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close blob: %w", err)
	}

	return path, nil
}

// ThumbPath is where the thumbnail of path lives
func ThumbPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_thumb.webp"
}

// Remove deletes a blob. Missing files and paths outside the upload
// directory are ignored.
func (b *BlobStore) Remove(path string) error {
	if path == "" || !b.owns(path) {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob %s: %w", path, err)
	}
	return nil
}

// Purge removes every file in the upload directory and reports each
// failure, continuing past them.
func (b *BlobStore) Purge() error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read upload directory: %w", err)
	}

	var result *multierror.Error
	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(b.dir, entry.Name())); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}

	b.logger.WithFields(logrus.Fields{
		"dir":     b.dir,
		"removed": removed,
	}).Info("Purged upload directory")

	return result.ErrorOrNil()
}

func (b *BlobStore) owns(path string) bool {
	rel, err := filepath.Rel(b.dir, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
