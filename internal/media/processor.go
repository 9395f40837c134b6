// Package media validates, stores and thumbnails uploaded photos and videos.
package media

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/metrics"
	"github.com/Kerhoff/hive/internal/models"
)

// Upload is a file as received from a client
type Upload struct {
	Filename string
	Data     []byte
}

// Stored describes a file after it has been written
type Stored struct {
	Path      string
	ThumbPath string
	MIME      string
	Kind      models.MediaKind
}

// DisplayPath prefers the thumbnail
func (s *Stored) DisplayPath() string {
	if s.ThumbPath != "" {
		return s.ThumbPath
	}
	return s.Path
}

// Processor ties the classifier, blob store and thumbnailer together
type Processor struct {
	blobs      *BlobStore
	classifier Classifier
	thumbs     Thumbnailer
	maxBytes   int64
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

// NewProcessor creates a media processor
func NewProcessor(blobs *BlobStore, classifier Classifier, thumbs Thumbnailer, maxBytes int64,
	m *metrics.Metrics, logger *logrus.Logger) *Processor {
	return &Processor{
		blobs:      blobs,
		classifier: classifier,
		thumbs:     thumbs,
		maxBytes:   maxBytes,
		metrics:    m,
		logger:     logger,
	}
}

// Blobs exposes the underlying store
func (p *Processor) Blobs() *BlobStore {
	return p.blobs
}

// MaxBytes is the per-file size limit, 0 when unlimited
func (p *Processor) MaxBytes() int64 {
	return p.maxBytes
}

// Validate checks size and type without writing anything
func (p *Processor) Validate(u Upload, imagesOnly bool) (Classification, error) {
	if len(u.Data) == 0 {
		return Classification{}, fmt.Errorf("%s: %w", u.Filename, ErrEmpty)
	}
	if p.maxBytes > 0 && int64(len(u.Data)) > p.maxBytes {
		return Classification{}, fmt.Errorf("%s: %w", u.Filename, ErrTooLarge)
	}

	c, err := p.classifier.Classify(u.Data, u.Filename)
	if err != nil {
		return Classification{}, fmt.Errorf("%s: %w", u.Filename, err)
	}
	if imagesOnly && !c.IsImage() {
		return Classification{}, fmt.Errorf("%s: %w", u.Filename, ErrUnsupportedType)
	}
	return c, nil
}

// Save writes a validated upload and makes a thumbnail when it can
func (p *Processor) Save(ctx context.Context, u Upload, c Classification) (*Stored, error) {
	path, err := p.blobs.Store(u.Data, c.Ext)
	if err != nil {
		return nil, err
	}

	stored := &Stored{Path: path, MIME: c.MIME, Kind: c.Kind}
	if thumb, ok := p.thumbs.Thumbnail(ctx, path, c.Kind); ok {
		stored.ThumbPath = thumb
	}

	p.metrics.MediaUpload(string(c.Kind))
	p.logger.WithFields(logrus.Fields{
		"path":  path,
		"mime":  c.MIME,
		"thumb": stored.ThumbPath != "",
	}).Debug("Stored upload")

	return stored, nil
}

// Remove deletes a stored file and its thumbnail, logging failures
func (p *Processor) Remove(paths ...string) {
	for _, path := range paths {
		if err := p.blobs.Remove(path); err != nil {
			p.logger.WithError(err).Warn("Failed to remove blob")
		}
	}
}
