package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/pkg/logger"
)

var (
	pngHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")
	gifHeader = []byte("GIF89a\x01\x00\x01\x00")
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name     string
		data     []byte
		filename string
		wantMIME string
		wantKind models.MediaKind
		wantErr  error
	}{
		{"png by content", pngHeader, "upload.bin", "image/png", models.MediaImage, nil},
		{"gif ignores misleading name", gifHeader, "clip.mov", "image/gif", models.MediaImage, nil},
		{"quicktime by extension", []byte{0x00, 0x00, 0x00, 0x14, 0x66, 0x74, 0x79, 0x70, 0x71, 0x74}, "clip.MOV", "video/quicktime", models.MediaVideo, nil},
		{"text is rejected", []byte("hello world"), "notes.jpg", "", "", ErrUnsupportedType},
		{"unknown extension", []byte{0x00, 0x01, 0x02}, "archive.zip", "", "", ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.data, tt.filename)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, got.MIME)
			assert.Equal(t, tt.wantKind, got.Kind)
		})
	}
}

func newProcessor(t *testing.T, maxBytes int64) *Processor {
	t.Helper()
	blobs, err := NewBlobStore(filepath.Join(t.TempDir(), "uploads"), logger.Discard())
	require.NoError(t, err)
	return NewProcessor(blobs, NewClassifier(), NoopThumbnailer{}, maxBytes, nil, logger.Discard())
}

func TestValidate(t *testing.T) {
	p := newProcessor(t, 32)

	_, err := p.Validate(Upload{Filename: "a.png", Data: nil}, false)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = p.Validate(Upload{Filename: "a.png", Data: make([]byte, 33)}, false)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = p.Validate(Upload{Filename: "a.mp4", Data: []byte{0x00, 0x01}}, true)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	c, err := p.Validate(Upload{Filename: "a.png", Data: pngHeader}, true)
	require.NoError(t, err)
	assert.Equal(t, ".png", c.Ext)
}

func TestSaveUsesUniqueNames(t *testing.T) {
	p := newProcessor(t, 0)
	ctx := context.Background()
	u := Upload{Filename: "a.png", Data: pngHeader}
	c, err := p.Validate(u, false)
	require.NoError(t, err)

	first, err := p.Save(ctx, u, c)
	require.NoError(t, err)
	second, err := p.Save(ctx, u, c)
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, ".png", filepath.Ext(first.Path))
	assert.Empty(t, first.ThumbPath)
	assert.Equal(t, first.Path, first.DisplayPath())
	assert.FileExists(t, first.Path)
}

func TestThumbPath(t *testing.T) {
	assert.Equal(t, filepath.Join("uploads", "abc_thumb.webp"), ThumbPath(filepath.Join("uploads", "abc.mp4")))
}

func TestRemoveStaysInsideUploadDir(t *testing.T) {
	p := newProcessor(t, 0)

	outside := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	assert.NoError(t, p.Blobs().Remove(outside))
	assert.FileExists(t, outside)
	assert.NoError(t, p.Blobs().Remove(filepath.Join(p.Blobs().Dir(), "missing.png")))
}

func TestPurge(t *testing.T) {
	p := newProcessor(t, 0)
	for i := 0; i < 3; i++ {
		_, err := p.Blobs().Store(pngHeader, ".png")
		require.NoError(t, err)
	}

	require.NoError(t, p.Blobs().Purge())

	entries, err := os.ReadDir(p.Blobs().Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewThumbnailerFallsBack(t *testing.T) {
	th := NewThumbnailer("definitely-not-ffmpeg-binary", logger.Discard())
	assert.False(t, th.Available())
	_, ok := th.Thumbnail(context.Background(), "x.png", models.MediaImage)
	assert.False(t, ok)
}
