package media

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Kerhoff/hive/internal/models"
)

var (
	// ErrUnsupportedType is returned for anything outside the allow-list
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrTooLarge is returned when an upload exceeds the configured limit
	ErrTooLarge = errors.New("file is too large")
	// ErrEmpty is returned for zero-byte uploads
	ErrEmpty = errors.New("file is empty")
)

// Classification is the outcome of sniffing an upload
type Classification struct {
	MIME string
	Ext  string
	Kind models.MediaKind
}

// IsImage reports whether the upload is a photo
func (c Classification) IsImage() bool {
	return c.Kind == models.MediaImage
}

type allowedType struct {
	ext  string
	kind models.MediaKind
}

// allowedTypes is the allow-list, keyed by MIME type
var allowedTypes = map[string]allowedType{
	"image/jpeg":      {".jpg", models.MediaImage},
	"image/png":       {".png", models.MediaImage},
	"image/gif":       {".gif", models.MediaImage},
	"video/mp4":       {".mp4", models.MediaVideo},
	"video/webm":      {".webm", models.MediaVideo},
	"video/quicktime": {".mov", models.MediaVideo},
}

// extensionTypes backs the sniffer for formats it cannot recognise
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// Classifier maps raw bytes and a filename hint to an allowed media type
type Classifier interface {
	Classify(data []byte, filename string) (Classification, error)
}

// SniffClassifier sniffs content first and falls back to the extension
type SniffClassifier struct{}

// NewClassifier returns the content sniffing classifier
func NewClassifier() Classifier {
	return SniffClassifier{}
}

func (SniffClassifier) Classify(data []byte, filename string) (Classification, error) {
	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if t, ok := allowedTypes[sniffed]; ok {
		return Classification{MIME: sniffed, Ext: t.ext, Kind: t.kind}, nil
	}

	// The sniffer only knows a handful of video containers.
	if sniffed != "application/octet-stream" {
		return Classification{}, ErrUnsupportedType
	}
	return ClassifyByExtension(filename)
}

// ClassifyByExtension guesses from the filename alone
func ClassifyByExtension(filename string) (Classification, error) {
	mime, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return Classification{}, ErrUnsupportedType
	}
	t := allowedTypes[mime]
	return Classification{MIME: mime, Ext: t.ext, Kind: t.kind}, nil
}
