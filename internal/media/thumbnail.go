package media

import (
	"context"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
)

// thumbWidth is the width thumbnails are scaled to, keeping aspect ratio
const thumbWidth = "480"

// Thumbnailer produces a preview image next to a stored file
type Thumbnailer interface {
	// Available reports whether thumbnails can be produced at all.
	Available() bool
	// Thumbnail returns the thumbnail path, or false when none was made.
	Thumbnail(ctx context.Context, path string, kind models.MediaKind) (string, bool)
}

// NewThumbnailer returns an ffmpeg thumbnailer when the binary is on the
// path and a no-op one otherwise. The check happens once.
func NewThumbnailer(ffmpegPath string, logger *logrus.Logger) Thumbnailer {
	bin, err := exec.LookPath(ffmpegPath)
	if err != nil {
		logger.WithField("ffmpeg", ffmpegPath).Warn("ffmpeg not found, thumbnails disabled")
		return NoopThumbnailer{}
	}
	logger.WithField("ffmpeg", bin).Debug("Thumbnails enabled")
	return &FFmpegThumbnailer{bin: bin, logger: logger}
}

// FFmpegThumbnailer shells out to ffmpeg to write a WebP thumbnail
type FFmpegThumbnailer struct {
	bin    string
	logger *logrus.Logger
}

func (t *FFmpegThumbnailer) Available() bool { return true }

func (t *FFmpegThumbnailer) Thumbnail(ctx context.Context, path string, kind models.MediaKind) (string, bool) {
	out := ThumbPath(path)

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	if kind == models.MediaVideo {
		args = append(args, "-ss", "00:00:01")
	}
	args = append(args, "-i", path, "-frames:v", "1", "-vf", "scale="+thumbWidth+":-1", out)

	if output, err := exec.CommandContext(ctx, t.bin, args...).CombinedOutput(); err != nil {
		t.logger.WithFields(logrus.Fields{
			"path":   path,
			"output": string(output),
		}).WithError(err).Debug("Thumbnail generation failed")
		os.Remove(out)
		return "", false
	}
	return out, true
}

// NoopThumbnailer never produces thumbnails
type NoopThumbnailer struct{}

func (NoopThumbnailer) Available() bool { return false }

func (NoopThumbnailer) Thumbnail(context.Context, string, models.MediaKind) (string, bool) {
	return "", false
}
