package feedback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrImageExists is returned when the target image file is already on disk.
	ErrImageExists = errors.New("image file already exists")
	// ErrNoImage is returned when there are no image bytes to store.
	ErrNoImage = errors.New("no image data")
)

// Recorder writes the accepted image and appends its record to a Log.
// Commits are serialized so image writes and log rows never interleave.
type Recorder struct {
	mu       sync.Mutex
	imageDir string
	log      Log
	now      func() time.Time
}

// NewRecorder creates a recorder writing images into imageDir.
func NewRecorder(imageDir string, log Log) *Recorder {
	return &Recorder{
		imageDir: imageDir,
		log:      log,
		now:      time.Now,
	}
}

// ImageDir returns the directory images are written to.
func (r *Recorder) ImageDir() string {
	return r.imageDir
}

// Record stores image and appends one row describing entry. On any failure
// nothing is left behind: an image written before a failed append is removed.
func (r *Recorder) Record(ctx context.Context, entry Entry, image []byte) (Record, error) {
	if !entry.Rating.Valid() {
		return Record{}, fmt.Errorf("invalid rating %q", entry.Rating)
	}
	if len(image) == 0 {
		return Record{}, ErrNoImage
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now()
	rec := Record{
		Timestamp:     ts,
		ImageFilename: ImageFilename(ts),
		Entry:         entry,
	}

	path := filepath.Join(r.imageDir, rec.ImageFilename)
	if err := writeExclusive(path, image); err != nil {
		return Record{}, err
	}

	if err := r.log.Append(ctx, rec); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("failed to remove orphaned image", "path", path, "error", rmErr)
		}
		return Record{}, fmt.Errorf("append feedback: %w", err)
	}

	slog.Info("feedback recorded",
		"image", rec.ImageFilename,
		"rating", string(rec.Rating),
	)
	return rec, nil
}

func writeExclusive(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrImageExists, path)
		}
		return fmt.Errorf("create image file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close image file: %w", err)
	}
	return nil
}
