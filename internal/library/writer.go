// Package library persists captured images to the photo library.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultAlbum is the collection every capture lands in unless configured
// otherwise.
const DefaultAlbum = "Overlay Captures"

// Writer persists encoded image bytes under a suggested name inside a named
// album, returning the final path.
type Writer interface {
	Save(ctx context.Context, data []byte, name, album string) (string, error)
}

// DirWriter stores albums as subdirectories of a pictures root.
type DirWriter struct {
	Root string
}

// NewDirWriter creates a writer rooted at dir. An empty dir selects
// ~/Pictures, falling back to the working directory.
func NewDirWriter(dir string) *DirWriter {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, "Pictures")
		} else {
			dir = "."
		}
	}
	return &DirWriter{Root: dir}
}

// Save writes data to <root>/<album>/<name>, creating the album directory
// if needed.
func (w *DirWriter) Save(ctx context.Context, data []byte, name, album string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("library: empty file name")
	}
	if album == "" {
		album = DefaultAlbum
	}

	dir := filepath.Join(w.Root, album)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create album %q: %w", album, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %q: %w", path, err)
	}
	return path, nil
}

// CaptureName produces a unique capture file name from a timestamp:
// overlay_capture_<unix_millis>.png. Millisecond resolution plus the
// single-capture-at-a-time invariant keeps collisions negligible.
func CaptureName(t time.Time) string {
	return fmt.Sprintf("overlay_capture_%d.png", t.UnixMilli())
}
