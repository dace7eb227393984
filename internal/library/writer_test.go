package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCreatesAlbumAndFile(t *testing.T) {
	root := t.TempDir()
	w := NewDirWriter(root)

	path, err := w.Save(context.Background(), []byte("pixels"), "shot.png", "Trips")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Trips", "shot.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), data)
}

func TestSaveDefaultAlbum(t *testing.T) {
	root := t.TempDir()
	w := NewDirWriter(root)

	path, err := w.Save(context.Background(), []byte{1}, "x.png", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, DefaultAlbum, "x.png"), path)
}

func TestSaveEmptyName(t *testing.T) {
	w := NewDirWriter(t.TempDir())
	_, err := w.Save(context.Background(), []byte{1}, "", "Trips")
	assert.Error(t, err)
}

func TestSaveCancelledContext(t *testing.T) {
	w := NewDirWriter(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Save(ctx, []byte{1}, "x.png", "Trips")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveFailsOnUnwritableRoot(t *testing.T) {
	// A root path that collides with an existing file cannot grow albums.
	root := t.TempDir()
	blocker := filepath.Join(root, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte{0}, 0o644))

	w := NewDirWriter(blocker)
	_, err := w.Save(context.Background(), []byte{1}, "x.png", "Trips")
	assert.Error(t, err)
}

func TestCaptureName(t *testing.T) {
	at := time.UnixMilli(1724630400123)
	assert.Equal(t, "overlay_capture_1724630400123.png", CaptureName(at))

	// Distinct timestamps produce distinct names.
	assert.NotEqual(t, CaptureName(at), CaptureName(at.Add(time.Millisecond)))
}
