package viewfinder

import (
	"image"
	"image/color"
	"math"
	"testing"

	"overcam/internal/app"
	"overcam/internal/compositor"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportRectIn(t *testing.T) {
	// Wide widget: height-bound, centered horizontally.
	r := viewportRectIn(1000, 400)
	assert.InDelta(t, 300.0, r.Width, 1e-9)
	assert.InDelta(t, 400.0, r.Height, 1e-9)
	assert.InDelta(t, 350.0, r.X, 1e-9)
	assert.InDelta(t, 0.0, r.Y, 1e-9)

	// Tall widget: width-bound, centered vertically.
	r = viewportRectIn(300, 1000)
	assert.InDelta(t, 300.0, r.Width, 1e-9)
	assert.InDelta(t, 400.0, r.Height, 1e-9)
	assert.InDelta(t, 300.0, r.Y, 1e-9)

	assert.Equal(t, 0.0, viewportRectIn(0, 100).Width)
}

func TestSnapshotNotReadyWithoutFrames(t *testing.T) {
	test.NewApp()
	v := New(app.NewState())

	_, err := v.Snapshot(1)
	assert.ErrorIs(t, err, compositor.ErrNotReady)
}

func TestSnapshotUsesLiveFrame(t *testing.T) {
	test.NewApp()
	state := app.NewState()
	v := New(state)

	frame := image.NewRGBA(image.Rect(0, 0, 30, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 30; x++ {
			frame.SetRGBA(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	v.SetLiveFrame(frame)

	out, err := v.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, int(math.Round(compositor.DefaultViewportWidth)), out.Bounds().Dx())

	c := out.RGBAAt(out.Bounds().Dx()/2, out.Bounds().Dy()/2)
	assert.True(t, c.G > 128, "snapshot shows the live frame, got %v", c)
}

func TestSnapshotPrefersFrozenStill(t *testing.T) {
	test.NewApp()
	state := app.NewState()
	v := New(state)

	live := image.NewRGBA(image.Rect(0, 0, 30, 40))
	v.SetLiveFrame(live)

	still := image.NewRGBA(image.Rect(0, 0, 30, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 30; x++ {
			still.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	state.SetStillBackground(still)

	out, err := v.Snapshot(1)
	require.NoError(t, err)
	c := out.RGBAAt(out.Bounds().Dx()/2, out.Bounds().Dy()/2)
	assert.True(t, c.R > 128, "snapshot shows the frozen still, got %v", c)
}
