package app

import (
	"image"
	"testing"

	"overcam/internal/overlay"
	"overcam/pkg/geometry"

	"github.com/stretchr/testify/assert"
)

func testOverlay() *overlay.Image {
	return &overlay.Image{
		Path:   "test://overlay",
		Source: image.NewRGBA(image.Rect(0, 0, 10, 10)),
	}
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState()
	assert.Equal(t, BackgroundLive, s.Background().Kind)
	assert.Nil(t, s.Overlay())
	assert.False(t, s.Capturing())
	assert.True(t, s.Engine.Current().IsIdentity())
}

func TestSetOverlayResetsTransform(t *testing.T) {
	s := NewState()
	s.Engine.ApplyDelta(geometry.Translation(50, 50))
	s.Engine.ApplyDelta(geometry.Rotation(1.2))
	assert.False(t, s.Engine.Current().IsIdentity())

	o := testOverlay()
	s.SetOverlay(o)

	assert.Same(t, o, s.Overlay())
	assert.True(t, s.Engine.Current().IsIdentity(),
		"picking a new overlay must reset the transform")
}

func TestSetOverlayReplacesPrevious(t *testing.T) {
	s := NewState()
	first := testOverlay()
	second := testOverlay()

	s.SetOverlay(first)
	s.SetOverlay(second)
	assert.Same(t, second, s.Overlay())

	s.SetOverlay(nil)
	assert.Nil(t, s.Overlay())
}

func TestBackgroundSwapsWholesale(t *testing.T) {
	s := NewState()

	still := image.NewRGBA(image.Rect(0, 0, 4, 4))
	s.SetStillBackground(still)
	bg := s.Background()
	assert.Equal(t, BackgroundStill, bg.Kind)
	assert.Same(t, still, bg.Still.(*image.RGBA))

	s.SetLiveBackground()
	bg = s.Background()
	assert.Equal(t, BackgroundLive, bg.Kind)
	assert.Nil(t, bg.Still)
}

func TestCaptureGuard(t *testing.T) {
	s := NewState()

	assert.True(t, s.BeginCapture())
	assert.True(t, s.Capturing())

	// Re-entrant capture requests are rejected, not queued.
	assert.False(t, s.BeginCapture())

	s.EndCapture()
	assert.False(t, s.Capturing())
	assert.Equal(t, BackgroundLive, s.Background().Kind)

	assert.True(t, s.BeginCapture())
	s.EndCapture()
}

func TestEndCaptureRestoresLiveBackground(t *testing.T) {
	s := NewState()
	s.BeginCapture()
	s.SetStillBackground(image.NewRGBA(image.Rect(0, 0, 2, 2)))

	s.EndCapture()
	assert.Equal(t, BackgroundLive, s.Background().Kind)
}

func TestEvents(t *testing.T) {
	s := NewState()

	var overlayEvents, backgroundEvents, transformEvents int
	s.On(EventOverlayChanged, func(interface{}) { overlayEvents++ })
	s.On(EventBackgroundChanged, func(interface{}) { backgroundEvents++ })
	s.On(EventTransformChanged, func(interface{}) { transformEvents++ })

	s.SetOverlay(testOverlay())
	s.SetStillBackground(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	s.SetLiveBackground()
	s.Engine.ApplyDelta(geometry.Translation(1, 0))

	assert.Equal(t, 1, overlayEvents)
	assert.Equal(t, 2, backgroundEvents)
	// SetOverlay resets the engine, which also fires a transform event.
	assert.Equal(t, 2, transformEvents)
}

func TestCaptureLifecycleEvents(t *testing.T) {
	s := NewState()

	var started, finished int
	s.On(EventCaptureStarted, func(interface{}) { started++ })
	s.On(EventCaptureFinished, func(interface{}) { finished++ })

	s.BeginCapture()
	s.BeginCapture() // rejected, must not fire a second start
	s.EndCapture()

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, finished)
}
