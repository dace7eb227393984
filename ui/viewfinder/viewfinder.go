// Package viewfinder provides the camera preview widget: it renders the
// composed background + overlay scene and feeds drag/scroll gestures into
// the transform engine.
package viewfinder

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"time"

	"overcam/internal/app"
	"overcam/internal/compositor"
	"overcam/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const (
	zoomStep = 1.1

	// defaultSettleDelay bounds how long Settle waits for a drawn frame
	// when no draw callback arrives (e.g. the window is not mapped yet).
	defaultSettleDelay = 300 * time.Millisecond

	settlePollInterval = 5 * time.Millisecond
)

var backdrop = color.RGBA{R: 0x0A, G: 0x0A, B: 0x0C, A: 0xFF}

// Viewfinder displays the 3:4 viewport letterboxed inside the widget and
// routes gestures to the overlay transform.
type Viewfinder struct {
	widget.BaseWidget

	state  *app.State
	raster *fynecanvas.Raster

	mu        sync.RWMutex
	liveFrame image.Image

	// Render settle tracking: wantGen advances on every background swap,
	// drawnGen records the generation visible in the last completed draw.
	wantGen  uint64
	drawnGen uint64

	settleDelay time.Duration
}

// New creates a viewfinder bound to the application state.
func New(state *app.State) *Viewfinder {
	v := &Viewfinder{
		state:       state,
		settleDelay: defaultSettleDelay,
	}
	v.ExtendBaseWidget(v)
	v.raster = fynecanvas.NewRaster(v.draw)

	// Transform and overlay updates repaint the composed scene; the live
	// preview stream itself arrives through SetLiveFrame.
	state.On(app.EventTransformChanged, func(interface{}) { v.raster.Refresh() })
	state.On(app.EventOverlayChanged, func(interface{}) { v.raster.Refresh() })
	state.On(app.EventBackgroundChanged, func(interface{}) {
		v.mu.Lock()
		v.wantGen++
		v.mu.Unlock()
		v.raster.Refresh()
	})

	return v
}

// CreateRenderer implements fyne.Widget.
func (v *Viewfinder) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

// MinSize keeps the viewport usable.
func (v *Viewfinder) MinSize() fyne.Size {
	return fyne.NewSize(240, 320)
}

// SetLiveFrame installs the newest camera preview frame. Ignored visually
// while a captured still is frozen on screen.
func (v *Viewfinder) SetLiveFrame(img image.Image) {
	v.mu.Lock()
	v.liveFrame = img
	v.mu.Unlock()

	if v.state.Background().Kind == app.BackgroundLive {
		v.raster.Refresh()
	}
}

// backgroundImage resolves the active background pixels: the frozen still
// while capturing, otherwise the latest live frame.
func (v *Viewfinder) backgroundImage() image.Image {
	bg := v.state.Background()
	if bg.Kind == app.BackgroundStill {
		return bg.Still
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.liveFrame
}

// scene assembles the compositor scene from current state. ok is false until
// a background frame exists.
func (v *Viewfinder) scene() (compositor.Scene, bool) {
	bg := v.backgroundImage()
	if bg == nil {
		return compositor.Scene{}, false
	}
	return compositor.Scene{
		Background: bg,
		Overlay:    v.state.Overlay(),
		Transform:  v.state.Engine.Current(),
		Viewport:   compositor.NewViewport(compositor.DefaultViewportWidth),
	}, true
}

// viewportRectIn returns the largest 3:4 rectangle centered inside w x h.
func viewportRectIn(w, h float64) geometry.Rect {
	if w <= 0 || h <= 0 {
		return geometry.Rect{}
	}
	vw := w
	vh := vw * compositor.AspectHeight / compositor.AspectWidth
	if vh > h {
		vh = h
		vw = vh * compositor.AspectWidth / compositor.AspectHeight
	}
	return geometry.NewRect((w-vw)/2, (h-vh)/2, vw, vh)
}

// draw rasterizes the scene into the widget's pixel buffer, letterboxing the
// 3:4 viewport with a dark backdrop.
func (v *Viewfinder) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), &image.Uniform{backdrop}, image.Point{}, draw.Src)

	scene, ok := v.scene()
	if !ok || w == 0 || h == 0 {
		return out
	}

	rect := viewportRectIn(float64(w), float64(h))
	ratio := rect.Width / scene.Viewport.Width
	composed, err := compositor.Rasterize(scene, ratio)
	if err != nil {
		return out
	}

	offset := image.Pt(int(math.Round(rect.X)), int(math.Round(rect.Y)))
	draw.Draw(out, composed.Bounds().Add(offset), composed, image.Point{}, draw.Src)

	v.mu.Lock()
	v.drawnGen = v.wantGen
	v.mu.Unlock()

	return out
}

// Settle blocks until a frame containing the most recent background swap has
// been drawn, falling back to a fixed delay when no draw callback arrives.
// The fallback keeps headless capture paths moving; a real render-complete
// signal is used whenever the raster is live.
func (v *Viewfinder) Settle(ctx context.Context) error {
	v.mu.RLock()
	want := v.wantGen
	v.mu.RUnlock()

	v.raster.Refresh()

	deadline := time.After(v.settleDelay)
	tick := time.NewTicker(settlePollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return nil
		case <-tick.C:
			v.mu.RLock()
			drawn := v.drawnGen
			v.mu.RUnlock()
			if drawn >= want {
				return nil
			}
		}
	}
}

// Snapshot rasterizes the composed viewport at the given pixel ratio,
// independent of the widget's on-screen size or screen density.
func (v *Viewfinder) Snapshot(pixelRatio float64) (*image.RGBA, error) {
	scene, ok := v.scene()
	if !ok {
		return nil, compositor.ErrNotReady
	}
	return compositor.Rasterize(scene, pixelRatio)
}

// toViewport converts a widget position to viewport logical coordinates.
func (v *Viewfinder) toViewport(pos fyne.Position) (geometry.Point2D, float64) {
	size := v.Size()
	rect := viewportRectIn(float64(size.Width), float64(size.Height))
	if rect.Width == 0 {
		return geometry.Point2D{}, 1
	}
	unitsPerLogical := rect.Width / compositor.DefaultViewportWidth
	p := geometry.NewPoint2D(
		(float64(pos.X)-rect.X)/unitsPerLogical,
		(float64(pos.Y)-rect.Y)/unitsPerLogical,
	)
	return p, unitsPerLogical
}

// Dragged translates the overlay by the pointer delta.
func (v *Viewfinder) Dragged(ev *fyne.DragEvent) {
	if v.state.Overlay() == nil {
		return
	}
	_, unitsPerLogical := v.toViewport(ev.Position)
	v.state.Engine.ApplyDelta(geometry.Translation(
		float64(ev.Dragged.DX)/unitsPerLogical,
		float64(ev.Dragged.DY)/unitsPerLogical,
	))
}

// DragEnd implements fyne.Draggable.
func (v *Viewfinder) DragEnd() {}

// Scrolled scales the overlay about the pointer position.
func (v *Viewfinder) Scrolled(ev *fyne.ScrollEvent) {
	if v.state.Overlay() == nil {
		return
	}
	focal, _ := v.toViewport(ev.Position)
	factor := zoomStep
	if ev.Scrolled.DY < 0 {
		factor = 1 / zoomStep
	}
	v.state.Engine.ApplyDelta(geometry.ScalingAbout(factor, focal))
}

// RotateBy rotates the overlay about the viewport center. Wired to menu and
// keyboard actions as the desktop stand-in for a two-finger twist.
func (v *Viewfinder) RotateBy(radians float64) {
	if v.state.Overlay() == nil {
		return
	}
	center := compositor.NewViewport(compositor.DefaultViewportWidth).Center()
	v.state.Engine.ApplyDelta(geometry.RotationAbout(radians, center))
}
