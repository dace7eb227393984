// Package capture coordinates the still-photo capture, compositing, and
// persistence sequence.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"overcam/internal/app"
	"overcam/internal/camera"
	"overcam/internal/compositor"
	"overcam/internal/library"

	xdraw "golang.org/x/image/draw"
)

var (
	// ErrBusy reports that a capture sequence is already in flight.
	// Concurrent requests are rejected, never queued.
	ErrBusy = errors.New("capture: already capturing")

	// ErrDeviceNotReady reports that no usable camera device is attached.
	ErrDeviceNotReady = errors.New("capture: camera device not ready")
)

// Renderer is the presentation surface the orchestrator snapshots. The live
// viewfinder implements it; tests use a stub.
type Renderer interface {
	// Settle blocks until the most recent background swap has been drawn,
	// so the snapshot sees the frozen still underneath the overlay.
	Settle(ctx context.Context) error

	// Snapshot rasterizes the composed viewport at the given pixel ratio.
	// It fails with compositor.ErrNotReady transiently when the render
	// surface has not laid out yet.
	Snapshot(pixelRatio float64) (*image.RGBA, error)
}

// Notifier surfaces the outcome of a capture attempt to the user. Exactly
// one of the two methods is called per accepted attempt.
type Notifier interface {
	CaptureSaved(path string)
	CaptureFailed(err error)
}

// Options tune the capture sequence.
type Options struct {
	// PixelRatio for the final rasterization. <= 0 selects the compositor
	// default.
	PixelRatio float64

	// Album the capture is saved into. Empty selects library.DefaultAlbum.
	Album string

	// RetryDelay is the pause before the single rasterization retry after a
	// transient not-ready failure.
	RetryDelay time.Duration

	// Now supplies capture timestamps; nil selects time.Now.
	Now func() time.Time
}

// Result is the flattened output of one successful capture.
type Result struct {
	Image *image.RGBA // Rasterized composite
	Data  []byte      // PNG encoding of Image
	Name  string      // Timestamped file name
	Path  string      // Final location in the library
}

// Orchestrator runs the capture state machine: Idle -> Capturing -> Idle.
// The sequence is strictly sequential; each step suspends on its collaborator
// without blocking gesture handling, and cleanup back to the live preview is
// unconditional.
type Orchestrator struct {
	state    *app.State
	device   camera.Device
	renderer Renderer
	writer   library.Writer
	notifier Notifier
	opts     Options
}

// New wires an orchestrator. All collaborators are required except that the
// device may be nil when camera permission was denied, in which case every
// Capture call is rejected with ErrDeviceNotReady.
func New(state *app.State, device camera.Device, renderer Renderer, writer library.Writer, notifier Notifier, opts Options) *Orchestrator {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		state:    state,
		device:   device,
		renderer: renderer,
		writer:   writer,
		notifier: notifier,
		opts:     opts,
	}
}

// Capture runs one capture sequence. Requests while a sequence is in flight
// or while the device is not ready are rejected without a user notification;
// a rejected start is not a capture attempt. Once accepted, the sequence runs
// to completion and surfaces its outcome through the notifier exactly once.
func (o *Orchestrator) Capture(ctx context.Context) (*Result, error) {
	if o.device == nil || !o.device.IsReady() {
		return nil, ErrDeviceNotReady
	}
	if !o.state.BeginCapture() {
		return nil, ErrBusy
	}
	// Guaranteed cleanup: back to the live preview and Idle on every exit
	// path, success or failure.
	defer o.state.EndCapture()

	res, err := o.run(ctx)
	if err != nil {
		o.notifier.CaptureFailed(err)
		return nil, err
	}
	o.notifier.CaptureSaved(res.Path)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context) (*Result, error) {
	// 1. High-resolution still from the device.
	still, err := o.device.CaptureStill(ctx)
	if err != nil {
		return nil, fmt.Errorf("still capture failed: %w", err)
	}

	// 2. Preload: convert to RGBA now so the first draw of the frozen
	// background is not a decode stall (prevents a blank-frame flash).
	still = preload(still)

	// 3. Freeze the preview on the captured still.
	o.state.SetStillBackground(still)

	// 4. Wait for one settled render frame before snapshotting.
	if err := o.renderer.Settle(ctx); err != nil {
		return nil, fmt.Errorf("render settle failed: %w", err)
	}

	// 5. Rasterize, with one bounded retry on transient not-ready.
	img, err := o.snapshotWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	// 6. Encode and name.
	data, err := compositor.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	name := library.CaptureName(o.opts.Now())

	// 7. Persist to the library.
	path, err := o.writer.Save(ctx, data, name, o.opts.Album)
	if err != nil {
		return nil, fmt.Errorf("failed to save capture: %w", err)
	}

	return &Result{Image: img, Data: data, Name: name, Path: path}, nil
}

// snapshotWithRetry rasterizes the composed viewport, retrying once after
// RetryDelay when the surface reports it is not ready yet. A second failure
// escalates.
func (o *Orchestrator) snapshotWithRetry(ctx context.Context) (*image.RGBA, error) {
	img, err := o.renderer.Snapshot(o.opts.PixelRatio)
	if err == nil {
		return img, nil
	}
	if !errors.Is(err, compositor.ErrNotReady) {
		return nil, fmt.Errorf("rasterization failed: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(o.opts.RetryDelay):
	}

	img, err = o.renderer.Snapshot(o.opts.PixelRatio)
	if err != nil {
		return nil, fmt.Errorf("rasterization failed after retry: %w", err)
	}
	return img, nil
}

// preload returns the still as render-ready RGBA pixels.
func preload(img image.Image) image.Image {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	xdraw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, xdraw.Src)
	return rgba
}
