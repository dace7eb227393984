// Package compositor composes the viewport scene and rasterizes it into
// device-independent pixel buffers.
package compositor

import (
	"errors"
	"image"

	"overcam/internal/overlay"
	"overcam/pkg/geometry"
)

const (
	// AspectWidth and AspectHeight define the fixed viewport aspect ratio.
	AspectWidth  = 3.0
	AspectHeight = 4.0

	// DefaultViewportWidth is the logical width of the composed viewport.
	DefaultViewportWidth = 360.0

	// DefaultAnchorWidth is the fixed logical display width of the overlay
	// before the user transform is applied.
	DefaultAnchorWidth = 300.0

	// DefaultPixelRatio converts logical viewport units to output pixels.
	// It is a caller-supplied multiplier, deliberately independent of the
	// screen density the scene happens to be previewed at.
	DefaultPixelRatio = 3.0
)

// ErrNotReady reports that the scene cannot be rasterized yet, typically
// because the background layer has not been attached. Callers are expected
// to retry once after a short delay before treating it as a hard failure.
var ErrNotReady = errors.New("compositor: scene not ready to rasterize")

// Viewport is the logical size of the composed scene.
type Viewport struct {
	Width  float64
	Height float64
}

// NewViewport returns a viewport of the given logical width with the fixed
// 3:4 aspect ratio.
func NewViewport(width float64) Viewport {
	return Viewport{Width: width, Height: width * AspectHeight / AspectWidth}
}

// Size returns the viewport as a geometry.Size.
func (v Viewport) Size() geometry.Size {
	return geometry.Size{Width: v.Width, Height: v.Height}
}

// Center returns the viewport center in logical coordinates.
func (v Viewport) Center() geometry.Point2D {
	return geometry.Point2D{X: v.Width / 2, Y: v.Height / 2}
}

// Scene is the logical composed viewport: a background layer filling the
// viewport with cover semantics, and an optional overlay drawn at the anchor
// width, centered, with the user transform applied on top of that placement.
type Scene struct {
	// Background fills the viewport. nil means the background layer is not
	// attached yet and rasterization fails with ErrNotReady.
	Background image.Image

	// Overlay is the user-picked image, or nil when absent.
	Overlay *overlay.Image

	// Transform is the accumulated gesture transform, in viewport logical
	// coordinates, applied after the anchored centered placement.
	Transform geometry.AffineTransform

	// Viewport is the logical size of the composed scene.
	Viewport Viewport

	// AnchorWidth is the fixed logical display width of the overlay before
	// Transform. Zero selects DefaultAnchorWidth.
	AnchorWidth float64
}

// anchorWidth returns the effective anchor width.
func (s Scene) anchorWidth() float64 {
	if s.AnchorWidth > 0 {
		return s.AnchorWidth
	}
	return DefaultAnchorWidth
}

// OverlayPlacement returns the transform mapping overlay source pixels into
// viewport logical coordinates: anchored centered placement first, then the
// user transform. The ordering is correctness-sensitive and must not change.
func (s Scene) OverlayPlacement() (geometry.AffineTransform, bool) {
	if s.Overlay == nil || s.Overlay.Width() == 0 || s.Overlay.Height() == 0 {
		return geometry.AffineTransform{}, false
	}

	ow := float64(s.Overlay.Width())
	oh := float64(s.Overlay.Height())
	scale := s.anchorWidth() / ow
	center := s.Viewport.Center()

	anchored := geometry.Translation(center.X, center.Y).
		Compose(geometry.Scaling(scale, scale)).
		Compose(geometry.Translation(-ow/2, -oh/2))

	return s.Transform.Compose(anchored), true
}
