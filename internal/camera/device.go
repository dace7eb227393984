// Package camera abstracts the capture device behind a small interface so
// the capture pipeline can run against a real webcam or a test double.
package camera

import (
	"context"
	"errors"
	"image"
)

// ErrNotReady reports that the device is not initialized or has been closed.
var ErrNotReady = errors.New("camera: device not ready")

// Device exposes the two operations the application needs from capture
// hardware: the current live frame for the viewfinder, and a still photo.
type Device interface {
	// IsReady reports whether the device can deliver frames.
	IsReady() bool

	// Frame returns the current live preview frame.
	Frame(ctx context.Context) (image.Image, error)

	// CaptureStill grabs a fresh high-resolution still photo.
	CaptureStill(ctx context.Context) (image.Image, error)

	// Close releases the device.
	Close() error
}
