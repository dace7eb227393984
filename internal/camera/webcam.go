package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Still capture requests a higher frame size than the preview stream; most
// UVC webcams switch modes transparently.
const (
	stillWidth  = 1920
	stillHeight = 1440

	// Frames discarded before a still so the driver's buffer does not serve
	// a stale preview frame.
	stillFlushFrames = 2
)

// Webcam is a Device backed by a V4L/UVC camera through OpenCV.
type Webcam struct {
	mu       sync.Mutex
	cap      *gocv.VideoCapture
	deviceID int
	closed   bool
}

// OpenWebcam opens the camera with the given device index.
func OpenWebcam(deviceID int) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera %d: %w", deviceID, ErrNotReady)
	}
	return &Webcam{cap: cap, deviceID: deviceID}, nil
}

// IsReady reports whether the camera can deliver frames.
func (w *Webcam) IsReady() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cap != nil && !w.closed && w.cap.IsOpened()
}

// Frame reads the current live preview frame.
func (w *Webcam) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil || w.closed {
		return nil, ErrNotReady
	}
	return w.readFrame()
}

// CaptureStill switches the stream to the still resolution, flushes buffered
// preview frames, and grabs one fresh frame.
func (w *Webcam) CaptureStill(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil || w.closed {
		return nil, ErrNotReady
	}

	prevW := w.cap.Get(gocv.VideoCaptureFrameWidth)
	prevH := w.cap.Get(gocv.VideoCaptureFrameHeight)
	w.cap.Set(gocv.VideoCaptureFrameWidth, stillWidth)
	w.cap.Set(gocv.VideoCaptureFrameHeight, stillHeight)
	defer func() {
		w.cap.Set(gocv.VideoCaptureFrameWidth, prevW)
		w.cap.Set(gocv.VideoCaptureFrameHeight, prevH)
	}()

	flush := gocv.NewMat()
	defer flush.Close()
	for i := 0; i < stillFlushFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w.cap.Read(&flush)
	}

	return w.readFrame()
}

// readFrame reads one frame and converts it to image.Image.
// Caller holds w.mu.
func (w *Webcam) readFrame() (image.Image, error) {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := w.cap.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("camera %d: failed to read frame", w.deviceID)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("camera %d: failed to convert frame: %w", w.deviceID, err)
	}
	return img, nil
}

// Close releases the camera.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil || w.closed {
		return nil
	}
	w.closed = true
	return w.cap.Close()
}
