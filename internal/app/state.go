// Package app provides application state, configuration, and events.
package app

import (
	"image"
	"sync"

	"overcam/internal/overlay"
	"overcam/internal/transform"
	"overcam/pkg/geometry"
)

// BackgroundKind selects which layer fills the viewport behind the overlay.
type BackgroundKind int

const (
	// BackgroundLive shows the streaming camera preview.
	BackgroundLive BackgroundKind = iota
	// BackgroundStill shows a just-captured photo while the composite is
	// being rasterized and saved.
	BackgroundStill
)

func (k BackgroundKind) String() string {
	switch k {
	case BackgroundLive:
		return "LivePreview"
	case BackgroundStill:
		return "CapturedStill"
	default:
		return "Unknown"
	}
}

// Background is the active background source. Exactly one kind is active at
// a time; Still is non-nil only for BackgroundStill.
type Background struct {
	Kind  BackgroundKind
	Still image.Image
}

// EventType identifies different application events.
type EventType int

const (
	EventOverlayChanged EventType = iota
	EventBackgroundChanged
	EventTransformChanged
	EventCaptureStarted
	EventCaptureFinished
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds the application state: the picked overlay, the active
// background source, and the capture-in-progress guard. The accumulated
// overlay transform lives in the embedded engine.
type State struct {
	mu sync.RWMutex

	overlay    *overlay.Image
	background Background
	capturing  bool

	// Engine owns the overlay placement transform.
	Engine *transform.Engine

	listeners map[EventType][]EventListener
}

// NewState creates application state with a live background and an identity
// transform.
func NewState() *State {
	s := &State{
		background: Background{Kind: BackgroundLive},
		Engine:     transform.NewEngine(),
		listeners:  make(map[EventType][]EventListener),
	}
	// Transform updates refresh only the overlay layer; the background
	// preview is unaffected.
	s.Engine.OnChange(func(tr geometry.AffineTransform) {
		s.Emit(EventTransformChanged, tr)
	})
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetOverlay replaces the active overlay image wholesale and resets the
// transform to identity. Passing nil removes the overlay.
func (s *State) SetOverlay(img *overlay.Image) {
	s.mu.Lock()
	s.overlay = img
	s.mu.Unlock()

	s.Engine.Reset()
	s.Emit(EventOverlayChanged, img)
}

// Overlay returns the active overlay image, or nil.
func (s *State) Overlay() *overlay.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlay
}

// Background returns the active background source.
func (s *State) Background() Background {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.background
}

// SetStillBackground freezes the viewport on a captured still. The value is
// replaced wholesale under the lock, never partially mutated.
func (s *State) SetStillBackground(still image.Image) {
	s.mu.Lock()
	s.background = Background{Kind: BackgroundStill, Still: still}
	s.mu.Unlock()

	s.Emit(EventBackgroundChanged, s.Background())
}

// SetLiveBackground restores the streaming camera preview.
func (s *State) SetLiveBackground() {
	s.mu.Lock()
	s.background = Background{Kind: BackgroundLive}
	s.mu.Unlock()

	s.Emit(EventBackgroundChanged, s.Background())
}

// BeginCapture attempts to enter the Capturing state. It returns false when
// a capture is already in flight; concurrent requests are rejected, not
// queued.
func (s *State) BeginCapture() bool {
	s.mu.Lock()
	if s.capturing {
		s.mu.Unlock()
		return false
	}
	s.capturing = true
	s.mu.Unlock()

	s.Emit(EventCaptureStarted, nil)
	return true
}

// EndCapture leaves the Capturing state and restores the live background.
// Safe to call from a defer regardless of how the capture sequence exited.
func (s *State) EndCapture() {
	s.mu.Lock()
	s.capturing = false
	s.background = Background{Kind: BackgroundLive}
	s.mu.Unlock()

	s.Emit(EventBackgroundChanged, s.Background())
	s.Emit(EventCaptureFinished, nil)
}

// Capturing reports whether a capture sequence is in flight.
func (s *State) Capturing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capturing
}
