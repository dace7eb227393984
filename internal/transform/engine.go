// Package transform maintains the overlay placement transform driven by gestures.
package transform

import (
	"sync"

	"overcam/pkg/geometry"
)

// Engine owns the accumulated overlay transform. Gesture handlers feed it
// incremental deltas; the compositor reads atomic snapshots each render.
type Engine struct {
	mu      sync.RWMutex
	current geometry.AffineTransform

	// onChange is invoked after every update with the new transform so the
	// presentation layer can refresh the overlay without redrawing the
	// background preview.
	onChange func(geometry.AffineTransform)
}

// NewEngine creates an engine at the identity transform.
func NewEngine() *Engine {
	return &Engine{current: geometry.Identity()}
}

// OnChange registers a callback fired after ApplyDelta and Reset.
// The callback runs outside the engine lock.
func (e *Engine) OnChange(fn func(geometry.AffineTransform)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// Current returns a snapshot of the accumulated transform.
func (e *Engine) Current() geometry.AffineTransform {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// ApplyDelta replaces the accumulated transform with delta composed before
// the current placement (delta pre-multiplied: new = delta * current) and
// returns the new value. Translation, scale, and rotation are unconstrained;
// the overlay may be moved fully off-viewport or scaled arbitrarily.
func (e *Engine) ApplyDelta(delta geometry.AffineTransform) geometry.AffineTransform {
	e.mu.Lock()
	e.current = delta.Compose(e.current)
	next := e.current
	fn := e.onChange
	e.mu.Unlock()

	if fn != nil {
		fn(next)
	}
	return next
}

// Reset returns the transform to identity. Called whenever the active
// overlay image changes.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.current = geometry.Identity()
	fn := e.onChange
	e.mu.Unlock()

	if fn != nil {
		fn(geometry.Identity())
	}
}
