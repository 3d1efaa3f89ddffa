package view

import (
	"sync"

	"github.com/coachpo/rosterview/internal/observability"
)

// RenderFunc produces the view's output for the caller to display.
type RenderFunc func() (string, error)

// FallbackFunc produces the substitute output shown after a reported failure.
type FallbackFunc func(err error) string

// Boundary supervises the top-level render path. A render error, or a failure
// reported from elsewhere, latches the boundary: subsequent renders return the
// fallback output until Reset is called. Failures travel as explicit error
// values, never as panics.
type Boundary struct {
	mu       sync.Mutex
	fallback FallbackFunc
	cause    error
}

// NewBoundary builds a boundary around the given fallback producer.
func NewBoundary(fallback FallbackFunc) *Boundary {
	if fallback == nil {
		fallback = func(err error) string { return "something went wrong" }
	}
	return &Boundary{fallback: fallback}
}

// Render invokes render unless the boundary is latched, in which case the
// fallback output is returned instead. An error from render latches the
// boundary.
func (b *Boundary) Render(render RenderFunc) string {
	b.mu.Lock()
	cause := b.cause
	b.mu.Unlock()
	if cause != nil {
		return b.fallback(cause)
	}
	out, err := render()
	if err != nil {
		b.Report(err)
		return b.fallback(err)
	}
	return out
}

// Report latches the boundary with the given failure. The first reported
// cause wins; later reports while latched are ignored.
func (b *Boundary) Report(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cause != nil {
		return
	}
	b.cause = err
	observability.Log().Error("render boundary latched",
		observability.Field{Key: "error", Value: err.Error()})
}

// Failed returns the latched cause, if any.
func (b *Boundary) Failed() (error, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cause, b.cause != nil
}

// Reset clears a latched failure so the next Render attempts real output
// again.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cause = nil
}
