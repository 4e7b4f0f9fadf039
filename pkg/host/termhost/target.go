package termhost

import (
	"image"
	"sync"

	"github.com/go-drift/loopview/pkg/surface"
)

// Target is a surface drawn on the host terminal. Frames of any size are
// scaled to fit the terminal.
type Target struct {
	host *Host
	id   surface.NodeID

	mu     sync.Mutex
	size   surface.Size
	title  string
	in     chan surface.InputEvent
	closed bool
}

// ID returns the surface node the target was created for.
func (t *Target) ID() surface.NodeID {
	return t.id
}

// Resize implements surface.Target. The terminal's own size is not changed.
func (t *Target) Resize(size surface.Size) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return surface.ErrDestroyed
	}
	t.size = size
	return nil
}

// Size returns the size last set by Resize.
func (t *Target) Size() surface.Size {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Present implements surface.Target.
func (t *Target) Present(frame image.Image) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return surface.ErrDestroyed
	}
	t.host.render(frame)
	return nil
}

// SetTitle implements surface.Titled.
func (t *Target) SetTitle(title string) {
	t.mu.Lock()
	t.title = title
	closed := t.closed
	t.mu.Unlock()
	if !closed {
		t.host.screen.SetTitle(title)
	}
}

// Input implements surface.InputSource.
func (t *Target) Input() <-chan surface.InputEvent {
	return t.in
}

// Close implements surface.Target. It frees the host for another surface.
func (t *Target) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.in)
	t.mu.Unlock()

	t.host.release(t)
	return nil
}

// send drops ev when the input buffer is full.
func (t *Target) send(ev surface.InputEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.in <- ev:
	default:
	}
}
