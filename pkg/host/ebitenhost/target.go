package ebitenhost

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/go-drift/loopview/pkg/surface"
)

// Target is a surface shown in the host window.
type Target struct {
	host *Host
	id   surface.NodeID

	mu     sync.Mutex
	in     chan surface.InputEvent
	closed bool
}

// ID returns the surface node the target was created for.
func (t *Target) ID() surface.NodeID {
	return t.id
}

// Resize implements surface.Target by resizing the window.
func (t *Target) Resize(size surface.Size) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return surface.ErrDestroyed
	}
	if size.Empty() {
		return nil
	}
	w, h := ebiten.WindowSize()
	if w != int(size.Width) || h != int(size.Height) {
		ebiten.SetWindowSize(int(size.Width), int(size.Height))
	}
	return nil
}

// Present implements surface.Target. The frame is shown at the next draw.
func (t *Target) Present(frame image.Image) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return surface.ErrDestroyed
	}
	t.host.present(frame)
	return nil
}

// SetTitle implements surface.Titled.
func (t *Target) SetTitle(title string) {
	ebiten.SetWindowTitle(title)
}

// Input implements surface.InputSource.
func (t *Target) Input() <-chan surface.InputEvent {
	return t.in
}

// Close implements surface.Target.
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
