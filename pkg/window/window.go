// Package window provides the window and event loop that a loopview program
// drives.
//
// A Window is bound to exactly one surface.Handle for its whole lifetime.
// An EventLoop pumps events for that window; only one EventLoop may be alive
// in a process at a time.
//
// Size changes requested from outside the loop are recorded immediately and
// applied to the surface at the start of the next pump cycle, or by the
// next Paint, whichever comes first. A paint therefore always observes the
// most recently requested size.
package window

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	lverrors "github.com/go-drift/loopview/pkg/errors"
	"github.com/go-drift/loopview/pkg/surface"
)

// Sentinel errors for window operations.
var (
	// ErrNoSurface is returned when a window is created without a surface.
	ErrNoSurface = errors.New("window: no surface")

	// ErrSurfaceBound is returned when the surface already belongs to a
	// window or has been destroyed.
	ErrSurfaceBound = errors.New("window: surface already bound")

	// ErrWindowClosed is returned when operating on a closed window.
	ErrWindowClosed = errors.New("window: closed")
)

// ID identifies a window.
type ID uint64

var nextID atomic.Uint64

// Attributes configure a new window.
type Attributes struct {
	Title     string
	InnerSize surface.Size
}

// Painter draws one frame into dst, which has the window's current size.
type Painter func(dst draw.Image, size surface.Size) error

// Window is a native-style window bound to a surface.
type Window struct {
	id     ID
	handle *surface.Handle

	mu           sync.Mutex
	requested    surface.Size
	pending      bool
	title        string
	titleChanged bool
	redraw       bool
	waker        func()
	closed       bool

	// paintMu serializes resize application with painting.
	paintMu sync.Mutex
	size    surface.Size
	frame   *image.RGBA
}

// New binds a window to handle. The handle is resized to attrs.InnerSize and
// its alt text set to attrs.Title.
func New(handle *surface.Handle, attrs Attributes) (*Window, error) {
	if handle == nil {
		return nil, ErrNoSurface
	}
	if !handle.Bind() {
		return nil, ErrSurfaceBound
	}
	if err := handle.Resize(attrs.InnerSize); err != nil {
		return nil, fmt.Errorf("window: bind surface %d: %w", handle.ID(), err)
	}
	handle.SetAlt(attrs.Title)

	return &Window{
		id:        ID(nextID.Add(1)),
		handle:    handle,
		requested: attrs.InnerSize,
		title:     attrs.Title,
		size:      attrs.InnerSize,
		frame:     image.NewRGBA(attrs.InnerSize.Rect()),
	}, nil
}

// ID returns the window id.
func (w *Window) ID() ID {
	return w.id
}

// Surface returns the surface the window renders into.
func (w *Window) Surface() *surface.Handle {
	return w.handle
}

// InnerSize returns the most recently requested size.
func (w *Window) InnerSize() surface.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requested
}

// RequestInnerSize asks for a new size. It never blocks on the event loop.
func (w *Window) RequestInnerSize(size surface.Size) {
	w.mu.Lock()
	if w.closed || w.requested == size {
		w.mu.Unlock()
		return
	}
	w.requested = size
	w.pending = true
	waker := w.waker
	w.mu.Unlock()

	if waker != nil {
		waker()
	}
}

// Title returns the window title.
func (w *Window) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

// SetTitle sets the window title and the surface's alt text.
func (w *Window) SetTitle(title string) {
	w.mu.Lock()
	if w.closed || w.title == title {
		w.mu.Unlock()
		return
	}
	w.title = title
	w.titleChanged = true
	waker := w.waker
	w.mu.Unlock()

	w.handle.SetAlt(title)
	if waker != nil {
		waker()
	}
}

// RequestRedraw schedules a RedrawRequested event for the next pump cycle.
func (w *Window) RequestRedraw() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.redraw = true
	waker := w.waker
	w.mu.Unlock()

	if waker != nil {
		waker()
	}
}

// Paint applies any pending resize, calls painter with the frame buffer,
// and presents the result to the surface.
func (w *Window) Paint(painter Painter) error {
	w.paintMu.Lock()
	defer w.paintMu.Unlock()

	if w.isClosed() {
		return ErrWindowClosed
	}
	if _, err := w.applyLocked(); err != nil {
		return err
	}
	if err := painter(w.frame, w.size); err != nil {
		return err
	}
	return w.handle.Present(w.frame)
}

// Closed reports whether the window has been closed.
func (w *Window) Closed() bool {
	return w.isClosed()
}

// Close detaches the window from its event loop. Painting and resize
// requests are refused afterwards. The surface is left to its owner.
func (w *Window) Close() {
	w.mu.Lock()
	w.closed = true
	w.waker = nil
	w.mu.Unlock()
}

func (w *Window) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// attach installs the loop's wake function. It fails if the window already
// has a loop.
func (w *Window) attach(waker func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWindowClosed
	}
	if w.waker != nil {
		return errors.New("window: already attached to an event loop")
	}
	w.waker = waker
	return nil
}

// applyPending applies a pending resize. It reports the applied size and
// whether it changed.
func (w *Window) applyPending() (surface.Size, bool) {
	w.paintMu.Lock()
	defer w.paintMu.Unlock()
	changed, err := w.applyLocked()
	if err != nil {
		lverrors.Logger().Warn("window resize failed",
			zap.Uint64("window", uint64(w.id)),
			zap.Error(err))
	}
	return w.size, changed
}

// applyLocked must be called with paintMu held.
func (w *Window) applyLocked() (bool, error) {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return false, nil
	}
	size := w.requested
	w.pending = false
	w.mu.Unlock()

	if size == w.size {
		return false, nil
	}
	if err := w.handle.Resize(size); err != nil {
		return false, err
	}
	w.size = size
	w.frame = image.NewRGBA(size.Rect())
	return true, nil
}

func (w *Window) takeTitleChange() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.titleChanged {
		return "", false
	}
	w.titleChanged = false
	return w.title, true
}

func (w *Window) takeRedraw() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.redraw
	w.redraw = false
	return r
}
