// Package ebitenhost hosts a loopview surface in a desktop window.
//
// Ebiten owns the main goroutine: create the Host, mount the view with the
// host as its surface factory, then call Run from main. Run returns when
// Quit is called or the game terminates.
//
//	host := ebitenhost.New()
//	doc := surface.NewDocument(host)
//	ctrl := loopview.NewController(loopview.Config[struct{}]{Program: run, Document: doc})
//	if err := ctrl.Start(); err != nil {
//	    return err
//	}
//	go func() { <-ctrl.Done(); host.Quit() }()
//	return host.Run()
package ebitenhost

import (
	"errors"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.org/x/image/draw"

	"github.com/go-drift/loopview/pkg/surface"
)

var (
	// ErrBusy is returned when a second surface is created while one is open.
	ErrBusy = errors.New("ebitenhost: a surface is already open")

	// ErrClosed is returned after the host has quit.
	ErrClosed = errors.New("ebitenhost: host closed")
)

var mouseButtons = []ebiten.MouseButton{
	ebiten.MouseButtonLeft,
	ebiten.MouseButtonRight,
	ebiten.MouseButtonMiddle,
}

// Host is an ebiten.Game that displays the frames of one surface.
type Host struct {
	mu       sync.Mutex
	target   *Target
	frame    *image.RGBA
	dirty    bool
	onResize func(surface.Size)
	closed   bool

	// Touched only on the game goroutine.
	img          *ebiten.Image
	outside      surface.Size
	cursorX      int
	cursorY      int
	focused      bool
	closeClaimed bool

	quit     chan struct{}
	quitOnce sync.Once
}

// New returns a host. The window opens when Run is called.
func New() *Host {
	return &Host{quit: make(chan struct{}), focused: true}
}

// OnResize registers fn to be called with the new window size when the user
// resizes the window. fn runs on the game goroutine and must not block.
func (h *Host) OnResize(fn func(surface.Size)) {
	h.mu.Lock()
	h.onResize = fn
	h.mu.Unlock()
}

// NewTarget implements surface.Factory.
func (h *Host) NewTarget(id surface.NodeID, size surface.Size) (surface.Target, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if h.target != nil {
		return nil, ErrBusy
	}
	t := &Target{
		host: h,
		id:   id,
		in:   make(chan surface.InputEvent, 64),
	}
	h.target = t
	if !size.Empty() {
		ebiten.SetWindowSize(int(size.Width), int(size.Height))
	}
	return t, nil
}

// Run opens the window and runs the game on the calling goroutine, which
// must be the main goroutine. It returns nil after Quit.
func (h *Host) Run() error {
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	err := ebiten.RunGame(h)
	h.Quit()
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Quit makes Run return at the next update.
func (h *Host) Quit() {
	h.quitOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		t := h.target
		h.mu.Unlock()
		close(h.quit)
		if t != nil {
			t.Close()
		}
	})
}

// Update implements ebiten.Game.
func (h *Host) Update() error {
	select {
	case <-h.quit:
		return ebiten.Termination
	default:
	}

	if ebiten.IsWindowBeingClosed() && !h.closeClaimed {
		h.closeClaimed = true
		h.deliver(surface.InputEvent{Kind: surface.InputCloseRequested})
	}

	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		h.deliver(surface.InputEvent{Kind: surface.InputKey, Key: k.String(), Pressed: true})
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		h.deliver(surface.InputEvent{Kind: surface.InputKey, Key: k.String()})
	}

	x, y := ebiten.CursorPosition()
	if x != h.cursorX || y != h.cursorY {
		h.cursorX, h.cursorY = x, y
		h.deliver(surface.InputEvent{Kind: surface.InputPointerMoved, X: float64(x), Y: float64(y)})
	}
	for i, b := range mouseButtons {
		switch {
		case inpututil.IsMouseButtonJustPressed(b):
			h.deliver(surface.InputEvent{Kind: surface.InputPointerButton, X: float64(x), Y: float64(y), Button: i, Pressed: true})
		case inpututil.IsMouseButtonJustReleased(b):
			h.deliver(surface.InputEvent{Kind: surface.InputPointerButton, X: float64(x), Y: float64(y), Button: i})
		}
	}

	if focused := ebiten.IsFocused(); focused != h.focused {
		h.focused = focused
		h.deliver(surface.InputEvent{Kind: surface.InputFocus, Focused: focused})
	}

	h.upload()
	return nil
}

// Draw implements ebiten.Game.
func (h *Host) Draw(screen *ebiten.Image) {
	if h.img == nil {
		return
	}
	src := h.img.Bounds()
	dst := screen.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(dst.Dx())/float64(src.Dx()), float64(dst.Dy())/float64(src.Dy()))
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(h.img, op)
}

// Layout implements ebiten.Game.
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	size := surface.Sz(uint32(max(outsideWidth, 1)), uint32(max(outsideHeight, 1)))
	if size != h.outside {
		first := h.outside.Empty()
		h.outside = size
		h.mu.Lock()
		fn := h.onResize
		h.mu.Unlock()
		if fn != nil && !first {
			fn(size)
		}
	}
	return int(size.Width), int(size.Height)
}

// upload copies the latest presented frame into the game image.
func (h *Host) upload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.dirty || h.frame == nil {
		return
	}
	h.dirty = false
	b := h.frame.Rect
	if h.img == nil || h.img.Bounds().Size() != b.Size() {
		if h.img != nil {
			h.img.Deallocate()
		}
		h.img = ebiten.NewImage(b.Dx(), b.Dy())
	}
	h.img.WritePixels(h.frame.Pix)
}

func (h *Host) present(frame image.Image) {
	b := frame.Bounds()
	if b.Empty() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frame == nil || h.frame.Rect.Size() != b.Size() {
		h.frame = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Draw(h.frame, h.frame.Rect, frame, b.Min, draw.Src)
	h.dirty = true
}

func (h *Host) deliver(ev surface.InputEvent) {
	h.mu.Lock()
	t := h.target
	h.mu.Unlock()
	if t != nil {
		t.send(ev)
	}
}

func (h *Host) release(t *Target) {
	h.mu.Lock()
	if h.target == t {
		h.target = nil
		h.frame = nil
		h.dirty = false
	}
	h.mu.Unlock()
}
