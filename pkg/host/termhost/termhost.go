// Package termhost hosts a loopview surface in a terminal.
//
// The host renders each frame with upper half blocks, so one terminal cell
// shows two vertically stacked pixels. A terminal of 80x25 cells is a
// surface of 80x50 pixels. Key, mouse and focus events are forwarded to the
// surface's input channel; Escape and Ctrl-C arrive as close requests.
package termhost

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/draw"

	lverrors "github.com/go-drift/loopview/pkg/errors"
	"github.com/go-drift/loopview/pkg/surface"
)

var (
	// ErrBusy is returned when a second surface is created while one is open.
	ErrBusy = errors.New("termhost: a surface is already open")

	// ErrClosed is returned after the host has been closed.
	ErrClosed = errors.New("termhost: host closed")
)

const halfBlock = '▀'

// Host owns a terminal screen and serves at most one surface at a time.
type Host struct {
	screen tcell.Screen

	mu       sync.Mutex
	target   *Target
	onResize func(surface.Size)
	buttons  tcell.ButtonMask
	closed   bool

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open initialises the controlling terminal.
func Open() (*Host, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("termhost: new screen: %w", err)
	}
	return New(screen)
}

// New initialises screen and starts reading its events. The host takes
// ownership of screen; Close finalises it.
func New(screen tcell.Screen) (*Host, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("termhost: init screen: %w", err)
	}
	screen.EnableMouse()
	screen.EnableFocus()
	screen.Clear()

	h := &Host{screen: screen}
	h.wg.Add(1)
	go h.poll()
	return h, nil
}

// PixelSize returns the terminal size in surface pixels.
func (h *Host) PixelSize() surface.Size {
	cols, rows := h.screen.Size()
	return cellsToPixels(cols, rows)
}

// OnResize registers fn to be called with the new pixel size whenever the
// terminal is resized. fn runs on the host's event goroutine.
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
		size: size,
		in:   make(chan surface.InputEvent, 64),
	}
	h.target = t
	return t, nil
}

// Close closes any open surface and restores the terminal.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		t := h.target
		h.mu.Unlock()
		if t != nil {
			t.Close()
		}
		h.screen.Fini()
		h.wg.Wait()
	})
}

func (h *Host) poll() {
	defer h.wg.Done()
	for {
		ev := h.screen.PollEvent()
		if ev == nil {
			return
		}
		h.dispatch(ev)
	}
}

// notifyResize runs the resize callback. A panic in it is reported and the
// poll loop keeps running.
func notifyResize(fn func(surface.Size), size surface.Size) {
	defer lverrors.Recover("termhost.resize")
	fn(size)
}

func (h *Host) dispatch(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		size := cellsToPixels(ev.Size())
		h.mu.Lock()
		fn := h.onResize
		h.mu.Unlock()
		if fn != nil {
			notifyResize(fn, size)
		}

	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			h.deliver(surface.InputEvent{Kind: surface.InputCloseRequested})
			return
		}
		h.deliver(surface.InputEvent{Kind: surface.InputKey, Key: keyName(ev), Pressed: true})

	case *tcell.EventMouse:
		col, row := ev.Position()
		x, y := float64(col), float64(row*2)
		h.deliver(surface.InputEvent{Kind: surface.InputPointerMoved, X: x, Y: y})

		buttons := ev.Buttons() & (tcell.Button1 | tcell.Button2 | tcell.Button3)
		h.mu.Lock()
		changed := buttons ^ h.buttons
		h.buttons = buttons
		h.mu.Unlock()
		for i, b := range []tcell.ButtonMask{tcell.Button1, tcell.Button2, tcell.Button3} {
			if changed&b != 0 {
				h.deliver(surface.InputEvent{
					Kind:    surface.InputPointerButton,
					X:       x,
					Y:       y,
					Button:  i,
					Pressed: buttons&b != 0,
				})
			}
		}

	case *tcell.EventFocus:
		h.deliver(surface.InputEvent{Kind: surface.InputFocus, Focused: ev.Focused})
	}
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
	}
	closed := h.closed
	h.mu.Unlock()
	if !closed {
		h.screen.Clear()
		h.screen.Show()
	}
}

// render scales frame to the terminal and draws it as half blocks.
func (h *Host) render(frame image.Image) {
	cols, rows := h.screen.Size()
	if cols <= 0 || rows <= 0 || frame.Bounds().Empty() {
		return
	}
	px := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	if frame.Bounds().Size() == px.Rect.Size() {
		draw.Draw(px, px.Rect, frame, frame.Bounds().Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(px, px.Rect, frame, frame.Bounds(), draw.Src, nil)
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			top := px.RGBAAt(col, row*2)
			bottom := px.RGBAAt(col, row*2+1)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			h.screen.SetContent(col, row, halfBlock, nil, style)
		}
	}
	h.screen.Show()
}

func cellsToPixels(cols, rows int) surface.Size {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	return surface.Sz(uint32(cols), uint32(rows*2))
}

func keyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		return string(ev.Rune())
	}
	return ev.Name()
}
