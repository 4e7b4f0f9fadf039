package termhost

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	lverrors "github.com/go-drift/loopview/pkg/errors"
	"github.com/go-drift/loopview/pkg/surface"
)

func newSimHost(t *testing.T, cols, rows int) (*Host, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	h, err := New(screen)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	screen.SetSize(cols, rows)
	t.Cleanup(h.Close)
	return h, screen
}

func newTarget(t *testing.T, h *Host) *Target {
	t.Helper()
	target, err := h.NewTarget(1, h.PixelSize())
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	return target.(*Target)
}

func nextInput(t *testing.T, target *Target) surface.InputEvent {
	t.Helper()
	select {
	case ev := <-target.Input():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no input delivered")
		return surface.InputEvent{}
	}
}

func TestPixelSize(t *testing.T) {
	h, _ := newSimHost(t, 10, 4)
	if got := h.PixelSize(); got != surface.Sz(10, 8) {
		t.Errorf("PixelSize() = %v, want 10x8", got)
	}
}

func TestPresentDrawsHalfBlocks(t *testing.T) {
	h, screen := newSimHost(t, 4, 2)
	target := newTarget(t, h)

	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		c := red
		if y%2 == 1 {
			c = blue
		}
		for x := 0; x < 4; x++ {
			frame.SetRGBA(x, y, c)
		}
	}
	if err := target.Present(frame); err != nil {
		t.Fatalf("Present: %v", err)
	}

	cells, cols, rows := screen.GetContents()
	if cols != 4 || rows != 2 {
		t.Fatalf("screen = %dx%d, want 4x2", cols, rows)
	}
	for i, cell := range cells {
		if len(cell.Runes) == 0 || cell.Runes[0] != halfBlock {
			t.Fatalf("cell %d = %q, want half block", i, cell.Runes)
		}
		fg, bg, _ := cell.Style.Decompose()
		if fg != tcell.NewRGBColor(255, 0, 0) || bg != tcell.NewRGBColor(0, 0, 255) {
			t.Fatalf("cell %d colors fg=%v bg=%v, want red over blue", i, fg, bg)
		}
	}
}

func TestPresentScalesFrame(t *testing.T) {
	h, screen := newSimHost(t, 2, 1)
	target := newTarget(t, h)

	frame := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for i := range frame.Pix {
		frame.Pix[i] = 0xff
	}
	if err := target.Present(frame); err != nil {
		t.Fatal(err)
	}
	cells, _, _ := screen.GetContents()
	fg, _, _ := cells[0].Style.Decompose()
	if r, g, b := fg.RGB(); r < 250 || g < 250 || b < 250 {
		t.Errorf("fg = %v, want white", fg)
	}
}

func TestOneSurfaceAtATime(t *testing.T) {
	h, _ := newSimHost(t, 4, 2)
	target := newTarget(t, h)

	if _, err := h.NewTarget(2, surface.Sz(1, 1)); !errors.Is(err, ErrBusy) {
		t.Fatalf("second NewTarget err = %v, want ErrBusy", err)
	}
	target.Close()
	target.Close()
	if _, err := h.NewTarget(3, surface.Sz(1, 1)); err != nil {
		t.Fatalf("NewTarget after Close: %v", err)
	}
	if err := target.Present(image.NewRGBA(image.Rect(0, 0, 1, 1))); !errors.Is(err, surface.ErrDestroyed) {
		t.Errorf("Present after Close err = %v, want ErrDestroyed", err)
	}
	if err := target.Resize(surface.Sz(2, 2)); !errors.Is(err, surface.ErrDestroyed) {
		t.Errorf("Resize after Close err = %v, want ErrDestroyed", err)
	}
}

func TestKeyInput(t *testing.T) {
	h, screen := newSimHost(t, 4, 2)
	target := newTarget(t, h)

	screen.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	ev := nextInput(t, target)
	if ev.Kind != surface.InputKey || ev.Key != "a" || !ev.Pressed {
		t.Errorf("key event = %+v, want pressed a", ev)
	}

	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	if ev := nextInput(t, target); ev.Kind != surface.InputCloseRequested {
		t.Errorf("escape event = %+v, want close request", ev)
	}
}

func TestMouseInput(t *testing.T) {
	h, screen := newSimHost(t, 4, 2)
	target := newTarget(t, h)

	screen.InjectMouse(2, 1, tcell.Button1, tcell.ModNone)
	moved := nextInput(t, target)
	if moved.Kind != surface.InputPointerMoved || moved.X != 2 || moved.Y != 2 {
		t.Errorf("move = %+v, want pointer at 2,2", moved)
	}
	press := nextInput(t, target)
	if press.Kind != surface.InputPointerButton || !press.Pressed || press.Button != 0 {
		t.Errorf("press = %+v, want primary press", press)
	}

	screen.InjectMouse(2, 1, tcell.ButtonNone, tcell.ModNone)
	nextInput(t, target)
	release := nextInput(t, target)
	if release.Kind != surface.InputPointerButton || release.Pressed {
		t.Errorf("release = %+v, want primary release", release)
	}
}

func TestResizeCallback(t *testing.T) {
	h, screen := newSimHost(t, 4, 2)
	sizes := make(chan surface.Size, 8)
	h.OnResize(func(size surface.Size) {
		select {
		case sizes <- size:
		default:
		}
	})

	if err := screen.PostEvent(tcell.NewEventResize(6, 3)); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-sizes:
			if got == surface.Sz(6, 6) {
				return
			}
		case <-deadline:
			t.Fatal("resize callback not called with 6x6")
		}
	}
}

type panicCounter struct {
	panics chan *lverrors.PanicError
}

func (p *panicCounter) HandleError(*lverrors.LoopError) {}

func (p *panicCounter) HandlePanic(err *lverrors.PanicError) {
	select {
	case p.panics <- err:
	default:
	}
}

func TestResizeCallbackPanicKeepsPolling(t *testing.T) {
	rec := &panicCounter{panics: make(chan *lverrors.PanicError, 4)}
	lverrors.SetHandler(rec)
	t.Cleanup(func() { lverrors.SetHandler(nil) })

	h, screen := newSimHost(t, 4, 2)
	target := newTarget(t, h)
	h.OnResize(func(surface.Size) { panic("resize handler") })

	if err := screen.PostEvent(tcell.NewEventResize(6, 3)); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-rec.panics:
		if p.Op != "termhost.resize" || p.Value != "resize handler" {
			t.Errorf("panic = %+v, want termhost.resize", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("panic was not reported")
	}

	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	for {
		ev := nextInput(t, target)
		if ev.Kind == surface.InputKey {
			if ev.Key != "x" {
				t.Errorf("key = %q, want x", ev.Key)
			}
			return
		}
	}
}

func TestTitleAndClose(t *testing.T) {
	h, screen := newSimHost(t, 4, 2)
	target := newTarget(t, h)
	target.SetTitle("Demo")
	if screen.GetTitle() != "Demo" {
		t.Errorf("title = %q, want Demo", screen.GetTitle())
	}

	h.Close()
	if _, ok := <-target.Input(); ok {
		t.Error("input channel should be closed with the host")
	}
	if _, err := h.NewTarget(4, surface.Sz(1, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("NewTarget after Close err = %v, want ErrClosed", err)
	}
}
