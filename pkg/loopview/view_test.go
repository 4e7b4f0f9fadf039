package loopview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-drift/loopview/pkg/core"
	"github.com/go-drift/loopview/pkg/signal"
	"github.com/go-drift/loopview/pkg/surface"
)

func mountView(t *testing.T, v View[string]) (core.Element, *Controller[string]) {
	t.Helper()
	element, err := core.Inflate(v, nil)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	ctrl := ControllerOf[string](element)
	if ctrl == nil {
		t.Fatal("ControllerOf returned nil for a mounted view")
	}
	t.Cleanup(func() {
		element.Unmount()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ctrl.Wait(ctx)
	})
	return element, ctrl
}

func TestViewMountUnmount(t *testing.T) {
	doc := surface.NewDocument(nil)
	guard := NewGuard()
	p := newSpy()
	view := View[string]{
		Program:       p.program,
		Alt:           signal.Static("Demo"),
		ElementID:     "canvas",
		Document:      doc,
		Guard:         guard,
		FrameInterval: time.Millisecond,
	}
	element, ctrl := mountView(t, view)

	if ctrl.State() != Running || !guard.Held() {
		t.Fatalf("State=%v held=%v, want running and held", ctrl.State(), guard.Held())
	}
	h := doc.ElementByID("canvas")
	if h == nil || h.Alt() != "Demo" {
		t.Fatal("surface should be attached with its alt text")
	}
	if ctrl.Window().InnerSize() != surface.Sz(DefaultWidth, DefaultHeight) {
		t.Errorf("size = %v, want default", ctrl.Window().InnerSize())
	}

	element.Unmount()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if guard.Held() || doc.Len() != 0 {
		t.Fatalf("held=%v doc.Len=%d after unmount", guard.Held(), doc.Len())
	}

	_, again := mountView(t, view)
	if again.State() != Running {
		t.Error("remount should succeed once the first instance is gone")
	}
}

func TestViewSecondMountFails(t *testing.T) {
	doc := surface.NewDocument(nil)
	guard := NewGuard()
	view := View[string]{Program: newSpy().program, Document: doc, Guard: guard}
	_, first := mountView(t, view)

	element, err := core.Inflate(view, nil)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}
	if element != nil {
		t.Error("failed mount should not return an element")
	}
	if first.State() != Running || doc.Len() != 1 {
		t.Error("first view should keep running")
	}
}

func TestViewRebuildUpdatesInputs(t *testing.T) {
	width := signal.New[uint32](500)
	view := View[string]{
		Program:  newSpy().program,
		Width:    signal.Dynamic(width),
		Height:   signal.Static[uint32](500),
		Document: surface.NewDocument(nil),
		Guard:    NewGuard(),
	}
	element, ctrl := mountView(t, view)
	win := ctrl.Window()

	width.Set(800)
	if win.InnerSize() != surface.Sz(800, 500) {
		t.Fatalf("InnerSize() = %v, want 800x500", win.InnerSize())
	}

	rebuilt := view
	rebuilt.Height = signal.Static[uint32](300)
	rebuilt.Alt = signal.Static("Resized")
	element.Update(rebuilt)

	if win.InnerSize() != surface.Sz(800, 300) {
		t.Errorf("InnerSize() = %v, want 800x300", win.InnerSize())
	}
	if win.Title() != "Resized" {
		t.Errorf("title = %q, want Resized", win.Title())
	}
	if ctrl.Window() != win {
		t.Error("rebuild should not restart the loop")
	}
}

func TestControllerOfOtherElement(t *testing.T) {
	if ControllerOf[string](core.NewStatefulElement()) != nil {
		t.Error("unmounted element should have no controller")
	}
}
