package surface

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// --- Test helpers ---

// stubTarget records calls and can be told to fail.
type stubTarget struct {
	resizeErr error
	resizes   []Size
	title     string
	closed    int
}

func (s *stubTarget) Resize(size Size) error {
	if s.resizeErr != nil {
		return s.resizeErr
	}
	s.resizes = append(s.resizes, size)
	return nil
}

func (s *stubTarget) Present(image.Image) error { return nil }
func (s *stubTarget) Close() error              { s.closed++; return nil }
func (s *stubTarget) SetTitle(title string)     { s.title = title }

func TestCreateSurfaceInsertsNode(t *testing.T) {
	doc := NewDocument(nil)
	h, err := doc.CreateSurface(SurfaceConfig{ElementID: "loopview", Alt: "demo", Size: Sz(500, 500)})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if doc.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", doc.Len())
	}
	if doc.ElementByID("loopview") != h {
		t.Error("ElementByID should return the new handle")
	}
	if doc.Node(h.ID()) != h {
		t.Error("Node should return the new handle")
	}
	if h.Size() != Sz(500, 500) {
		t.Errorf("Size() = %v, want 500x500", h.Size())
	}
	if h.Alt() != "demo" {
		t.Errorf("Alt() = %q, want demo", h.Alt())
	}
	if _, ok := h.Target().(*Raster); !ok {
		t.Errorf("default target = %T, want *Raster", h.Target())
	}
}

func TestCreateSurfaceRejectsDuplicateElement(t *testing.T) {
	doc := NewDocument(nil)
	if _, err := doc.CreateSurface(SurfaceConfig{ElementID: "loopview", Size: Sz(1, 1)}); err != nil {
		t.Fatal(err)
	}
	_, err := doc.CreateSurface(SurfaceConfig{ElementID: "loopview", Size: Sz(1, 1)})
	if !errors.Is(err, ErrDuplicateElement) {
		t.Fatalf("err = %v, want ErrDuplicateElement", err)
	}
	if doc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", doc.Len())
	}
}

func TestCreateSurfaceFactoryError(t *testing.T) {
	boom := errors.New("no display")
	doc := NewDocument(FactoryFunc(func(NodeID, Size) (Target, error) { return nil, boom }))
	_, err := doc.CreateSurface(SurfaceConfig{ElementID: "loopview", Size: Sz(1, 1)})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if doc.Len() != 0 {
		t.Errorf("failed creation left %d nodes attached", doc.Len())
	}
	if doc.ElementByID("loopview") != nil {
		t.Error("failed creation reserved the element id")
	}
}

func TestSetFactoryAppliesToLaterSurfaces(t *testing.T) {
	doc := NewDocument(nil)
	before, err := doc.CreateSurface(SurfaceConfig{ElementID: "before", Size: Sz(1, 1)})
	if err != nil {
		t.Fatal(err)
	}

	target := &stubTarget{}
	doc.SetFactory(FactoryFunc(func(NodeID, Size) (Target, error) { return target, nil }))
	after, err := doc.CreateSurface(SurfaceConfig{ElementID: "after", Size: Sz(1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if after.Target() != target {
		t.Errorf("target = %T, want the installed factory's target", after.Target())
	}
	if _, ok := before.Target().(*Raster); !ok {
		t.Errorf("existing surface target = %T, want *Raster", before.Target())
	}

	doc.SetFactory(nil)
	reset, err := doc.CreateSurface(SurfaceConfig{ElementID: "reset", Size: Sz(1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reset.Target().(*Raster); !ok {
		t.Errorf("target after SetFactory(nil) = %T, want *Raster", reset.Target())
	}
}

func TestOversizedSurfaceRejected(t *testing.T) {
	called := false
	doc := NewDocument(FactoryFunc(func(_ NodeID, size Size) (Target, error) {
		called = true
		return NewRaster(size), nil
	}))
	_, err := doc.CreateSurface(SurfaceConfig{ElementID: "big", Size: Sz(1<<31, 1<<31)})
	if !errors.Is(err, ErrSizeTooLarge) {
		t.Fatalf("err = %v, want ErrSizeTooLarge", err)
	}
	if called || doc.Len() != 0 {
		t.Errorf("factory called=%v Len=%d, want untouched document", called, doc.Len())
	}

	h, err := doc.CreateSurface(SurfaceConfig{ElementID: "ok", Size: Sz(MaxDimension, 1)})
	if err != nil {
		t.Fatalf("CreateSurface at MaxDimension: %v", err)
	}
	if err := h.Resize(Sz(1, MaxDimension+1)); !errors.Is(err, ErrSizeTooLarge) {
		t.Errorf("Resize err = %v, want ErrSizeTooLarge", err)
	}
	if h.Size() != Sz(MaxDimension, 1) {
		t.Errorf("Size() = %v after refused resize, want unchanged", h.Size())
	}
}

func TestDestroyRemovesNode(t *testing.T) {
	target := &stubTarget{}
	doc := NewDocument(FactoryFunc(func(NodeID, Size) (Target, error) { return target, nil }))
	h, err := doc.CreateSurface(SurfaceConfig{ElementID: "loopview", Size: Sz(10, 10)})
	if err != nil {
		t.Fatal(err)
	}

	if err := h.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := h.Destroy(); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
	if doc.Len() != 0 || doc.ElementByID("loopview") != nil {
		t.Error("destroyed node still attached")
	}
	if target.closed != 1 {
		t.Errorf("target closed %d times, want 1", target.closed)
	}
	if h.Attached() {
		t.Error("Attached() should be false after Destroy")
	}
	if err := h.Resize(Sz(1, 1)); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Resize after Destroy = %v, want ErrDestroyed", err)
	}

	// The element id is free again.
	if _, err := doc.CreateSurface(SurfaceConfig{ElementID: "loopview", Size: Sz(1, 1)}); err != nil {
		t.Errorf("recreate after destroy: %v", err)
	}
}

func TestHandleForwardsAltAndResize(t *testing.T) {
	target := &stubTarget{}
	doc := NewDocument(FactoryFunc(func(NodeID, Size) (Target, error) { return target, nil }))
	h, err := doc.CreateSurface(SurfaceConfig{Alt: "first", Size: Sz(10, 10)})
	if err != nil {
		t.Fatal(err)
	}
	if target.title != "first" {
		t.Errorf("initial title = %q, want first", target.title)
	}
	h.SetAlt("second")
	if target.title != "second" || h.Alt() != "second" {
		t.Errorf("title = %q alt = %q, want second", target.title, h.Alt())
	}
	if err := h.Resize(Sz(20, 30)); err != nil {
		t.Fatal(err)
	}
	if h.Size() != Sz(20, 30) || len(target.resizes) != 1 {
		t.Errorf("Size() = %v resizes = %v", h.Size(), target.resizes)
	}

	target.resizeErr = errors.New("lost context")
	if err := h.Resize(Sz(40, 40)); err == nil {
		t.Fatal("expected resize error")
	}
	if h.Size() != Sz(20, 30) {
		t.Errorf("failed resize changed size to %v", h.Size())
	}
}

func TestBindOnce(t *testing.T) {
	doc := NewDocument(nil)
	h, _ := doc.CreateSurface(SurfaceConfig{Size: Sz(1, 1)})
	if !h.Bind() {
		t.Fatal("first Bind should succeed")
	}
	if h.Bind() {
		t.Fatal("second Bind should fail")
	}
}

func TestRasterPresentAndResize(t *testing.T) {
	r := NewRaster(Sz(4, 4))
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	red := color.RGBA{R: 255, A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			frame.SetRGBA(x, y, red)
		}
	}
	if err := r.Present(frame); err != nil {
		t.Fatal(err)
	}
	if r.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", r.Presents())
	}
	if got := r.Snapshot().RGBAAt(2, 2); got != red {
		t.Errorf("pixel = %v, want red", got)
	}

	if err := r.Resize(Sz(8, 2)); err != nil {
		t.Fatal(err)
	}
	snap := r.Snapshot()
	if snap.Rect != image.Rect(0, 0, 8, 2) {
		t.Fatalf("Rect = %v, want 8x2", snap.Rect)
	}
	if got := snap.RGBAAt(4, 1); got != red {
		t.Errorf("resized content pixel = %v, want red", got)
	}

	r.Close()
	if err := r.Present(frame); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Present after Close = %v, want ErrDestroyed", err)
	}
}

func TestRasterPresentScalesMismatchedFrame(t *testing.T) {
	r := NewRaster(Sz(8, 8))
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	blue := color.RGBA{B: 255, A: 255}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			frame.SetRGBA(x, y, blue)
		}
	}
	if err := r.Present(frame); err != nil {
		t.Fatal(err)
	}
	if got := r.Snapshot().RGBAAt(7, 7); got != blue {
		t.Errorf("scaled pixel = %v, want blue", got)
	}
}

func TestSizeHelpers(t *testing.T) {
	if !Sz(0, 5).Empty() || Sz(1, 1).Empty() {
		t.Error("Empty() mismatch")
	}
	if Sz(3, 4).String() != "3x4" {
		t.Errorf("String() = %q", Sz(3, 4).String())
	}
	if Sz(3, 4).Rect() != image.Rect(0, 0, 3, 4) {
		t.Errorf("Rect() = %v", Sz(3, 4).Rect())
	}
}
