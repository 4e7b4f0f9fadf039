package surface

import (
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// RasterFactory creates in-memory RGBA targets.
type RasterFactory struct{}

// NewTarget implements Factory.
func (RasterFactory) NewTarget(_ NodeID, size Size) (Target, error) {
	return NewRaster(size), nil
}

// Raster is an in-memory RGBA target. Present copies the frame into the
// backing buffer; Resize rescales the current content so the surface never
// shows an empty buffer between a resize and the next frame.
type Raster struct {
	mu       sync.Mutex
	img      *image.RGBA
	title    string
	presents int
	closed   bool
}

// NewRaster creates a raster target of the given size.
func NewRaster(size Size) *Raster {
	return &Raster{img: image.NewRGBA(size.Rect())}
}

// Resize implements Target.
func (r *Raster) Resize(size Size) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrDestroyed
	}
	if r.img.Rect == size.Rect() {
		return nil
	}
	next := image.NewRGBA(size.Rect())
	if !r.img.Rect.Empty() && !size.Empty() {
		draw.NearestNeighbor.Scale(next, next.Rect, r.img, r.img.Rect, draw.Src, nil)
	}
	r.img = next
	return nil
}

// Present implements Target.
func (r *Raster) Present(frame image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrDestroyed
	}
	if frame.Bounds().Size() == r.img.Rect.Size() {
		draw.Draw(r.img, r.img.Rect, frame, frame.Bounds().Min, draw.Src)
	} else {
		draw.NearestNeighbor.Scale(r.img, r.img.Rect, frame, frame.Bounds(), draw.Src, nil)
	}
	r.presents++
	return nil
}

// SetTitle implements Titled.
func (r *Raster) SetTitle(title string) {
	r.mu.Lock()
	r.title = title
	r.mu.Unlock()
}

// Title returns the last title set.
func (r *Raster) Title() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.title
}

// Close implements Target.
func (r *Raster) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current content.
func (r *Raster) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := image.NewRGBA(r.img.Rect)
	copy(out.Pix, r.img.Pix)
	return out
}

// Presents returns how many frames have been presented.
func (r *Raster) Presents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presents
}
