// Package surface provides the drawable regions that loopview windows render
// into, and the host document that holds them.
package surface

import (
	"errors"
	"fmt"
	"image"
)

// Sentinel errors for surface operations.
var (
	// ErrDuplicateElement is returned when a document already holds a node
	// with the requested element id.
	ErrDuplicateElement = errors.New("surface: duplicate element id")

	// ErrDestroyed is returned when operating on a destroyed surface.
	ErrDestroyed = errors.New("surface: destroyed")

	// ErrSizeTooLarge is returned for a size with a side above MaxDimension.
	ErrSizeTooLarge = errors.New("surface: size too large")
)

// MaxDimension is the largest width or height a surface accepts. A
// MaxDimension square RGBA frame is 1 GiB, which still fits an int on
// 32-bit platforms.
const MaxDimension = 1 << 14

// Size is a surface size in logical pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Sz is shorthand for Size{Width: w, Height: h}.
func Sz(w, h uint32) Size {
	return Size{Width: w, Height: h}
}

// Rect returns the size as an image rectangle anchored at the origin.
func (s Size) Rect() image.Rectangle {
	return image.Rect(0, 0, int(s.Width), int(s.Height))
}

// Empty reports whether either dimension is zero.
func (s Size) Empty() bool {
	return s.Width == 0 || s.Height == 0
}

// Validate returns ErrSizeTooLarge when either side exceeds MaxDimension.
func (s Size) Validate() error {
	if s.Width > MaxDimension || s.Height > MaxDimension {
		return fmt.Errorf("%w: %s exceeds %dx%d", ErrSizeTooLarge, s, MaxDimension, MaxDimension)
	}
	return nil
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Target is the backend-specific drawable behind a surface.
type Target interface {
	// Resize changes the drawable size.
	Resize(size Size) error

	// Present shows a finished frame.
	Present(frame image.Image) error

	// Close releases the drawable.
	Close() error
}

// Titled is implemented by targets whose host can display a title.
type Titled interface {
	SetTitle(title string)
}

// InputSource is implemented by targets whose host delivers input.
// The channel is closed when the target is closed.
type InputSource interface {
	Input() <-chan InputEvent
}

// InputKind identifies a host input event.
type InputKind int

const (
	// InputKey is a key press or release.
	InputKey InputKind = iota + 1
	// InputPointerMoved is a pointer motion inside the surface.
	InputPointerMoved
	// InputPointerButton is a pointer button press or release.
	InputPointerButton
	// InputFocus is a focus change.
	InputFocus
	// InputCloseRequested means the host asked the surface to close.
	InputCloseRequested
)

// InputEvent is input delivered by the host to a surface.
type InputEvent struct {
	Kind    InputKind
	Key     string
	X, Y    float64
	Button  int
	Pressed bool
	Focused bool
}

// Factory creates targets for new surfaces.
type Factory interface {
	NewTarget(id NodeID, size Size) (Target, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(id NodeID, size Size) (Target, error)

// NewTarget calls f.
func (f FactoryFunc) NewTarget(id NodeID, size Size) (Target, error) {
	return f(id, size)
}
