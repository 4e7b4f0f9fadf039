package surface

import (
	"image"
	"sync"
)

// Handle is a drawable node in a document. It is bound to at most one
// window for its whole lifetime.
type Handle struct {
	id        NodeID
	elementID string
	doc       *Document

	mu        sync.Mutex
	alt       string
	size      Size
	target    Target
	bound     bool
	destroyed bool
}

// ID returns the node id.
func (h *Handle) ID() NodeID {
	return h.id
}

// ElementID returns the element id the node was created with.
func (h *Handle) ElementID() string {
	return h.elementID
}

// Size returns the current size.
func (h *Handle) Size() Size {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Resize resizes the backing target. Sizes above MaxDimension are refused
// before the target sees them.
func (h *Handle) Resize(size Size) error {
	if err := size.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	if err := h.target.Resize(size); err != nil {
		return err
	}
	h.size = size
	return nil
}

// Alt returns the accessible title.
func (h *Handle) Alt() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alt
}

// SetAlt sets the accessible title and forwards it to hosts that show one.
func (h *Handle) SetAlt(alt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return
	}
	h.alt = alt
	if titled, ok := h.target.(Titled); ok {
		titled.SetTitle(alt)
	}
}

// Target returns the backing target.
func (h *Handle) Target() Target {
	return h.target
}

// Present shows a finished frame on the backing target.
func (h *Handle) Present(frame image.Image) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	return h.target.Present(frame)
}

// Bind marks the handle as owned by a window. It reports false if the
// handle is destroyed or already bound.
func (h *Handle) Bind() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed || h.bound {
		return false
	}
	h.bound = true
	return true
}

// Attached reports whether the node is still in its document.
func (h *Handle) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.destroyed
}

// Destroy removes the node from its document and closes the target.
// Calling Destroy more than once is a no-op.
func (h *Handle) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	h.mu.Unlock()

	h.doc.remove(h)
	return h.target.Close()
}
