package surface

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// NodeID identifies a surface node within a document.
type NodeID int64

// SurfaceConfig describes a surface to create.
type SurfaceConfig struct {
	// ElementID is the node's element id. It must be unique in the document.
	ElementID string
	// Alt is the node's accessible title.
	Alt string
	// Size is the initial size.
	Size Size
}

// Document is the host tree that surface nodes are inserted into.
type Document struct {
	factory Factory
	nodes   map[NodeID]*Handle
	byID    map[string]NodeID
	nextID  atomic.Int64
	mu      sync.RWMutex
}

var (
	defaultDocument     *Document
	defaultDocumentOnce sync.Once
)

// DefaultDocument returns the process-wide document. Its surfaces are
// in-memory raster targets unless SetFactory installs a host factory.
func DefaultDocument() *Document {
	defaultDocumentOnce.Do(func() {
		defaultDocument = NewDocument(nil)
	})
	return defaultDocument
}

// NewDocument creates an empty document. A nil factory selects RasterFactory.
func NewDocument(factory Factory) *Document {
	if factory == nil {
		factory = RasterFactory{}
	}
	return &Document{
		factory: factory,
		nodes:   make(map[NodeID]*Handle),
		byID:    make(map[string]NodeID),
	}
}

// SetFactory replaces the factory used for surfaces created afterwards.
func (d *Document) SetFactory(factory Factory) {
	if factory == nil {
		factory = RasterFactory{}
	}
	d.mu.Lock()
	d.factory = factory
	d.mu.Unlock()
}

// CreateSurface creates a target and inserts a node for it. On error no node
// is inserted.
func (d *Document) CreateSurface(cfg SurfaceConfig) (*Handle, error) {
	if err := cfg.Size.Validate(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	factory := d.factory
	_, taken := d.byID[cfg.ElementID]
	d.mu.RUnlock()

	if cfg.ElementID != "" && taken {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateElement, cfg.ElementID)
	}

	id := NodeID(d.nextID.Add(1))
	target, err := factory.NewTarget(id, cfg.Size)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		id:        id,
		elementID: cfg.ElementID,
		alt:       cfg.Alt,
		size:      cfg.Size,
		target:    target,
		doc:       d,
	}
	if titled, ok := target.(Titled); ok {
		titled.SetTitle(cfg.Alt)
	}

	d.mu.Lock()
	if _, raced := d.byID[cfg.ElementID]; cfg.ElementID != "" && raced {
		d.mu.Unlock()
		target.Close()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateElement, cfg.ElementID)
	}
	d.nodes[id] = h
	if cfg.ElementID != "" {
		d.byID[cfg.ElementID] = id
	}
	d.mu.Unlock()

	return h, nil
}

// Node returns the surface with the given node id, or nil.
func (d *Document) Node(id NodeID) *Handle {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nodes[id]
}

// ElementByID returns the surface with the given element id, or nil.
func (d *Document) ElementByID(elementID string) *Handle {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byID[elementID]
	if !ok {
		return nil
	}
	return d.nodes[id]
}

// Len returns the number of attached surfaces.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.nodes)
}

func (d *Document) remove(h *Handle) {
	d.mu.Lock()
	delete(d.nodes, h.id)
	if h.elementID != "" && d.byID[h.elementID] == h.id {
		delete(d.byID, h.elementID)
	}
	d.mu.Unlock()
}
