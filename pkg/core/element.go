package core

import (
	"errors"
	"reflect"
	"sync"
)

var (
	// ErrAlreadyMounted is returned when an element is mounted twice.
	ErrAlreadyMounted = errors.New("core: element already mounted")

	// ErrNoWidget is returned when an element is mounted before it has a widget.
	ErrNoWidget = errors.New("core: element has no widget")
)

// Widget is an immutable description of part of the UI.
type Widget interface {
	CreateElement() Element
	Key() any
}

// StatefulWidget is a widget with mutable state.
type StatefulWidget interface {
	Widget
	CreateState() State
}

// State is the mutable half of a StatefulWidget.
type State interface {
	// InitState is called once when the element mounts. A non-nil error
	// aborts the mount; Dispose is still called so partial work is released.
	InitState() error
	// DidUpdateWidget is called when the parent rebuilds with a new widget.
	DidUpdateWidget(oldWidget StatefulWidget)
	// Dispose is called once when the element unmounts.
	Dispose()
}

// Element is the instantiation of a Widget at a location in the tree.
type Element interface {
	Widget() Widget
	Parent() Element
	Mount(parent Element) error
	Update(newWidget Widget)
	Unmount()
	Mounted() bool
}

// StatefulBase provides default CreateElement and Key implementations for
// stateful widgets.
type StatefulBase struct{}

// CreateElement returns a new StatefulElement.
func (StatefulBase) CreateElement() Element { return NewStatefulElement() }

// Key returns nil (no key).
func (StatefulBase) Key() any { return nil }

// StatefulElement hosts a StatefulWidget and its State.
type StatefulElement struct {
	mu        sync.Mutex
	widget    StatefulWidget
	parent    Element
	state     State
	mounted   bool
	unmounted bool
}

// NewStatefulElement creates an element with no widget attached. The
// element takes its widget from the first Update or from Inflate.
func NewStatefulElement() *StatefulElement {
	return &StatefulElement{}
}

// Inflate creates widget's element and mounts it under parent.
func Inflate(widget Widget, parent Element) (Element, error) {
	element := widget.CreateElement()
	element.Update(widget)
	if err := element.Mount(parent); err != nil {
		return nil, err
	}
	return element, nil
}

// Widget returns the current widget.
func (e *StatefulElement) Widget() Widget {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.widget
}

// Parent returns the parent element, or nil at the root.
func (e *StatefulElement) Parent() Element {
	return e.parent
}

// State returns the element's state, or nil before mount.
func (e *StatefulElement) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Mount creates and initializes the state. An element mounts at most once;
// a failed mount leaves it unmounted for good.
func (e *StatefulElement) Mount(parent Element) error {
	e.mu.Lock()
	if e.mounted || e.unmounted {
		e.mu.Unlock()
		return ErrAlreadyMounted
	}
	widget := e.widget
	if widget == nil {
		e.mu.Unlock()
		return ErrNoWidget
	}
	e.parent = parent
	state := widget.CreateState()
	if sb, ok := state.(stateBase); ok {
		sb.state().setElement(e)
	}
	e.state = state
	e.mounted = true
	e.mu.Unlock()

	if err := state.InitState(); err != nil {
		e.mu.Lock()
		e.mounted = false
		e.unmounted = true
		e.mu.Unlock()
		state.Dispose()
		return err
	}
	return nil
}

// Update replaces the widget. Once mounted, the state's DidUpdateWidget is
// called with the previous widget. Widgets of a different type are ignored.
func (e *StatefulElement) Update(newWidget Widget) {
	next, ok := newWidget.(StatefulWidget)
	if !ok {
		return
	}
	e.mu.Lock()
	old := e.widget
	if old != nil && reflect.TypeOf(old) != reflect.TypeOf(next) {
		e.mu.Unlock()
		return
	}
	e.widget = next
	state, mounted := e.state, e.mounted
	e.mu.Unlock()

	if mounted && old != nil {
		state.DidUpdateWidget(old)
	}
}

// Unmount disposes the state. Unmounting an element that is not mounted is
// a no-op.
func (e *StatefulElement) Unmount() {
	e.mu.Lock()
	if !e.mounted {
		e.mu.Unlock()
		return
	}
	e.mounted = false
	e.unmounted = true
	state := e.state
	e.mu.Unlock()

	state.Dispose()
}

// Mounted reports whether the element is mounted.
func (e *StatefulElement) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}
