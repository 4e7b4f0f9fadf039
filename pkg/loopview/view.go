package loopview

import (
	"time"

	"github.com/go-drift/loopview/pkg/core"
	"github.com/go-drift/loopview/pkg/signal"
	"github.com/go-drift/loopview/pkg/surface"
)

// View is a widget that hosts a Program on a surface of its own.
//
// Mounting the view starts the program; unmounting stops it. Rebuilding the
// view with new Width, Height or Alt inputs updates the running window in
// place.
type View[T any] struct {
	core.StatefulBase

	Program Program[T]

	Width  signal.Maybe[uint32]
	Height signal.Maybe[uint32]
	Alt    signal.Maybe[string]

	// ElementID is the surface's element ID in the host document.
	ElementID string

	Document      *surface.Document
	Guard         *Guard
	FrameInterval time.Duration

	OnError func(error)
}

// CreateState implements core.StatefulWidget.
func (v View[T]) CreateState() core.State {
	return &viewState[T]{}
}

func (v View[T]) config() Config[T] {
	return Config[T]{
		Program:       v.Program,
		Width:         v.Width,
		Height:        v.Height,
		Alt:           v.Alt,
		ElementID:     v.ElementID,
		Document:      v.Document,
		Guard:         v.Guard,
		FrameInterval: v.FrameInterval,
		OnError:       v.OnError,
	}
}

type viewState[T any] struct {
	core.StateBase
	ctrl *Controller[T]
}

func (s *viewState[T]) view() View[T] {
	return s.Widget().(View[T])
}

func (s *viewState[T]) InitState() error {
	cfg := s.view().config()
	s.ctrl = core.UseController(s, func() *Controller[T] {
		return NewController(cfg)
	})
	return s.ctrl.Start()
}

func (s *viewState[T]) DidUpdateWidget(old core.StatefulWidget) {
	prev, ok := old.(View[T])
	if !ok {
		return
	}
	v := s.view()
	if prev.Width.Same(v.Width) && prev.Height.Same(v.Height) && prev.Alt.Same(v.Alt) {
		return
	}
	s.ctrl.UpdateInputs(v.Width, v.Height, v.Alt)
}

// ControllerOf returns the controller behind a mounted View element, or nil
// if element does not host a View[T].
func ControllerOf[T any](element core.Element) *Controller[T] {
	se, ok := element.(*core.StatefulElement)
	if !ok {
		return nil
	}
	vs, ok := se.State().(*viewState[T])
	if !ok {
		return nil
	}
	return vs.ctrl
}
