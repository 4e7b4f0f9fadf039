// Package core provides the widget lifecycle seam that loopview widgets are
// mounted through.
//
// A host framework owns rendering and diffing. What loopview needs from it
// is the lifecycle: a widget is instantiated into an Element, its State is
// initialized when the element mounts, updated when the parent rebuilds with
// a new configuration, and disposed when the element unmounts. This package
// defines those contracts and a StatefulElement that enforces their order:
// InitState runs once, Dispose runs once, and never before InitState.
//
// # Stateful Widgets
//
// Embed StateBase in your state struct:
//
//	type myState struct {
//	    core.StateBase
//	    ctrl *MyController
//	}
//
//	func (s *myState) InitState() error {
//	    s.ctrl = core.UseController(s, NewMyController)
//	    return s.ctrl.Start()
//	}
//
// # Hooks
//
// UseController and UseWatch tie a controller or reactive subscription to
// the state's lifetime; both are released when the state is disposed.
package core
