package core

import "github.com/go-drift/loopview/pkg/signal"

// Disposable is a resource released when its owning state is disposed.
type Disposable interface {
	Dispose()
}

// UseController creates a controller and registers it for automatic disposal.
//
//	func (s *myState) InitState() error {
//	    s.ctrl = core.UseController(s, func() *MyController {
//	        return NewMyController()
//	    })
//	    return nil
//	}
func UseController[C Disposable](s stateBase, create func() C) C {
	base := s.state()
	controller := create()
	base.OnDispose(controller.Dispose)
	return controller
}

// UseWatch runs fn after every reactive tick in which one of sources changed,
// until the state is disposed. It returns a function that stops watching
// early.
func UseWatch(s stateBase, fn func(), sources ...signal.Source) (stop func()) {
	base := s.state()
	stop = signal.Watch(fn, sources...)
	base.OnDispose(stop)
	return stop
}
