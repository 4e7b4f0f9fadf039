// Package loopview embeds a window and its event loop in a widget tree as a
// single drawable surface.
//
// Mount a View with a Program. On mount the view takes the process-wide
// Guard, creates a surface in the host document, binds a window to it,
// creates the event loop and starts the program on its own goroutine:
//
//	func run(ctx context.Context, loop *window.EventLoop[struct{}], win *window.Window) error {
//	    return loop.Run(func(ev window.Event[struct{}], ctl *window.Control) {
//	        switch {
//	        case ev.Kind == window.KindAboutToWait:
//	            win.RequestRedraw()
//	        case ev.Kind == window.KindWindowEvent && ev.Window.Kind == window.RedrawRequested:
//	            win.Paint(draw)
//	        }
//	    })
//	}
//
//	element, err := core.Inflate(loopview.View[struct{}]{
//	    Program: run,
//	    Width:   signal.Dynamic(width),
//	    Height:  signal.Static[uint32](500),
//	    Alt:     signal.Static("Demo"),
//	}, nil)
//
// Width and height changes are forwarded to the window without restarting
// the loop. Unmounting the element asks the loop to stop; resources are
// released once the program returns.
//
// # Multiple windows
//
// Only one event loop may exist per process, so only one View can be
// mounted at a time. A second concurrent mount fails with
// ErrAlreadyRunning. Place views on separate routes so that only one is
// mounted at once.
//
// # Program contract
//
// The loop handler must return promptly. Stopping is cooperative: a handler
// that blocks forever keeps the loop, window, surface and guard held, and
// nothing in this package will preempt it.
package loopview

import "errors"

// Sentinel errors. Mount failures wrap one of these in an *errors.LoopError.
var (
	// ErrAlreadyRunning is returned when another instance holds the guard.
	ErrAlreadyRunning = errors.New("loopview: an instance is already running")

	// ErrSurfaceCreationFailed is returned when the host cannot create the
	// drawable surface.
	ErrSurfaceCreationFailed = errors.New("loopview: surface creation failed")

	// ErrWindowCreationFailed is returned when a window cannot be bound to
	// the surface.
	ErrWindowCreationFailed = errors.New("loopview: window creation failed")

	// ErrEventLoopCreationFailed is returned when the event loop cannot be
	// constructed.
	ErrEventLoopCreationFailed = errors.New("loopview: event loop creation failed")

	// ErrProgramFailed wraps errors and panics from the user program.
	ErrProgramFailed = errors.New("loopview: program failed")

	// ErrNoProgram is returned when a controller is started without a program.
	ErrNoProgram = errors.New("loopview: no program")
)
