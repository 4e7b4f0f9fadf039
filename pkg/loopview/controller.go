package loopview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	lverrors "github.com/go-drift/loopview/pkg/errors"
	"github.com/go-drift/loopview/pkg/signal"
	"github.com/go-drift/loopview/pkg/surface"
	"github.com/go-drift/loopview/pkg/window"
)

// Defaults applied to unset inputs.
const (
	DefaultWidth     uint32 = 500
	DefaultHeight    uint32 = 500
	DefaultAlt              = "LoopView Window"
	DefaultElementID        = "loopview"
)

// State is a lifecycle state of a Controller.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Program is the user entry point. It receives the event loop and window
// for one mount and should return once ctx is cancelled or the loop exits.
type Program[T any] func(ctx context.Context, loop *window.EventLoop[T], win *window.Window) error

// Config configures a Controller.
type Config[T any] struct {
	// Program is required.
	Program Program[T]

	// Width and Height default to DefaultWidth and DefaultHeight.
	Width  signal.Maybe[uint32]
	Height signal.Maybe[uint32]

	// Alt sets the window title and the surface's accessible title.
	// Defaults to DefaultAlt.
	Alt signal.Maybe[string]

	// ElementID defaults to DefaultElementID.
	ElementID string

	// Document defaults to surface.DefaultDocument().
	Document *surface.Document

	// Guard defaults to DefaultGuard.
	Guard *Guard

	// FrameInterval paces the loop in Poll mode.
	FrameInterval time.Duration

	// OnError receives errors and panics from the program after teardown.
	OnError func(error)

	// OnStateChange observes every transition. It is called with the
	// controller's lock held and must not call back into the controller.
	OnStateChange func(from, to State)
}

func (cfg Config[T]) withDefaults() Config[T] {
	cfg.Width = cfg.Width.Or(DefaultWidth)
	cfg.Height = cfg.Height.Or(DefaultHeight)
	cfg.Alt = cfg.Alt.Or(DefaultAlt)
	if cfg.ElementID == "" {
		cfg.ElementID = DefaultElementID
	}
	if cfg.Document == nil {
		cfg.Document = surface.DefaultDocument()
	}
	if cfg.Guard == nil {
		cfg.Guard = DefaultGuard
	}
	return cfg
}

// Controller bridges one mount's lifecycle to an event loop.
//
// States run Idle → Starting → Running → Stopping → Idle. Start acquires the
// guard and builds the surface, window and loop; Stop asks the program to
// finish; resources are released when the program returns.
type Controller[T any] struct {
	cfg Config[T]

	mu       sync.Mutex
	state    State
	token    *Token
	handle   *surface.Handle
	win      *window.Window
	loop     *window.EventLoop[T]
	size     *SizeSignal
	alt      signal.Maybe[string]
	watchers []func()
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

// NewController creates an idle controller.
func NewController[T any](cfg Config[T]) *Controller[T] {
	done := make(chan struct{})
	close(done)
	return &Controller[T]{cfg: cfg.withDefaults(), done: done}
}

// Start runs Idle → Starting → Running. It returns once the program has
// been scheduled, not when it completes. On failure everything acquired so
// far is released, the guard last, and the controller stays Idle. A panic
// while building the surface, window or loop counts as a failure of that
// step.
func (c *Controller[T]) Start() (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return fmt.Errorf("loopview: start from %s state", c.state)
	}
	if c.cfg.Program == nil {
		return c.startError(lverrors.KindConfig, ErrNoProgram)
	}

	token, err := c.cfg.Guard.Acquire(c.cfg.ElementID)
	if err != nil {
		return c.startError(lverrors.KindGuard, err)
	}

	var (
		rollback  []func()
		kind      = lverrors.KindSurface
		sentinel  = ErrSurfaceCreationFailed
		scheduled bool
	)
	fail := func(cause error) error {
		for i := len(rollback) - 1; i >= 0; i-- {
			rollback[i]()
		}
		c.token, c.handle, c.win, c.loop = nil, nil, nil, nil
		c.size, c.alt = nil, signal.Maybe[string]{}
		token.Release()
		c.setState(Idle)
		return c.startError(kind, fmt.Errorf("%w: %w", sentinel, cause))
	}
	defer lverrors.RecoverWithCallback("loopview.Start", func(p *lverrors.PanicError) {
		if !scheduled {
			err = fail(p)
		}
	})
	c.setState(Starting)

	size := NewSizeSignal(c.cfg.Width, c.cfg.Height)
	alt := c.cfg.Alt

	handle, err := c.cfg.Document.CreateSurface(surface.SurfaceConfig{
		ElementID: c.cfg.ElementID,
		Alt:       alt.Get(),
		Size:      size.Get(),
	})
	if err != nil {
		return fail(err)
	}
	rollback = append(rollback, func() { handle.Destroy() })

	kind, sentinel = lverrors.KindWindow, ErrWindowCreationFailed
	win, err := window.New(handle, window.Attributes{Title: alt.Get(), InnerSize: size.Get()})
	if err != nil {
		return fail(err)
	}
	rollback = append(rollback, win.Close)

	kind, sentinel = lverrors.KindEventLoop, ErrEventLoopCreationFailed
	lverrors.Logger().Warn("creating event loop, only one may exist per process",
		zap.String("element", c.cfg.ElementID),
		zap.Stringer("size", size.Get()))
	loop, err := window.NewEventLoop[T](win, window.Options{FrameInterval: c.cfg.FrameInterval})
	if err != nil {
		return fail(err)
	}
	rollback = append(rollback, loop.Close)

	c.token, c.handle, c.win, c.loop = token, handle, win, loop
	rollback = append(rollback, c.unwatch)
	c.watch(size, alt)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.err = nil

	started := make(chan struct{})
	go c.run(ctx, started, loop, win)
	scheduled = true
	<-started

	c.setState(Running)
	return nil
}

// Stop runs Running → Stopping. It cancels the program's context and asks
// the loop to stop, without waiting for either. Stop is a no-op unless the
// controller is Running.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return
	}
	c.setState(Stopping)
	c.cancel()
	c.loop.RequestStop()
}

// Dispose calls Stop. It lets core.UseController tie the controller to a
// widget state.
func (c *Controller[T]) Dispose() {
	c.Stop()
}

// UpdateInputs rebinds the size and title inputs of a running controller.
// The window takes the new values immediately; the loop is not restarted.
func (c *Controller[T]) UpdateInputs(width, height signal.Maybe[uint32], alt signal.Maybe[string]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.Width = width.Or(DefaultWidth)
	c.cfg.Height = height.Or(DefaultHeight)
	c.cfg.Alt = alt.Or(DefaultAlt)
	if c.state != Running {
		return
	}
	c.unwatch()
	c.watch(NewSizeSignal(c.cfg.Width, c.cfg.Height), c.cfg.Alt)
}

// State returns the current lifecycle state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Window returns the live window, or nil when Idle.
func (c *Controller[T]) Window() *window.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.win
}

// Surface returns the live surface, or nil when Idle.
func (c *Controller[T]) Surface() *surface.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Size returns the size signal of the current mount, or nil when Idle.
func (c *Controller[T]) Size() *SizeSignal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Done returns a channel closed when the current cycle has fully torn down.
// It is already closed for a controller that was never started.
func (c *Controller[T]) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns the program error of the last completed cycle.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Wait blocks until the current cycle has torn down or ctx is done. It
// returns the program's error, if any.
func (c *Controller[T]) Wait(ctx context.Context) error {
	done := c.Done()
	select {
	case <-done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller[T]) run(ctx context.Context, scheduled chan<- struct{}, loop *window.EventLoop[T], win *window.Window) {
	var (
		err      error
		panicked bool
	)
	func() {
		defer lverrors.RecoverWithCallback("loopview.program", func(p *lverrors.PanicError) {
			err = fmt.Errorf("%w: %w", ErrProgramFailed, p)
			panicked = true
		})
		close(scheduled)
		if perr := c.cfg.Program(ctx, loop, win); perr != nil && !errors.Is(perr, context.Canceled) {
			err = fmt.Errorf("%w: %w", ErrProgramFailed, perr)
		}
	}()
	c.finish(err, panicked)
}

// finish tears down the cycle once the program has returned.
func (c *Controller[T]) finish(err error, panicked bool) {
	c.mu.Lock()
	if c.state == Running {
		c.setState(Stopping)
	}
	c.cancel()
	c.unwatch()
	c.loop.Close()
	c.win.Close()
	if derr := c.handle.Destroy(); derr != nil {
		lverrors.Logger().Warn("surface close failed",
			zap.String("element", c.cfg.ElementID),
			zap.Error(derr))
	}
	c.token.Release()
	c.token, c.handle, c.win, c.loop = nil, nil, nil, nil
	c.err = err
	c.setState(Idle)
	done := c.done
	onError := c.cfg.OnError
	elementID := c.cfg.ElementID
	c.mu.Unlock()

	lverrors.Logger().Info("event loop exited", zap.String("element", elementID), zap.Error(err))
	if err != nil {
		if !panicked {
			lverrors.Report(&lverrors.LoopError{
				Op:      "loopview.program",
				Kind:    lverrors.KindProgram,
				Element: elementID,
				Err:     err,
			})
		}
		if onError != nil {
			onError(err)
		}
	}
	close(done)
}

// watch subscribes the window to size and alt, then pushes their current
// values so a write that landed before the subscription is not lost. Both
// pushes are no-ops when nothing changed. It must be called with mu held.
func (c *Controller[T]) watch(size *SizeSignal, alt signal.Maybe[string]) {
	win := c.win
	c.size, c.alt = size, alt
	c.watchers = append(c.watchers,
		size.Watch(win.RequestInnerSize),
		signal.Watch(func() { win.SetTitle(alt.Get()) }, alt),
	)
	win.RequestInnerSize(size.Get())
	win.SetTitle(alt.Get())
}

// unwatch must be called with mu held.
func (c *Controller[T]) unwatch() {
	for _, stop := range c.watchers {
		stop()
	}
	c.watchers = nil
}

// setState must be called with mu held.
func (c *Controller[T]) setState(to State) {
	from := c.state
	c.state = to
	lverrors.Logger().Debug("lifecycle transition",
		zap.String("element", c.cfg.ElementID),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(from, to)
	}
}

func (c *Controller[T]) startError(kind lverrors.ErrorKind, err error) error {
	lerr := &lverrors.LoopError{
		Op:        "loopview.Start",
		Kind:      kind,
		Element:   c.cfg.ElementID,
		Err:       err,
		Timestamp: time.Now(),
	}
	lverrors.Report(lerr)
	return lerr
}
