package window

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-drift/loopview/pkg/surface"
)

// Sentinel errors for event loop operations.
var (
	// ErrEventLoopExists is returned when another event loop is alive.
	ErrEventLoopExists = errors.New("window: an event loop already exists in this process")

	// ErrEventLoopClosed is returned when operating on a closed event loop.
	ErrEventLoopClosed = errors.New("window: event loop closed")

	// ErrLoopConsumed is returned when Run is called a second time.
	ErrLoopConsumed = errors.New("window: event loop already run")

	// ErrNilHandler is returned when Run is given a nil handler.
	ErrNilHandler = errors.New("window: nil event handler")

	// ErrNoWindow is returned when an event loop is created without a window.
	ErrNoWindow = errors.New("window: no window")
)

// DefaultFrameInterval paces Poll mode.
const DefaultFrameInterval = 16 * time.Millisecond

// live is set while an event loop exists.
var live atomic.Bool

// Options configure an event loop.
type Options struct {
	// FrameInterval paces Poll mode. Zero selects DefaultFrameInterval.
	FrameInterval time.Duration
}

// EventLoop pumps events for one window. T is the user event type carried
// by Proxy.SendEvent.
type EventLoop[T any] struct {
	window        *Window
	frameInterval time.Duration

	mu     sync.Mutex
	user   []T
	inputs []surface.InputEvent

	wake      chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	closed    chan struct{}
	closeOnce sync.Once
	consumed  atomic.Bool
}

// NewEventLoop creates the process's event loop for win. It fails with
// ErrEventLoopExists while another loop is alive; Close releases the slot.
func NewEventLoop[T any](win *Window, opts Options) (*EventLoop[T], error) {
	if win == nil {
		return nil, ErrNoWindow
	}
	if !live.CompareAndSwap(false, true) {
		return nil, ErrEventLoopExists
	}

	interval := opts.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	l := &EventLoop[T]{
		window:        win,
		frameInterval: interval,
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		closed:        make(chan struct{}),
	}
	if err := win.attach(l.wakeUp); err != nil {
		live.Store(false)
		return nil, err
	}
	if src, ok := win.Surface().Target().(surface.InputSource); ok {
		go l.forwardInput(src.Input())
	}
	return l, nil
}

// Window returns the loop's window.
func (l *EventLoop[T]) Window() *Window {
	return l.window
}

// CreateProxy returns a handle for sending user events into the loop from
// any goroutine.
func (l *EventLoop[T]) CreateProxy() *Proxy[T] {
	return &Proxy[T]{loop: l}
}

// RequestStop asks the loop to exit at the next cycle boundary. It never
// blocks and may be called more than once.
func (l *EventLoop[T]) RequestStop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Stopping returns a channel closed once a stop has been requested.
func (l *EventLoop[T]) Stopping() <-chan struct{} {
	return l.stop
}

// StopRequested reports whether a stop has been requested.
func (l *EventLoop[T]) StopRequested() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

// Close stops the loop, detaches it from its window and frees the
// process's event loop slot. Close is idempotent.
func (l *EventLoop[T]) Close() {
	l.closeOnce.Do(func() {
		l.RequestStop()
		close(l.closed)
		l.window.Close()
		live.Store(false)
	})
}

// Run pumps events into handler until handler calls Control.Exit or a stop
// is requested. It may be called once.
func (l *EventLoop[T]) Run(handler Handler[T]) error {
	if handler == nil {
		return ErrNilHandler
	}
	if !l.consumed.CompareAndSwap(false, true) {
		return ErrLoopConsumed
	}
	select {
	case <-l.closed:
		return ErrEventLoopClosed
	default:
	}

	ctl := &Control{flow: Poll, stop: l.stop, window: l.window}
	frames := time.NewTicker(l.frameInterval)
	defer frames.Stop()

	handler(Event[T]{Kind: KindResumed}, ctl)
	for {
		if ctl.exit || l.StopRequested() {
			handler(Event[T]{Kind: KindLoopExiting}, ctl)
			return nil
		}
		l.pump(handler, ctl)
		if ctl.exit || l.StopRequested() {
			continue
		}
		l.wait(ctl, frames.C)
	}
}

// pump runs one cycle. Resizes are applied and reported before input, and
// again before any redraw, so a redraw never sees a stale size.
func (l *EventLoop[T]) pump(handler Handler[T], ctl *Control) {
	l.deliverResize(handler, ctl)
	if title, ok := l.window.takeTitleChange(); ok {
		handler(windowEvent[T](WindowEvent{Kind: TitleChanged, Title: title}), ctl)
	}

	l.mu.Lock()
	inputs, user := l.inputs, l.user
	l.inputs, l.user = nil, nil
	l.mu.Unlock()

	for _, in := range inputs {
		if ev, ok := windowEventFromInput(in); ok {
			handler(windowEvent[T](ev), ctl)
		}
	}
	for _, u := range user {
		handler(Event[T]{Kind: KindUserEvent, User: u}, ctl)
	}

	if l.window.takeRedraw() {
		size := l.deliverResize(handler, ctl)
		handler(windowEvent[T](WindowEvent{Kind: RedrawRequested, Size: size}), ctl)
	}
	handler(Event[T]{Kind: KindAboutToWait}, ctl)
}

func (l *EventLoop[T]) deliverResize(handler Handler[T], ctl *Control) surface.Size {
	size, changed := l.window.applyPending()
	if changed {
		handler(windowEvent[T](WindowEvent{Kind: Resized, Size: size}), ctl)
	}
	return size
}

func (l *EventLoop[T]) wait(ctl *Control, frames <-chan time.Time) {
	switch ctl.flow {
	case Wait:
		select {
		case <-l.wake:
		case <-l.stop:
		}
	case WaitUntil:
		timer := time.NewTimer(time.Until(ctl.deadline))
		defer timer.Stop()
		select {
		case <-l.wake:
		case <-l.stop:
		case <-timer.C:
		}
	default:
		select {
		case <-frames:
		case <-l.wake:
		case <-l.stop:
		}
	}
}

func (l *EventLoop[T]) wakeUp() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *EventLoop[T]) sendUser(ev T) error {
	select {
	case <-l.closed:
		return ErrEventLoopClosed
	default:
	}
	l.mu.Lock()
	l.user = append(l.user, ev)
	l.mu.Unlock()
	l.wakeUp()
	return nil
}

func (l *EventLoop[T]) forwardInput(in <-chan surface.InputEvent) {
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			l.mu.Lock()
			l.inputs = append(l.inputs, ev)
			l.mu.Unlock()
			l.wakeUp()
		case <-l.closed:
			return
		}
	}
}

func windowEvent[T any](ev WindowEvent) Event[T] {
	return Event[T]{Kind: KindWindowEvent, Window: ev}
}

// Proxy sends user events into an event loop.
type Proxy[T any] struct {
	loop *EventLoop[T]
}

// SendEvent queues ev for delivery as a KindUserEvent. It fails with
// ErrEventLoopClosed once the loop has been closed.
func (p *Proxy[T]) SendEvent(ev T) error {
	return p.loop.sendUser(ev)
}
