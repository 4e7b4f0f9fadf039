package window

import (
	"time"

	"github.com/go-drift/loopview/pkg/surface"
)

// EventKind identifies an event delivered by the loop.
type EventKind int

const (
	// KindResumed is delivered once when Run starts.
	KindResumed EventKind = iota + 1
	// KindWindowEvent carries a WindowEvent.
	KindWindowEvent
	// KindUserEvent carries a value sent through a Proxy.
	KindUserEvent
	// KindAboutToWait is delivered at the end of every pump cycle.
	KindAboutToWait
	// KindLoopExiting is the last event before Run returns.
	KindLoopExiting
)

func (k EventKind) String() string {
	switch k {
	case KindResumed:
		return "Resumed"
	case KindWindowEvent:
		return "WindowEvent"
	case KindUserEvent:
		return "UserEvent"
	case KindAboutToWait:
		return "AboutToWait"
	case KindLoopExiting:
		return "LoopExiting"
	default:
		return "Unknown"
	}
}

// WindowEventKind identifies a window event.
type WindowEventKind int

const (
	Resized WindowEventKind = iota + 1
	RedrawRequested
	TitleChanged
	CloseRequested
	KeyboardInput
	CursorMoved
	MouseInput
	Focused
)

// WindowEvent is an event targeted at the window.
type WindowEvent struct {
	Kind    WindowEventKind
	Size    surface.Size
	Title   string
	Key     string
	X, Y    float64
	Button  int
	Pressed bool
	Focused bool
}

// Event is delivered to the loop handler. T is the user event type.
type Event[T any] struct {
	Kind   EventKind
	Window WindowEvent
	User   T
}

// Handler receives every event. It must return promptly: the loop cannot
// observe stop requests, resizes or input while a handler call is running.
type Handler[T any] func(event Event[T], ctl *Control)

func windowEventFromInput(in surface.InputEvent) (WindowEvent, bool) {
	switch in.Kind {
	case surface.InputKey:
		return WindowEvent{Kind: KeyboardInput, Key: in.Key, Pressed: in.Pressed}, true
	case surface.InputPointerMoved:
		return WindowEvent{Kind: CursorMoved, X: in.X, Y: in.Y}, true
	case surface.InputPointerButton:
		return WindowEvent{Kind: MouseInput, X: in.X, Y: in.Y, Button: in.Button, Pressed: in.Pressed}, true
	case surface.InputFocus:
		return WindowEvent{Kind: Focused, Focused: in.Focused}, true
	case surface.InputCloseRequested:
		return WindowEvent{Kind: CloseRequested}, true
	default:
		return WindowEvent{}, false
	}
}

// ControlFlow selects how the loop waits between pump cycles.
type ControlFlow int

const (
	// Poll runs a cycle every frame interval, or sooner when woken.
	Poll ControlFlow = iota
	// Wait sleeps until something wakes the loop.
	Wait
	// WaitUntil sleeps until a deadline or until woken.
	WaitUntil
)

// Control is passed to the handler to steer the loop.
type Control struct {
	flow     ControlFlow
	deadline time.Time
	exit     bool
	stop     <-chan struct{}
	window   *Window
}

// SetPoll selects Poll.
func (c *Control) SetPoll() { c.flow = Poll }

// SetWait selects Wait.
func (c *Control) SetWait() { c.flow = Wait }

// SetWaitUntil selects WaitUntil with the given deadline.
func (c *Control) SetWaitUntil(deadline time.Time) {
	c.flow = WaitUntil
	c.deadline = deadline
}

// Flow returns the current control flow.
func (c *Control) Flow() ControlFlow { return c.flow }

// Exit makes Run return after the current cycle.
func (c *Control) Exit() { c.exit = true }

// Exiting reports whether Exit was called.
func (c *Control) Exiting() bool { return c.exit }

// StopRequested reports whether the owner asked the loop to stop. The loop
// exits at the next cycle boundary; handlers may use this to skip work.
func (c *Control) StopRequested() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// Window returns the loop's window.
func (c *Control) Window() *Window { return c.window }
