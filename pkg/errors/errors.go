// Package errors provides structured error handling for loopview.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindGuard indicates the instance guard refused an acquisition.
	KindGuard
	// KindSurface indicates the host failed to create a drawable surface.
	KindSurface
	// KindWindow indicates a window could not be bound to its surface.
	KindWindow
	// KindEventLoop indicates the event loop could not be constructed.
	KindEventLoop
	// KindProgram indicates the user program returned an error.
	KindProgram
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates invalid configuration.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindGuard:
		return "guard"
	case KindSurface:
		return "surface"
	case KindWindow:
		return "window"
	case KindEventLoop:
		return "eventloop"
	case KindProgram:
		return "program"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// LoopError represents a structured error raised while mounting, running,
// or tearing down an embedded event loop.
type LoopError struct {
	// Op is the operation that failed (e.g., "loopview.Start").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Element is the surface element id, if applicable.
	Element string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *LoopError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("%s [%s] element=%s: %v", e.Op, e.Kind, e.Element, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *LoopError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "loopview.program").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by loopview.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *LoopError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
