package loopview

import (
	"context"
	"sync"

	"github.com/go-drift/loopview/pkg/signal"
	"github.com/go-drift/loopview/pkg/surface"
)

// SizeSignal combines a width input and a height input into one reactive
// size. Changes to both sides within the same reactive tick are delivered
// as a single update.
type SizeSignal struct {
	width  signal.Maybe[uint32]
	height signal.Maybe[uint32]
}

// NewSizeSignal combines width and height. Either may be static or dynamic.
func NewSizeSignal(width, height signal.Maybe[uint32]) *SizeSignal {
	return &SizeSignal{width: width, height: height}
}

// Get returns the current size.
func (s *SizeSignal) Get() surface.Size {
	return surface.Sz(s.width.Get(), s.height.Get())
}

// Dynamic reports whether either side can change.
func (s *SizeSignal) Dynamic() bool {
	return s.width.IsDynamic() || s.height.IsDynamic()
}

// Watch calls fn with the new size after each tick that changed it. fn is
// not called for ticks that leave the pair unchanged.
func (s *SizeSignal) Watch(fn func(surface.Size)) (stop func()) {
	var mu sync.Mutex
	last := s.Get()
	return signal.Watch(func() {
		size := s.Get()
		mu.Lock()
		if size == last {
			mu.Unlock()
			return
		}
		last = size
		mu.Unlock()
		fn(size)
	}, s.width, s.height)
}

// Updates returns a stream of size changes, starting from the moment it is
// called. The channel holds at most one undelivered size; a newer size
// replaces it, so a slow reader only ever sees the latest. The channel is
// closed when ctx is done.
func (s *SizeSignal) Updates(ctx context.Context) <-chan surface.Size {
	out := make(chan surface.Size, 1)
	var mu sync.Mutex
	closed := false

	stop := s.Watch(func(size surface.Size) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-out:
		default:
		}
		out <- size
	})

	go func() {
		<-ctx.Done()
		stop()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out
}
