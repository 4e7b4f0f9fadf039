// Package signal provides the reactive values that drive loopview inputs.
//
// A Signal holds a value and notifies watchers when it changes. Writes made
// inside one Batch form a single reactive tick: every watcher affected by
// the tick runs once, after the outermost Batch returns, no matter how many
// of its sources changed.
//
//	width := signal.New[uint32](500)
//	height := signal.New[uint32](500)
//	stop := signal.Watch(func() { resize(width.Get(), height.Get()) }, width, height)
//	defer stop()
//
//	signal.Batch(func() {
//	    width.Set(800)
//	    height.Set(600)
//	}) // resize runs once
//
// Signals are meant to be written from the UI goroutine. Reads are safe from
// any goroutine.
package signal

import "sync"

// Source is anything a watcher can subscribe to.
type Source interface {
	subscribe(w *watcher) (unsubscribe func())
}

// Signal is a reactive value.
type Signal[T comparable] struct {
	mu       sync.RWMutex
	value    T
	watchers map[*watcher]struct{}
}

// New creates a signal holding initial.
func New[T comparable](initial T) *Signal[T] {
	return &Signal[T]{value: initial}
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores value and notifies watchers if it differs from the current one.
// Outside a Batch, the write is its own tick.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	if s.value == value {
		s.mu.Unlock()
		return
	}
	s.value = value
	pending := make([]*watcher, 0, len(s.watchers))
	for w := range s.watchers {
		pending = append(pending, w)
	}
	s.mu.Unlock()

	Batch(func() {
		for _, w := range pending {
			enqueue(w)
		}
	})
}

// Update applies transform to the current value and stores the result.
func (s *Signal[T]) Update(transform func(T) T) {
	s.Set(transform(s.Get()))
}

func (s *Signal[T]) subscribe(w *watcher) func() {
	s.mu.Lock()
	if s.watchers == nil {
		s.watchers = make(map[*watcher]struct{})
	}
	s.watchers[w] = struct{}{}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, w)
		s.mu.Unlock()
	}
}

// watcher is one registered effect. It is queued at most once per tick.
type watcher struct {
	fn      func()
	mu      sync.Mutex
	stopped bool
	queued  bool
}

func (w *watcher) run() {
	w.mu.Lock()
	w.queued = false
	stopped := w.stopped
	w.mu.Unlock()
	if !stopped {
		w.fn()
	}
}

// Watch runs fn after every tick in which at least one of sources changed.
// fn is not called immediately. The returned function stops the watcher; it
// is safe to call more than once.
func Watch(fn func(), sources ...Source) (stop func()) {
	w := &watcher{fn: fn}
	unsubs := make([]func(), 0, len(sources))
	for _, src := range sources {
		if src == nil {
			continue
		}
		unsubs = append(unsubs, src.subscribe(w))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.stopped = true
			w.mu.Unlock()
			for _, unsub := range unsubs {
				unsub()
			}
		})
	}
}

var tick struct {
	mu      sync.Mutex
	depth   int
	pending []*watcher
}

// Batch runs fn as one reactive tick. Watchers triggered by writes inside fn
// run once each, in first-triggered order, after the outermost Batch
// returns. Writes made by watchers start a new tick.
func Batch(fn func()) {
	tick.mu.Lock()
	tick.depth++
	tick.mu.Unlock()

	defer func() {
		tick.mu.Lock()
		tick.depth--
		if tick.depth > 0 {
			tick.mu.Unlock()
			return
		}
		pending := tick.pending
		tick.pending = nil
		tick.mu.Unlock()

		for _, w := range pending {
			w.run()
		}
	}()

	fn()
}

func enqueue(w *watcher) {
	w.mu.Lock()
	if w.queued || w.stopped {
		w.mu.Unlock()
		return
	}
	w.queued = true
	w.mu.Unlock()

	tick.mu.Lock()
	tick.pending = append(tick.pending, w)
	tick.mu.Unlock()
}
