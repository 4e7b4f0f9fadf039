package signal

// Maybe is an input that is either a fixed value or a reactive Signal.
// The zero Maybe is unset; use Or to supply a default.
type Maybe[T comparable] struct {
	value  T
	signal *Signal[T]
	set    bool
}

// Static returns a fixed input.
func Static[T comparable](value T) Maybe[T] {
	return Maybe[T]{value: value, set: true}
}

// Dynamic returns an input that follows s. A nil s yields an unset Maybe.
func Dynamic[T comparable](s *Signal[T]) Maybe[T] {
	if s == nil {
		return Maybe[T]{}
	}
	return Maybe[T]{signal: s, set: true}
}

// Get returns the current value.
func (m Maybe[T]) Get() T {
	if m.signal != nil {
		return m.signal.Get()
	}
	return m.value
}

// IsSet reports whether the input was provided.
func (m Maybe[T]) IsSet() bool {
	return m.set
}

// IsDynamic reports whether the input is backed by a Signal.
func (m Maybe[T]) IsDynamic() bool {
	return m.signal != nil
}

// Or returns m if it is set and a static fallback otherwise.
func (m Maybe[T]) Or(fallback T) Maybe[T] {
	if m.set {
		return m
	}
	return Static(fallback)
}

// Same reports whether m and other describe the same input: the same
// signal, or equal static values.
func (m Maybe[T]) Same(other Maybe[T]) bool {
	if m.signal != nil || other.signal != nil {
		return m.signal == other.signal
	}
	return m.set == other.set && m.value == other.value
}

func (m Maybe[T]) subscribe(w *watcher) func() {
	if m.signal == nil {
		return func() {}
	}
	return m.signal.subscribe(w)
}
