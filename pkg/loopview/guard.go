package loopview

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Guard enforces that at most one event loop is live at a time.
type Guard struct {
	mu     sync.Mutex
	holder *Token
	seq    uint64
}

// Token is proof of holding a Guard. It is spent by Release.
type Token struct {
	guard atomic.Pointer[Guard]
	id    uint64
	owner string
}

// DefaultGuard is the process-wide guard used by View unless overridden.
var DefaultGuard = NewGuard()

// NewGuard returns an unheld guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Acquire takes the guard for owner. It fails with ErrAlreadyRunning while
// another token holds it.
func (g *Guard) Acquire(owner string) (*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holder != nil {
		return nil, fmt.Errorf("%w (held by %s)", ErrAlreadyRunning, g.holder.owner)
	}
	g.seq++
	t := &Token{id: g.seq, owner: owner}
	t.guard.Store(g)
	g.holder = t
	return t, nil
}

// Held reports whether the guard is held.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holder != nil
}

// Holder returns the owner name of the current holder, or "".
func (g *Guard) Holder() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holder == nil {
		return ""
	}
	return g.holder.owner
}

// Owner returns the name the token was acquired for.
func (t *Token) Owner() string {
	return t.owner
}

// Release frees the guard. Releasing a spent token is a no-op and never
// frees a later holder.
func (t *Token) Release() {
	if t == nil {
		return
	}
	g := t.guard.Swap(nil)
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holder == t {
		g.holder = nil
	}
}
