package lock

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrNotHeld is returned when releasing or refreshing a lock this holder
// does not own, including one that expired and was taken by someone else
var ErrNotHeld = errors.New("lock not held")

// Locker is a non-blocking mutual exclusion primitive. TryAcquire never
// waits: it reports false when the lock is already held. Refresh extends a
// held lock that would otherwise expire.
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

// InFlightGuard allows at most one holder inside a single process
type InFlightGuard struct {
	running atomic.Bool
}

// NewInFlightGuard creates an unheld guard
func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{}
}

func (g *InFlightGuard) TryAcquire(context.Context) (bool, error) {
	return g.running.CompareAndSwap(false, true), nil
}

// Refresh is a no-op for a held guard; it never expires
func (g *InFlightGuard) Refresh(context.Context) error {
	if !g.running.Load() {
		return ErrNotHeld
	}
	return nil
}

func (g *InFlightGuard) Release(context.Context) error {
	g.running.Store(false)
	return nil
}

// Running reports whether the guard is held
func (g *InFlightGuard) Running() bool {
	return g.running.Load()
}

// Chain acquires every locker in order and releases in reverse. If a later
// locker is busy, the ones already taken are released again.
type Chain []Locker

func (c Chain) TryAcquire(ctx context.Context) (bool, error) {
	for i, l := range c {
		ok, err := l.TryAcquire(ctx)
		if err != nil || !ok {
			c[:i].release(ctx)
			return false, err
		}
	}
	return true, nil
}

// Refresh refreshes every locker, returning the first error
func (c Chain) Refresh(ctx context.Context) error {
	var firstErr error
	for _, l := range c {
		if err := l.Refresh(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c Chain) Release(ctx context.Context) error {
	return c.release(ctx)
}

func (c Chain) release(ctx context.Context) error {
	var firstErr error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Release(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
