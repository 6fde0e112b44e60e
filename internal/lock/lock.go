// Package lock serializes account re-registration so that overlapping
// cycles never register twice for the same invalid session.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned when the lock could not be taken in time.
var ErrNotAcquired = errors.New("lock held by another worker")

// Locker hands out a single writer lock. Acquire blocks until the lock is
// taken or ctx is done; the returned func releases it and is safe to call
// more than once.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Local is an in-process Locker. Each name has its own lock.
type Local struct {
	mu    sync.Mutex
	names map[string]chan struct{}
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local {
	return &Local{names: map[string]chan struct{}{}}
}

func (l *Local) slot(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.names[name]
	if !ok {
		c = make(chan struct{}, 1)
		l.names[name] = c
	}
	return c
}

func (l *Local) Acquire(ctx context.Context, name string) (func(), error) {
	c := l.slot(name)
	select {
	case c <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-c }) }, nil
	case <-ctx.Done():
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}
}
