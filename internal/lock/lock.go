// Package lock serializes operations that share a key, such as every
// index-changing write on one work.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrTimeout is returned when a lock could not be taken before the
// locker's wait limit.
var ErrTimeout = errors.New("lock wait timed out")

// Unlock releases a held lock. It is safe to call once.
type Unlock func(ctx context.Context) error

type Locker interface {
	// Lock blocks until key is held by the caller, ctx is done, or the
	// locker gives up with ErrTimeout.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Local is an in-process keyed lock for single-instance deployments.
//
// Why a channel per key instead of a sync.Mutex? A goroutine blocked in
// Mutex.Lock cannot give up when its request is cancelled. A one-slot
// channel lets the wait select on ctx.Done().
//
// Entries are reference counted by holders and waiters, and removed when
// the last one leaves, so keys for deleted works do not pile up.
type Local struct {
	mu   sync.Mutex
	keys map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{keys: make(map[string]*slot)}
}

func (l *Local) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.keys[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.keys[key] = s
	}
	s.refs++
	return s
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.keys, key)
	}
}

func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	s := l.acquire(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
		return nil
	}, nil
}
