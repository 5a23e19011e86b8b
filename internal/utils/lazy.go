package utils

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// Lazy memoizes the first successful result of init.
// Concurrent callers during an in-flight init share that single call; a failed init is not cached.
// An init that started before a Reset never becomes the memoized value.
type Lazy[T any] struct {
	init       func(ctx context.Context) (T, error)
	value      atomic.Pointer[T]
	generation atomic.Uint64
	mu         sync.Mutex
	group      singleflight.Group
}

func NewLazy[T any](init func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the memoized value, running init at most once at a time until it succeeds
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if v := l.value.Load(); v != nil {
		return *v, nil
	}

	generation := l.generation.Load()
	result, err, _ := l.group.Do(strconv.FormatUint(generation, 10), func() (interface{}, error) {
		if v := l.value.Load(); v != nil {
			return *v, nil
		}
		// the result is shared by every waiting caller, so the first caller's cancellation must not fail the rest
		v, err := l.init(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.generation.Load() == generation {
			l.value.Store(&v)
		}
		l.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Peek returns the memoized value without triggering init
func (l *Lazy[T]) Peek() (T, bool) {
	if v := l.value.Load(); v != nil {
		return *v, true
	}
	var zero T
	return zero, false
}

// Reset drops the memoized value so the next Get runs init again
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation.Inc()
	l.value.Store(nil)
}
