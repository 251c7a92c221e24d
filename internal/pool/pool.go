// Package pool keeps idle instances of a closable resource for reuse.
package pool

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("pool is closed")

// Pool hands out instances created by a factory and keeps returned ones for the
// next caller. Every instance it ever created is closed exactly once: on Put when
// the pool is full or closed, otherwise on Close.
type Pool[T any] struct {
	mu      sync.Mutex
	idle    []T
	maxIdle int
	closed  bool

	newFn   func(ctx context.Context) (T, error)
	closeFn func(ctx context.Context, v T) error
}

// New returns a pool that keeps at most maxIdle instances. A maxIdle below one
// keeps a single instance.
func New[T any](
	maxIdle int,
	newFn func(ctx context.Context) (T, error),
	closeFn func(ctx context.Context, v T) error,
) *Pool[T] {
	if maxIdle < 1 {
		maxIdle = 1
	}
	return &Pool[T]{
		maxIdle: maxIdle,
		newFn:   newFn,
		closeFn: closeFn,
	}
}

// Get returns an idle instance, or a new one when none is idle.
func (p *Pool[T]) Get(ctx context.Context) (T, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		var zero T
		return zero, ErrClosed
	}
	if n := len(p.idle); n > 0 {
		v := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()
	return p.newFn(ctx)
}

// Put returns v to the pool.
func (p *Pool[T]) Put(ctx context.Context, v T) error {
	p.mu.Lock()
	if p.closed || len(p.idle) >= p.maxIdle {
		p.mu.Unlock()
		return p.closeFn(ctx, v)
	}
	p.idle = append(p.idle, v)
	p.mu.Unlock()
	return nil
}

// Discard closes v without returning it, for instances left in an unknown state.
func (p *Pool[T]) Discard(ctx context.Context, v T) error {
	return p.closeFn(ctx, v)
}

// Idle reports the number of instances waiting for reuse.
func (p *Pool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close closes every idle instance. Later calls are no-ops.
func (p *Pool[T]) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, v := range idle {
		if err := p.closeFn(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
