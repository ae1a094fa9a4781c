// Package resource is the fetch-then-render state machine shared by every view that reads from
// the catalog: idle, loading, ready or failed.
package resource

import (
	"context"
	"errors"
	"sync"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var ErrClosed = errors.New("resource closed")

// Snapshot is a point-in-time view of a resource. Value keeps the last loaded value while a
// reload is in flight.
type Snapshot[T any] struct {
	State State
	Value T
	Err   error
}

type Loader[T any] func(ctx context.Context) (T, error)

// Resource runs a Loader and records its outcome. A newer Start supersedes an older one still
// in flight, and after Close no outcome is applied.
type Resource[T any] struct {
	load Loader[T]

	mu     sync.Mutex
	snap   Snapshot[T]
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func New[T any](load Loader[T]) *Resource[T] {
	return &Resource[T]{load: load}
}

// Start begins a load in the background and returns immediately.
func (r *Resource[T]) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}

	r.gen++
	gen := r.gen
	lctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.snap = Snapshot[T]{State: Loading, Value: r.snap.Value}

	go func() {
		defer close(done)
		defer cancel()

		v, err := r.load(lctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || gen != r.gen {
			return
		}
		r.cancel = nil
		if err != nil {
			r.snap = Snapshot[T]{State: Failed, Value: r.snap.Value, Err: err}
			return
		}
		r.snap = Snapshot[T]{State: Ready, Value: v}
	}()
}

// Wait blocks until the most recent load has settled and returns the resulting snapshot.
// A resource that was never started returns its Idle snapshot at once.
func (r *Resource[T]) Wait(ctx context.Context) (Snapshot[T], error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return Snapshot[T]{}, ErrClosed
		}
		snap, done := r.snap, r.done
		r.mu.Unlock()

		if snap.State != Loading {
			return snap, nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Load starts a load and waits for it.
func (r *Resource[T]) Load(ctx context.Context) (T, error) {
	r.Start(ctx)
	snap, err := r.Wait(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if snap.State == Failed {
		return snap.Value, snap.Err
	}
	return snap.Value, nil
}

func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Mutate replaces a ready value in place without refetching. It reports whether the value
// was changed; it does nothing unless the resource is Ready.
func (r *Resource[T]) Mutate(fn func(T) T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.snap.State != Ready {
		return false
	}
	r.snap.Value = fn(r.snap.Value)
	return true
}

// Close cancels any load in flight and discards its result.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
