// Package stream provides a cancellable live feed of snapshots.
//
// A Stream is returned at subscribe time and owned by the consumer, which
// must call Close when it no longer needs updates. Close cancels the producer
// and waits for it to return, so nothing is delivered after teardown.
package stream

import (
	"context"
	"errors"
	"sync"
)

// Producer pushes values through emit until ctx is done or an error occurs.
// emit reports false once the stream has been closed.
type Producer[T any] func(ctx context.Context, emit func(T) bool) error

type Stream[T any] struct {
	updates chan T
	done    chan struct{}
	cancel  context.CancelFunc

	once sync.Once
	mu   sync.Mutex
	err  error
}

// Start runs produce in its own goroutine and returns the stream of its values.
func Start[T any](ctx context.Context, produce Producer[T]) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		updates: make(chan T),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	emit := func(v T) bool {
		select {
		case s.updates <- v:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)

		err := produce(ctx, emit)
		if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()

	return s
}

// Updates is closed once the producer has returned.
func (s *Stream[T]) Updates() <-chan T {
	return s.updates
}

// Done is closed once the producer has returned.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the stream, nil if it ended by Close.
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the producer and blocks until it has exited. Safe to call more than once.
func (s *Stream[T]) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Map derives a stream by applying fn to every value of src. The derived
// stream owns src and closes it when it ends; an error ending src ends the
// derived stream with the same error.
func Map[T, U any](ctx context.Context, src *Stream[T], fn func(context.Context, T) U) *Stream[U] {
	return Start(ctx, func(ctx context.Context, emit func(U) bool) error {
		defer src.Close()
		for {
			select {
			case v, ok := <-src.Updates():
				if !ok {
					return src.Err()
				}
				if !emit(fn(ctx, v)) {
					return nil
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// Distinct drops values equal to the previous one.
func Distinct[T comparable](ctx context.Context, src *Stream[T]) *Stream[T] {
	return Start(ctx, func(ctx context.Context, emit func(T) bool) error {
		defer src.Close()
		var (
			last T
			seen bool
		)
		for {
			select {
			case v, ok := <-src.Updates():
				if !ok {
					return src.Err()
				}
				if seen && v == last {
					continue
				}
				last, seen = v, true
				if !emit(v) {
					return nil
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}
