package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(n int) Producer[int] {
	return func(ctx context.Context, emit func(int) bool) error {
		for i := 1; i <= n; i++ {
			if !emit(i) {
				return nil
			}
		}
		<-ctx.Done()
		return ctx.Err()
	}
}

func next[T any](t *testing.T, s *Stream[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.Updates():
		require.True(t, ok, "stream closed early")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	var zero T
	return zero
}

func TestStreamDeliversInOrder(t *testing.T) {
	s := Start(context.Background(), counter(3))
	defer s.Close()

	assert.Equal(t, 1, next(t, s))
	assert.Equal(t, 2, next(t, s))
	assert.Equal(t, 3, next(t, s))
}

func TestCloseStopsProducerAndClosesUpdates(t *testing.T) {
	exited := make(chan struct{})
	s := Start(context.Background(), func(ctx context.Context, emit func(int) bool) error {
		defer close(exited)
		for i := 0; ; i++ {
			if !emit(i) {
				return nil
			}
		}
	})

	next(t, s)
	s.Close()
	s.Close()

	select {
	case <-exited:
	default:
		t.Fatal("producer still running after Close")
	}
	_, ok := <-s.Updates()
	assert.False(t, ok)
	assert.NoError(t, s.Err())
}

func TestProducerErrorIsReported(t *testing.T) {
	boom := errors.New("listen failed")
	s := Start(context.Background(), func(ctx context.Context, emit func(int) bool) error {
		emit(7)
		return boom
	})

	assert.Equal(t, 7, next(t, s))
	<-s.Done()
	assert.ErrorIs(t, s.Err(), boom)
}

func TestMapAndDistinct(t *testing.T) {
	src := Start(context.Background(), func(ctx context.Context, emit func(int) bool) error {
		for _, v := range []int{1, 1, 2, 2, 2, 3} {
			if !emit(v) {
				return nil
			}
		}
		return nil
	})
	doubled := Map(context.Background(), src, func(_ context.Context, v int) int { return v * 2 })
	d := Distinct(context.Background(), doubled)
	defer d.Close()

	var got []int
	for v := range d.Updates() {
		got = append(got, v)
	}
	assert.Equal(t, []int{2, 4, 6}, got)
	assert.NoError(t, d.Err())
}

func TestClosingDerivedStreamClosesSource(t *testing.T) {
	src := Start(context.Background(), counter(1))
	m := Map(context.Background(), src, func(_ context.Context, v int) string { return "x" })

	assert.Equal(t, "x", next(t, m))
	m.Close()

	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("source not closed")
	}
}
