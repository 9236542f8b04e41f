// Package connectiontest provides helpers for observing connection streams in tests.
package connectiontest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/remotepad/internal/connection"
)

// Timeout bounds every wait in this package.
const Timeout = 5 * time.Second

// Recorder collects every value a source delivers after subscription.
type Recorder[T any] struct {
	mu   sync.Mutex
	got  []T
	wake chan struct{}
}

// Record subscribes to src for the lifetime of the test.
func Record[T any](t testing.TB, src connection.Source[T]) *Recorder[T] {
	t.Helper()
	ch, cancel := src.Subscribe()
	r := &Recorder[T]{wake: make(chan struct{}, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for v := range ch {
			r.mu.Lock()
			r.got = append(r.got, v)
			r.mu.Unlock()
			select {
			case r.wake <- struct{}{}:
			default:
			}
		}
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

// Values returns a copy of everything recorded so far.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.got...)
}

// WaitLen blocks until at least n values have been recorded.
func (r *Recorder[T]) WaitLen(t testing.TB, n int) []T {
	t.Helper()
	deadline := time.After(Timeout)
	for {
		if v := r.Values(); len(v) >= n {
			return v
		}
		select {
		case <-r.wake:
		case <-deadline:
			t.Fatalf("recorded %d values, want at least %d: %v", len(r.Values()), n, r.Values())
		}
	}
}

// AwaitState blocks until src reaches want.
func AwaitState(t testing.TB, src connection.StateSource, want connection.State) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	_, err := connection.Await(ctx, src, func(s connection.State) bool { return s == want })
	require.NoError(t, err, "waiting for %s, current %s", want, src.Current())
}
