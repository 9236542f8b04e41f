package connection

import (
	"context"
	"fmt"
	"sync"
)

// Source is the read-only side of a Stream.
type Source[T any] interface {
	// Current returns the most recently published value (or the initial value).
	Current() T

	// Subscribe registers a new consumer. The returned channel delivers values
	// in publish order and is closed after cancel is called.
	Subscribe() (<-chan T, func())
}

// StateSource is the read-only state stream of a Connection.
type StateSource = Source[State]

// DataSource is the read-only inbound payload stream of a Receiver.
type DataSource = Source[string]

// Stream is a single-producer, multi-consumer broadcast channel.
//
// Each subscriber owns an unbounded queue drained by its own goroutine, so a
// slow consumer never blocks Publish or other consumers and no value is
// dropped. A replaying stream hands the latest value to every new subscriber
// before any later value.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Stream[T any] struct {
	mu      sync.Mutex
	replay  bool
	current T
	subs    map[*subscriber[T]]struct{}
}

// NewStateStream creates a replaying stream whose initial value is StateNone.
func NewStateStream() *Stream[State] {
	return &Stream[State]{
		replay:  true,
		current: StateNone,
		subs:    make(map[*subscriber[State]]struct{}),
	}
}

// NewDataStream creates a non-replaying stream for inbound payloads.
func NewDataStream() *Stream[string] {
	return &Stream[string]{
		subs: make(map[*subscriber[string]]struct{}),
	}
}

// Current returns the latest published value.
func (s *Stream[T]) Current() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Publish records v as the latest value and queues it for every subscriber.
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = v
	for sub := range s.subs {
		sub.push(v)
	}
}

// Subscribe registers a consumer. See Source.Subscribe.
func (s *Stream[T]) Subscribe() (<-chan T, func()) {
	sub := &subscriber[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.replay {
		sub.push(s.current)
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go sub.pump()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		sub.stop()
	}
	return sub.out, cancel
}

// SubscriberCount returns the number of active subscribers.
func (s *Stream[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type subscriber[T any] struct {
	mu    sync.Mutex
	queue []T
	wake  chan struct{}
	out   chan T
	done  chan struct{}
	once  sync.Once
}

func (sub *subscriber[T]) push(v T) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, v)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscriber[T]) stop() {
	sub.once.Do(func() { close(sub.done) })
}

func (sub *subscriber[T]) pump() {
	defer close(sub.out)

	var zero T
	for {
		sub.mu.Lock()
		if len(sub.queue) == 0 {
			sub.mu.Unlock()
			select {
			case <-sub.wake:
				continue
			case <-sub.done:
				return
			}
		}
		v := sub.queue[0]
		sub.queue[0] = zero
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.out <- v:
		case <-sub.done:
			return
		}
	}
}

// Await blocks until src publishes a value matching match, or ctx ends.
// The current value is checked first.
func Await[T any](ctx context.Context, src Source[T], match func(T) bool) (T, error) {
	ch, cancel := src.Subscribe()
	defer cancel()

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				var zero T
				return zero, fmt.Errorf("await: stream closed")
			}
			if match(v) {
				return v, nil
			}
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("await: %w", ctx.Err())
		}
	}
}
