package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// subscriber holds a channel and its send timeout configuration.
type subscriber[T any] struct {
	ch       chan<- T
	timeout  *time.Duration // nil means non-blocking
	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	var err error
	if s.timeout != nil {
		err = SendWithTimeout(s.ch, msg, *s.timeout)
	} else {
		err = SendNonBlock(s.ch, msg)
	}

	if err != nil {
		// a closed channel never recovers; anything else is a dropped message
		s.dropped.Add(1)
		if errors.Is(err, ErrChannelClosed) {
			s.inactive.Store(true)
		}
	}
}

func (s *subscriber[T]) close() {
	if s.inactive.Load() {
		return
	}

	defer func() { _ = recover() }()
	close(s.ch)
}

// Option configures a Broadcaster.
type Option func(*options)

type options struct {
	closeOnDrain bool
	buffer       int
}

// WithCloseOnDrain makes the broadcaster close every subscriber channel once
// the input has been closed and drained, so subscribers can range over them.
func WithCloseOnDrain() Option {
	return func(o *options) { o.closeOnDrain = true }
}

// WithBuffer sets the input channel depth. The default is two messages per
// subscriber.
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

// Broadcaster broadcasts messages from a single input channel to multiple subscriber channels.
// It owns the input channel.
//
// Messages are sent to subscribers using the configured send strategy:
//   - Non-blocking (Subscribe): messages are dropped if the channel is full
//   - With timeout (SubscribeWithTimeout): messages are dropped if the send times out
//
// The input is closed by Close or on context cancellation, whichever comes
// first; remaining messages are drained to subscribers before Wait returns.
// The producer must stop sending once either has happened.
type Broadcaster[T any] struct {
	opts        options
	subscribers []*subscriber[T]
	input       chan T
	started     atomic.Bool
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// NewBroadcaster creates a new Broadcaster for messages of type T.
func NewBroadcaster[T any](opts ...Option) *Broadcaster[T] {
	b := &Broadcaster[T]{}
	for _, opt := range opts {
		opt(&b.opts)
	}

	return b
}

// Subscribe adds a channel to receive broadcasted messages in non-blocking mode.
// Must be called before Run(). Not safe for concurrent use with Run().
func (b *Broadcaster[T]) Subscribe(ch chan<- T) error {
	return b.subscribe(ch, nil)
}

// SubscribeWithTimeout adds a channel to receive broadcasted messages with a send timeout.
// Must be called before Run(). Not safe for concurrent use with Run().
func (b *Broadcaster[T]) SubscribeWithTimeout(ch chan<- T, timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	return b.subscribe(ch, &timeout)
}

func (b *Broadcaster[T]) subscribe(ch chan<- T, timeout *time.Duration) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	if b.started.Load() {
		return errors.New("broadcaster already started")
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{ch: ch, timeout: timeout})

	return nil
}

// Run starts the broadcaster and returns the input channel for sending messages.
//
// Returns error if already started or no subscribers exist.
func (b *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	if b.started.Load() {
		return nil, errors.New("broadcaster already started")
	}

	if len(b.subscribers) == 0 {
		return nil, errors.New("no subscribers available")
	}

	buffer := b.opts.buffer
	if buffer <= 0 {
		buffer = len(b.subscribers) * 2
	}

	b.input = make(chan T, buffer)

	b.wg.Go(func() {
		for msg := range b.input {
			for _, sub := range b.subscribers {
				sub.send(msg)
			}
		}

		if b.opts.closeOnDrain {
			for _, sub := range b.subscribers {
				sub.close()
			}
		}
	})

	b.started.Store(true)

	stop := context.AfterFunc(ctx, b.Close)
	go func() {
		b.wg.Wait()
		stop()
	}()

	return b.input, nil
}

// Close closes the input channel. It is safe to call more than once.
func (b *Broadcaster[T]) Close() {
	if !b.started.Load() {
		return
	}

	b.closeOnce.Do(func() { close(b.input) })
}

// Wait blocks until the input has been closed and drained.
// Multiple goroutines can safely call Wait().
func (b *Broadcaster[T]) Wait() {
	b.wg.Wait()
}

// SubscriberStats reports delivery for one subscriber.
type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

// Stats returns per-subscriber delivery counts in subscription order.
func (b *Broadcaster[T]) Stats() []SubscriberStats {
	stats := make([]SubscriberStats, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(sub.dropped.Load()),
			Inactive: sub.inactive.Load(),
		})
	}

	return stats
}
