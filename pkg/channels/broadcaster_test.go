package channels_test

import (
	"context"
	"testing"
	"time"

	"github.com/alkime/journal/pkg/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains ch once the broadcaster has closed it.
func collect(ch <-chan int) []int {
	var out []int
	for v := range ch {
		out = append(out, v)
	}

	return out
}

func TestBroadcaster_SetupErrors(t *testing.T) {
	t.Parallel()

	started := func() *channels.Broadcaster[int] {
		b := channels.NewBroadcaster[int]()
		require.NoError(t, b.Subscribe(make(chan int, 1)))
		_, err := b.Run(context.Background())
		require.NoError(t, err)

		return b
	}

	tests := []struct {
		name    string
		call    func() error
		wantErr string
	}{
		{
			name:    "nil subscriber",
			call:    func() error { return channels.NewBroadcaster[int]().Subscribe(nil) },
			wantErr: "cannot be nil",
		},
		{
			name: "nil subscriber with timeout",
			call: func() error {
				return channels.NewBroadcaster[int]().SubscribeWithTimeout(nil, time.Second)
			},
			wantErr: "cannot be nil",
		},
		{
			name: "zero timeout",
			call: func() error {
				return channels.NewBroadcaster[int]().SubscribeWithTimeout(make(chan int), 0)
			},
			wantErr: "must be positive",
		},
		{
			name:    "subscribe after run",
			call:    func() error { return started().Subscribe(make(chan int, 1)) },
			wantErr: "already started",
		},
		{
			name: "run without subscribers",
			call: func() error {
				_, err := channels.NewBroadcaster[int]().Run(context.Background())
				return err
			},
			wantErr: "no subscribers",
		},
		{
			name: "run twice",
			call: func() error {
				_, err := started().Run(context.Background())
				return err
			},
			wantErr: "already started",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.call()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBroadcaster_FansOutToEverySubscriber(t *testing.T) {
	t.Parallel()

	b := channels.NewBroadcaster[int](channels.WithCloseOnDrain())
	recorder := make(chan int, 10)
	meter := make(chan int, 10)
	live := make(chan int, 10)
	require.NoError(t, b.Subscribe(recorder))
	require.NoError(t, b.Subscribe(meter))
	require.NoError(t, b.SubscribeWithTimeout(live, 10*time.Millisecond))

	input, err := b.Run(context.Background())
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		input <- i
	}
	b.Close()
	b.Wait()

	for _, sub := range []chan int{recorder, meter, live} {
		assert.Equal(t, []int{1, 2, 3}, collect(sub))
	}
}

func TestBroadcaster_SlowSubscriberDoesNotStallOthers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		subscribe func(b *channels.Broadcaster[int], ch chan int) error
	}{
		{
			name:      "non-blocking",
			subscribe: func(b *channels.Broadcaster[int], ch chan int) error { return b.Subscribe(ch) },
		},
		{
			name: "with timeout",
			subscribe: func(b *channels.Broadcaster[int], ch chan int) error {
				return b.SubscribeWithTimeout(ch, time.Millisecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := channels.NewBroadcaster[int]()
			stuck := make(chan int, 1)
			stuck <- 99
			ready := make(chan int, 10)
			require.NoError(t, tt.subscribe(b, stuck))
			require.NoError(t, b.Subscribe(ready))

			input, err := b.Run(context.Background())
			require.NoError(t, err)

			for i := 1; i <= 4; i++ {
				input <- i
			}
			b.Close()
			b.Wait()
			close(ready)

			assert.Equal(t, []int{1, 2, 3, 4}, collect(ready))
			assert.Equal(t, 99, <-stuck)

			stats := b.Stats()
			require.Len(t, stats, 2)
			assert.Equal(t, channels.SubscriberStats{Dropped: 4}, stats[0])
			assert.Equal(t, channels.SubscriberStats{}, stats[1])
		})
	}
}

func TestBroadcaster_ClosedSubscriberGoesInactive(t *testing.T) {
	t.Parallel()

	b := channels.NewBroadcaster[int](channels.WithCloseOnDrain())
	gone := make(chan int, 10)
	ready := make(chan int, 10)
	require.NoError(t, b.Subscribe(gone))
	require.NoError(t, b.Subscribe(ready))

	input, err := b.Run(context.Background())
	require.NoError(t, err)

	close(gone)
	input <- 1
	input <- 2
	b.Close()
	b.Wait()

	assert.Equal(t, []int{1, 2}, collect(ready))
	assert.Equal(t, channels.SubscriberStats{Dropped: 2, Inactive: true}, b.Stats()[0])
}

func TestBroadcaster_CancelDrainsInFlight(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	b := channels.NewBroadcaster[int]()
	sub := make(chan int, 10)
	require.NoError(t, b.Subscribe(sub))

	input, err := b.Run(ctx)
	require.NoError(t, err)

	input <- 1
	input <- 2
	input <- 3
	cancel()

	start := time.Now()
	b.Wait()
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(sub)
	assert.Equal(t, []int{1, 2, 3}, collect(sub))
}

func TestBroadcaster_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	b := channels.NewBroadcaster[int]()
	b.Close() // before Run is a no-op

	sub := make(chan int, 1)
	require.NoError(t, b.Subscribe(sub))

	_, err := b.Run(context.Background())
	require.NoError(t, err)

	b.Close()
	b.Close()
	b.Wait()
}

func TestBroadcaster_WithBufferAcceptsBurst(t *testing.T) {
	t.Parallel()

	b := channels.NewBroadcaster[int](channels.WithCloseOnDrain(), channels.WithBuffer(16))
	out := make(chan int, 16)
	require.NoError(t, b.Subscribe(out))

	input, err := b.Run(context.Background())
	require.NoError(t, err)

	// a burst the size of the buffer lands without waiting on the fan-out loop
	for i := range 16 {
		require.NoError(t, channels.SendNonBlock(input, i))
	}
	b.Close()
	b.Wait()

	assert.Len(t, collect(out), 16)
}
