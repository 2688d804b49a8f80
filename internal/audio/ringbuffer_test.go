package audio_test

import (
	"context"
	"testing"
	"time"

	"github.com/alkime/journal/internal/audio"
	"github.com/alkime/journal/pkg/uictl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ uictl.Levels[int16] = (*audio.SampleRing)(nil)

func TestSampleRing_Last(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		writes   [][]int16
		n        int
		expected []int16
	}{
		{name: "partial fill", capacity: 10, writes: [][]int16{{1, 2, 3, 4, 5}}, n: 5, expected: []int16{1, 2, 3, 4, 5}},
		{name: "wraparound", capacity: 5, writes: [][]int16{{1, 2, 3, 4, 5, 6, 7}}, n: 5, expected: []int16{3, 4, 5, 6, 7}},
		{name: "batched writes", capacity: 5, writes: [][]int16{{1, 2}, {3, 4}, {5, 6}}, n: 5, expected: []int16{2, 3, 4, 5, 6}},
		{name: "oversized write", capacity: 3, writes: [][]int16{{1}, {2, 3, 4, 5, 6, 7}}, n: 3, expected: []int16{5, 6, 7}},
		{name: "fewer than available", capacity: 10, writes: [][]int16{{1, 2, 3, 4, 5, 6}}, n: 3, expected: []int16{4, 5, 6}},
		{name: "more than available", capacity: 10, writes: [][]int16{{1, 2, 3}}, n: 10, expected: []int16{1, 2, 3}},
		{name: "zero", capacity: 10, writes: [][]int16{{1, 2, 3}}, n: 0, expected: nil},
		{name: "negative", capacity: 10, writes: [][]int16{{1, 2, 3}}, n: -1, expected: nil},
		{name: "empty write", capacity: 10, writes: [][]int16{{}}, n: 5, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ring := audio.NewSampleRing(tt.capacity)
			for _, w := range tt.writes {
				ring.Write(w)
			}

			require.Equal(t, tt.expected, ring.Last(tt.n))
		})
	}
}

func TestSampleRing_WritePCMAndPeak(t *testing.T) {
	t.Parallel()

	ring := audio.NewSampleRing(4)
	ring.WritePCM([]byte{0x01, 0x00, 0x00, 0x80, 0xFF, 0x7F})

	assert.Equal(t, []int16{1, -32768, 32767}, ring.Read())
	assert.Equal(t, 3, ring.Len())
	assert.Equal(t, 32768, ring.Peak())

	ring.Reset()
	assert.Zero(t, ring.Len())
	assert.Zero(t, ring.Peak())
	assert.Nil(t, ring.Read())
}

func TestSampleRing_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ring := audio.NewSampleRing(1000)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go func() {
		counter := int16(0)
		for ctx.Err() == nil {
			ring.Write([]int16{counter, counter + 1, counter + 2})
			counter += 3
		}
	}()

	for ctx.Err() == nil {
		_ = ring.Last(10)
		_ = ring.Peak()
	}
}

func TestBytesToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    []byte
		expected []int16
	}{
		{name: "empty", input: []byte{}, expected: nil},
		{name: "single sample", input: []byte{0x00, 0x01}, expected: []int16{256}},
		{name: "multiple samples", input: []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00}, expected: []int16{1, 2, 3}},
		{name: "negative sample", input: []byte{0xFF, 0xFF}, expected: []int16{-1}},
		{name: "max negative", input: []byte{0x00, 0x80}, expected: []int16{-32768}},
		{name: "odd byte count truncates", input: []byte{0x01, 0x00, 0x02}, expected: []int16{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, audio.BytesToInt16(tt.input))
		})
	}
}
