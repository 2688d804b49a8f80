package audio

import (
	"encoding/binary"
	"sync"
)

// DefaultLevelWindow holds ~250ms of 16kHz audio for the level meter.
const DefaultLevelWindow = 4000

// SampleRing keeps the most recent samples of a recording for the level
// meter. One goroutine writes; any number may read.
type SampleRing struct {
	mu      sync.RWMutex
	samples []int16
	head    int // next write position
	count   int // valid samples, up to capacity
}

// NewSampleRing creates a ring holding capacity samples.
func NewSampleRing(capacity int) *SampleRing {
	return &SampleRing{samples: make([]int16, max(1, capacity))}
}

// WritePCM decodes S16LE bytes and appends them.
func (b *SampleRing) WritePCM(data []byte) {
	b.Write(BytesToInt16(data))
}

// Write appends samples, overwriting the oldest when full.
func (b *SampleRing) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.samples)

	// only the newest capacity samples can survive
	if len(samples) > capacity {
		samples = samples[len(samples)-capacity:]
	}

	for _, sample := range samples {
		b.samples[b.head] = sample
		b.head = (b.head + 1) % capacity
	}

	b.count = min(capacity, b.count+len(samples))
}

// Last returns up to n most recent samples, oldest first.
func (b *SampleRing) Last(n int) []int16 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 || n <= 0 {
		return nil
	}

	n = min(n, b.count)
	capacity := len(b.samples)
	start := (b.head - n + capacity) % capacity

	out := make([]int16, n)
	for i := range out {
		out[i] = b.samples[(start+i)%capacity]
	}

	return out
}

// Read returns every buffered sample, oldest first. It satisfies uictl.Levels.
func (b *SampleRing) Read() []int16 {
	return b.Last(len(b.samples))
}

// Len returns the number of buffered samples.
func (b *SampleRing) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.count
}

// Peak returns the largest absolute amplitude in the buffer.
func (b *SampleRing) Peak() int {
	var peak int

	for _, s := range b.Read() {
		v := int(s)
		if v < 0 {
			v = -v
		}

		peak = max(peak, v)
	}

	return peak
}

// Reset drops all samples.
func (b *SampleRing) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.head = 0
	b.count = 0
}

// BytesToInt16 converts S16LE bytes to samples. A trailing odd byte is ignored.
func BytesToInt16(data []byte) []int16 {
	n := len(data) / BytesPerSample
	if n == 0 {
		return nil
	}

	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
	}

	return samples
}
