// Package recognition runs live speech recognition alongside a recording.
//
// A Transcriber supervises streams from a SpeechEngine: it forwards audio,
// accumulates finalized segments, and transparently restarts the stream when
// the host ends it while audio is still flowing. Recognition is best-effort;
// failures are logged and never surface to the recorder.
package recognition

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrUnsupported indicates live recognition is not available on this host.
var ErrUnsupported = errors.New("speech recognition unsupported")

// Segment is one recognition hypothesis. Final segments are never revised.
type Segment struct {
	Text  string
	Final bool
}

// Stream is a single recognition session held open by an engine.
type Stream interface {
	// SendAudio forwards a chunk of 16-bit little-endian mono PCM.
	SendAudio(chunk []byte) error
	// Finish signals end of audio; the engine flushes trailing segments and
	// then closes the segment channel.
	Finish() error
	// Segments is closed when the stream ends for any reason.
	Segments() <-chan Segment
	// Close tears the stream down immediately.
	Close() error
}

// SpeechEngine opens recognition streams.
type SpeechEngine interface {
	Start(ctx context.Context) (Stream, error)
}

// Options tunes the supervisor.
type Options struct {
	// RestartDelay is the first backoff after a failed start.
	RestartDelay time.Duration
	// MaxRestartDelay caps the exponential backoff.
	MaxRestartDelay time.Duration
	// StopGrace bounds how long trailing segments are awaited after audio ends.
	StopGrace time.Duration
}

// pendingLimit caps audio held while a stream is dialing; older chunks are
// dropped first.
const pendingLimit = 128

const (
	DefaultRestartDelay    = 250 * time.Millisecond
	DefaultMaxRestartDelay = 5 * time.Second
	DefaultStopGrace       = 3 * time.Second
)

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.RestartDelay <= 0 {
		o.RestartDelay = DefaultRestartDelay
	}

	if o.MaxRestartDelay < o.RestartDelay {
		o.MaxRestartDelay = max(DefaultMaxRestartDelay, o.RestartDelay)
	}

	if o.StopGrace <= 0 {
		o.StopGrace = DefaultStopGrace
	}

	return o
}

// Transcriber is a restartable live recognition session. It is single use.
type Transcriber struct {
	engine SpeechEngine
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	finals   []string
	interim  string
	started  bool
	restarts int

	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewTranscriber creates a transcriber over engine.
func NewTranscriber(engine SpeechEngine, opts Options, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}

	return &Transcriber{
		engine: engine,
		opts:   opts.WithDefaults(),
		logger: logger.With("component", "recognition"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the supervisor. Audio is consumed until the channel closes,
// Stop is called, or ctx is cancelled.
func (t *Transcriber) Start(ctx context.Context, audio <-chan []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return errors.New("transcriber already started")
	}

	t.started = true

	ctx, t.cancel = context.WithCancel(ctx)
	go t.supervise(ctx, audio)

	return nil
}

// Stop ends recognition and returns the accumulated final text. Trailing
// segments are awaited for the stop grace period unless ctx ends first.
func (t *Transcriber) Stop(ctx context.Context) string {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()

	if !started {
		return t.Text()
	}

	t.stopOnce.Do(func() { close(t.stop) })

	select {
	case <-t.done:
	case <-ctx.Done():
		t.cancel()
		<-t.done
	}

	t.cancel()

	return t.Text()
}

// Text returns the finalized transcript so far.
func (t *Transcriber) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return strings.Join(t.finals, " ")
}

// Preview returns the finalized transcript followed by the latest interim hypothesis.
func (t *Transcriber) Preview() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interim == "" {
		return strings.Join(t.finals, " ")
	}

	return strings.Join(append(append([]string(nil), t.finals...), t.interim), " ")
}

// Restarts reports how many times the stream was reopened.
func (t *Transcriber) Restarts() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.restarts
}

type outcome int

const (
	outcomeFinished outcome = iota
	outcomeHostClosed
	outcomeCancelled
)

func (t *Transcriber) supervise(ctx context.Context, audio <-chan []byte) {
	defer close(t.done)

	delay := t.opts.RestartDelay
	first := true

	for {
		stream, pending, err := t.dial(ctx, audio)
		if err != nil {
			if errors.Is(err, ErrUnsupported) {
				t.logger.Info("live recognition unavailable", "error", err)
				t.drain(ctx, audio)

				return
			}

			if ctx.Err() != nil || errors.Is(err, errStopped) {
				return
			}

			t.logger.Warn("failed to start recognition stream", "error", err, "retryIn", delay)

			if !t.backoff(ctx, audio, delay) {
				return
			}

			delay = min(delay*2, t.opts.MaxRestartDelay)

			continue
		}

		if !first {
			t.mu.Lock()
			t.restarts++
			t.mu.Unlock()
			t.logger.Debug("recognition stream restarted")
		}

		first = false

		result, heard := t.run(ctx, stream, audio, pending)
		switch result {
		case outcomeFinished, outcomeCancelled:
			return
		case outcomeHostClosed:
			t.clearInterim()

			if heard {
				delay = t.opts.RestartDelay

				continue
			}

			if !t.backoff(ctx, audio, delay) {
				return
			}

			delay = min(delay*2, t.opts.MaxRestartDelay)
		}
	}
}

var errStopped = errors.New("stopped while dialing")

type dialResult struct {
	stream Stream
	err    error
}

// dial opens a stream while holding audio that arrives during the handshake,
// so the producer never waits on the engine. Stop abandons the dial.
func (t *Transcriber) dial(ctx context.Context, audio <-chan []byte) (Stream, [][]byte, error) {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultC := make(chan dialResult, 1)
	go func() {
		stream, err := t.engine.Start(dialCtx)
		resultC <- dialResult{stream: stream, err: err}
	}()

	var pending [][]byte

	in := audio
	for {
		select {
		case r := <-resultC:
			return r.stream, pending, r.err

		case <-t.stop:
			cancel()

			if r := <-resultC; r.stream != nil {
				_ = r.stream.Close()
			}

			return nil, nil, errStopped

		case chunk, ok := <-in:
			if !ok {
				// run sees the closed channel once the stream is up
				in = nil
				continue
			}

			if len(pending) == pendingLimit {
				pending = pending[1:]
			}

			pending = append(pending, chunk)
		}
	}
}

// run pumps one stream until it ends, starting with audio held while dialing.
// heard reports whether any segment arrived.
func (t *Transcriber) run(ctx context.Context, stream Stream, audio <-chan []byte, pending [][]byte) (outcome, bool) {
	segments := stream.Segments()
	heard := false

	for _, chunk := range pending {
		if err := stream.SendAudio(chunk); err != nil {
			t.logger.Debug("recognition stream rejected audio", "error", err)
			_ = stream.Close()

			return outcomeHostClosed, heard
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = stream.Close()
			return outcomeCancelled, heard

		case <-t.stop:
			t.flush(stream, audio)
			t.finish(ctx, stream)

			return outcomeFinished, heard

		case chunk, ok := <-audio:
			if !ok {
				t.finish(ctx, stream)
				return outcomeFinished, heard
			}

			if err := stream.SendAudio(chunk); err != nil {
				t.logger.Debug("recognition stream rejected audio", "error", err)
				_ = stream.Close()

				return outcomeHostClosed, heard
			}

		case seg, ok := <-segments:
			if !ok {
				_ = stream.Close()
				return outcomeHostClosed, heard
			}

			heard = true
			t.add(seg)
		}
	}
}

// flush forwards audio already queued when Stop was called.
func (t *Transcriber) flush(stream Stream, audio <-chan []byte) {
	for {
		select {
		case chunk, ok := <-audio:
			if !ok {
				return
			}

			if err := stream.SendAudio(chunk); err != nil {
				return
			}
		default:
			return
		}
	}
}

// finish ends the audio and collects trailing segments for the grace period.
func (t *Transcriber) finish(ctx context.Context, stream Stream) {
	defer stream.Close()

	if err := stream.Finish(); err != nil {
		t.logger.Debug("failed to finish recognition stream", "error", err)
		return
	}

	grace := time.NewTimer(t.opts.StopGrace)
	defer grace.Stop()

	segments := stream.Segments()

	for {
		select {
		case seg, ok := <-segments:
			if !ok {
				return
			}

			t.add(seg)
		case <-grace.C:
			t.logger.Debug("recognition grace period elapsed")
			return
		case <-ctx.Done():
			return
		}
	}
}

// backoff waits d while discarding audio. It returns false when the
// supervisor should exit.
func (t *Transcriber) backoff(ctx context.Context, audio <-chan []byte, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return true
		case <-ctx.Done():
			return false
		case <-t.stop:
			return false
		case _, ok := <-audio:
			if !ok {
				return false
			}
		}
	}
}

// drain discards audio until it ends so the producer never blocks on us.
func (t *Transcriber) drain(ctx context.Context, audio <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case _, ok := <-audio:
			if !ok {
				return
			}
		}
	}
}

func (t *Transcriber) add(seg Segment) {
	text := strings.Join(strings.Fields(seg.Text), " ")

	t.mu.Lock()
	defer t.mu.Unlock()

	if !seg.Final {
		t.interim = text
		return
	}

	t.interim = ""

	if text != "" {
		t.finals = append(t.finals, text)
	}
}

func (t *Transcriber) clearInterim() {
	t.mu.Lock()
	t.interim = ""
	t.mu.Unlock()
}
