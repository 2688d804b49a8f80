// Package session drives one voice recording from capture to a saved entry.
//
// A Session owns the capture device while recording, feeds a live
// transcriber in parallel, and after Stop resolves a raw transcript (live,
// fallback, or none), refines it, and waits for the user to save or discard.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alkime/journal/internal/audio"
	"github.com/alkime/journal/internal/entry"
	"github.com/alkime/journal/internal/journal"
	"github.com/alkime/journal/internal/transcription"
	"github.com/alkime/journal/pkg/channels"
	"github.com/alkime/journal/pkg/uictl"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDeviceUnavailable wraps a capture device that could not be allocated or started.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrSessionAlreadyActive is returned when a user already has a non-idle session.
	ErrSessionAlreadyActive = errors.New("a recording session is already active")
	// ErrInvalidTransition is returned for an operation the current state does not allow.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotReady is returned when editing or saving before the pipeline completes.
	ErrNotReady = errors.New("session is not ready")
)

// State is a session lifecycle state.
type State string

const (
	StateIdle               State = "idle"
	StateRecording          State = "recording"
	StateStopped            State = "stopped"
	StateAwaitingTranscript State = "awaiting_transcript"
	StateReady              State = "ready"
)

// CaptureDevice is the microphone. CaptureInto allocates it; once started it
// writes S16LE packets into dataC until stopped.
type CaptureDevice interface {
	CaptureInto(ctx context.Context, dataC chan<- []byte) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Dealloc(ctx context.Context)
}

// LiveTranscriber recognises speech while recording. It must keep draining
// audio even when recognition is unavailable.
type LiveTranscriber interface {
	Start(ctx context.Context, audio <-chan []byte) error
	Stop(ctx context.Context) string
	Preview() string
}

// FallbackTranscriber transcribes a finished recording server-side.
type FallbackTranscriber interface {
	Transcribe(ctx context.Context, artifact journal.AudioArtifact) (string, error)
}

// Refiner cleans up a raw transcript. It never fails.
type Refiner interface {
	Process(ctx context.Context, raw string) journal.ProcessingResult
}

// EntryStore persists a recording as a voice entry.
type EntryStore interface {
	SaveVoiceEntry(ctx context.Context, in entry.VoiceEntryInput) (journal.Entry, error)
}

// Assembler encodes captured chunks into an audio artifact.
type Assembler interface {
	Assemble(chunks [][]byte) (journal.AudioArtifact, error)
}

const (
	// dataBuffer is the capture channel depth, roughly two seconds of callbacks.
	dataBuffer = 64
	// liveBuffer holds audio for a recogniser that is busy dialing or sending.
	// Chunks past it are dropped from the live path only.
	liveBuffer = 256
)

// Deps are the collaborators shared by every session.
type Deps struct {
	// NewDevice returns the capture device for a new session.
	NewDevice func() CaptureDevice
	// NewLive returns a live transcriber for a new session. Optional.
	NewLive func() LiveTranscriber
	// Fallback is used when live recognition produced nothing. Optional.
	Fallback  FallbackTranscriber
	Refiner   Refiner
	Store     EntryStore
	Assembler Assembler
	Logger    *slog.Logger

	LevelWindow int
	Now         func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	if d.LevelWindow <= 0 {
		d.LevelWindow = audio.DefaultLevelWindow
	}

	if d.Now == nil {
		d.Now = time.Now
	}

	return d
}

// Session is a single recording. It is not reusable once saved or discarded.
type Session struct {
	id     string
	deps   Deps
	logger *slog.Logger
	levels *audio.SampleRing

	mu           sync.Mutex
	state        State
	consumed     bool
	saving       bool
	startedAt    time.Time
	stoppedAt    time.Time
	chunks       [][]byte
	bytes        int64
	artifact     journal.AudioArtifact
	transcript   journal.TranscriptResult
	processing   journal.ProcessingResult
	draft        string
	pipelineDone bool

	device      CaptureDevice
	dataC       chan []byte
	releaseOnce sync.Once
	stopWatch   func() bool
	pumpDone    chan struct{}
	live        LiveTranscriber
	runCtx      context.Context
	cancel      context.CancelFunc
	pipelineC   chan struct{}

	onConsumed func()
}

// New creates an idle session.
func New(deps Deps) *Session {
	deps = deps.withDefaults()
	id := uuid.NewString()

	return &Session{
		id:     id,
		deps:   deps,
		logger: deps.Logger.With("session", id),
		levels: audio.NewSampleRing(deps.LevelWindow),
		state:  StateIdle,
	}
}

// Start allocates and starts the capture device and begins recording. If
// ctx is cancelled while recording, the device is released.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle || s.consumed {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.state)
	}

	device := s.deps.NewDevice()
	dataC := make(chan []byte, dataBuffer)

	if err := device.CaptureInto(ctx, dataC); err != nil {
		device.Dealloc(ctx)
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	if err := device.Start(ctx); err != nil {
		if stopErr := device.Stop(ctx); stopErr != nil {
			s.logger.Warn("failed to stop capture device", "error", stopErr)
		}

		device.Dealloc(ctx)

		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.device = device
	s.dataC = dataC
	s.runCtx = runCtx
	s.cancel = cancel
	s.startedAt = s.deps.Now()
	s.stoppedAt = time.Time{}
	s.chunks = nil
	s.bytes = 0
	s.levels.Reset()
	s.pumpDone = make(chan struct{})
	s.state = StateRecording

	s.startPump(runCtx)

	s.stopWatch = context.AfterFunc(ctx, func() {
		s.logger.Info("recording context ended, releasing capture device")
		s.release(context.WithoutCancel(ctx))
	})

	s.logger.Info("recording started")

	return nil
}

// startPump wires capture to the chunk accumulator, the level meter, and the
// live transcriber. Chunks are appended before being broadcast, and every send
// past the accumulator is non-blocking, so no subscriber can stall capture.
func (s *Session) startPump(ctx context.Context) {
	broadcaster := channels.NewBroadcaster[[]byte](
		channels.WithCloseOnDrain(),
		channels.WithBuffer(dataBuffer),
	)

	levelC := make(chan []byte, dataBuffer)
	_ = broadcaster.Subscribe(levelC)

	var liveC chan []byte
	if s.deps.NewLive != nil {
		liveC = make(chan []byte, liveBuffer)
		_ = broadcaster.Subscribe(liveC)
	}

	// the pump closes the broadcaster; ctx only gates sends
	feed, err := broadcaster.Run(context.Background())
	if err != nil {
		// unreachable: subscribers were added above
		s.logger.Error("failed to start audio broadcaster", "error", err)
	}

	go func() {
		for chunk := range levelC {
			s.levels.WritePCM(chunk)
		}
	}()

	if liveC != nil {
		live := s.deps.NewLive()
		if err := live.Start(ctx, liveC); err != nil {
			s.logger.Warn("live transcription unavailable", "error", err)
			go drain(liveC)
		} else {
			s.live = live
		}
	}

	dataC := s.dataC
	pumpDone := s.pumpDone

	go func() {
		defer close(pumpDone)
		defer broadcaster.Close()

		dropped := 0

		for chunk := range dataC {
			if !s.appendChunk(chunk) {
				continue
			}

			if feed == nil || ctx.Err() != nil {
				continue
			}

			if err := channels.SendNonBlock(feed, chunk); err != nil {
				dropped++
			}
		}

		if dropped > 0 {
			s.logger.Debug("audio fan-out fell behind", "dropped", dropped)
		}
	}()
}

func (s *Session) appendChunk(chunk []byte) bool {
	if len(chunk) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop moves to stopped before the pump drains; queued chunks still count.
	if s.consumed || (s.state != StateRecording && s.state != StateStopped) {
		return false
	}

	s.chunks = append(s.chunks, chunk)
	s.bytes += int64(len(chunk))

	return true
}

// release stops and frees the device and closes the capture channel. It runs
// at most once per session.
func (s *Session) release(ctx context.Context) {
	s.releaseOnce.Do(func() {
		if s.stopWatch != nil {
			s.stopWatch()
		}

		if err := s.device.Stop(ctx); err != nil {
			s.logger.Warn("failed to stop capture device", "error", err)
		}

		s.device.Dealloc(ctx)
		close(s.dataC)

		s.logger.Debug("capture device released")
	})
}

// Stop ends recording: the device is released and queued audio is drained,
// then the live transcriber is stopped while the recording is assembled. The
// transcript pipeline then runs in the background; use Wait to block on it.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRecording {
		state := s.state
		s.mu.Unlock()

		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, state)
	}

	s.state = StateStopped
	s.stoppedAt = s.deps.Now()
	live := s.live
	runCtx := s.runCtx
	s.mu.Unlock()

	s.release(ctx)

	select {
	case <-s.pumpDone:
	case <-ctx.Done():
		return fmt.Errorf("capture did not drain: %w", ctx.Err())
	}

	s.mu.Lock()
	chunks := s.chunks
	s.mu.Unlock()

	// encoding overlaps with waiting for the recogniser's final segments
	var (
		liveText string
		artifact journal.AudioArtifact
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if artifact, err = s.deps.Assembler.Assemble(chunks); err != nil {
			return fmt.Errorf("failed to assemble recording: %w", err)
		}

		return nil
	})
	g.Go(func() error {
		if live != nil {
			liveText = live.Stop(gctx)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStopped {
		// discarded while stopping
		return fmt.Errorf("%w: session was discarded", ErrInvalidTransition)
	}

	s.artifact = artifact
	s.state = StateAwaitingTranscript
	s.pipelineC = make(chan struct{})

	go s.runPipeline(runCtx, liveText, artifact, s.pipelineC)

	s.logger.Info("recording stopped", "bytes", s.bytes, "duration", artifact.Duration)

	return nil
}

func (s *Session) runPipeline(ctx context.Context, liveText string, artifact journal.AudioArtifact, done chan struct{}) {
	defer close(done)

	result := s.resolveTranscript(ctx, liveText, artifact)

	s.mu.Lock()
	if s.state != StateAwaitingTranscript {
		s.mu.Unlock()
		return
	}

	s.transcript = result
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info("transcript resolved", "source", result.Source, "chars", len(result.RawText))

	processing := journal.ProcessingResult{}
	if !result.Empty() {
		processing = s.refine(ctx, result.RawText)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return
	}

	s.processing = processing
	s.draft = processing.Processed
	s.pipelineDone = true
}

func (s *Session) refine(ctx context.Context, raw string) journal.ProcessingResult {
	if s.deps.Refiner == nil {
		return journal.ProcessingResult{Original: raw, Processed: raw}
	}

	return s.deps.Refiner.Process(ctx, raw)
}

// resolveTranscript prefers live text and falls back to server-side
// transcription. Failures degrade to no transcript.
func (s *Session) resolveTranscript(
	ctx context.Context,
	liveText string,
	artifact journal.AudioArtifact,
) journal.TranscriptResult {
	if text := strings.TrimSpace(liveText); text != "" {
		return journal.TranscriptResult{RawText: text, Source: journal.SourceLive, FinalizedAt: s.deps.Now()}
	}

	none := journal.TranscriptResult{Source: journal.SourceNone, FinalizedAt: s.deps.Now()}

	if s.deps.Fallback == nil || len(artifact.Data) == 0 {
		return none
	}

	text, err := s.deps.Fallback.Transcribe(ctx, artifact)
	switch {
	case errors.Is(err, transcription.ErrQuotaExceeded):
		s.logger.Warn("fallback transcription quota exceeded", "error", err)
		return none
	case err != nil:
		s.logger.Warn("fallback transcription failed", "error", err)
		return none
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return none
	}

	return journal.TranscriptResult{RawText: text, Source: journal.SourceFallback, FinalizedAt: s.deps.Now()}
}

// Wait blocks until the transcript pipeline has finished.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.pipelineC
	s.mu.Unlock()

	if done == nil {
		return fmt.Errorf("%w: no recording has been stopped", ErrInvalidTransition)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Edit replaces the review draft.
func (s *Session) Edit(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady || !s.pipelineDone {
		return ErrNotReady
	}

	s.draft = text

	return nil
}

// Save persists the recording and the current draft. On success the
// session is consumed and returns to idle; on failure it stays ready so the
// caller can retry or discard.
func (s *Session) Save(ctx context.Context, locked bool) (journal.Entry, error) {
	s.mu.Lock()
	if s.state != StateReady || !s.pipelineDone || s.saving {
		s.mu.Unlock()
		return journal.Entry{}, ErrNotReady
	}

	s.saving = true

	duration := s.artifact.Duration
	if duration <= 0 {
		duration = s.stoppedAt.Sub(s.startedAt)
	}

	in := entry.VoiceEntryInput{
		Artifact:   s.artifact.Clone(),
		Duration:   duration,
		Transcript: nonBlank(s.draft),
		Locked:     locked,
	}
	s.mu.Unlock()

	saved, err := s.deps.Store.SaveVoiceEntry(ctx, in)

	s.mu.Lock()
	s.saving = false

	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("failed to save entry", "error", err)

		return journal.Entry{}, err
	}

	s.resetLocked()
	onConsumed := s.onConsumed
	s.mu.Unlock()

	s.logger.Info("entry saved", "entry", saved.ID, "locked", locked)

	if onConsumed != nil {
		onConsumed()
	}

	return saved, nil
}

// Discard abandons the session from any state. The device is always
// released and captured audio is dropped.
func (s *Session) Discard(ctx context.Context) {
	s.mu.Lock()
	if s.consumed || s.state == StateIdle {
		s.mu.Unlock()
		return
	}

	wasStarted := s.device != nil
	cancel := s.cancel
	s.resetLocked()
	onConsumed := s.onConsumed
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if wasStarted {
		s.release(ctx)
	}

	s.logger.Info("session discarded")

	if onConsumed != nil {
		onConsumed()
	}
}

// resetLocked returns to idle and drops the recording. Callers hold s.mu.
func (s *Session) resetLocked() {
	s.state = StateIdle
	s.consumed = true
	s.chunks = nil
	s.artifact = journal.AudioArtifact{}
	s.draft = ""
	s.pipelineDone = false
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// StartedAt returns when recording began.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startedAt
}

// Elapsed is the recording time so far, frozen once stopped.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.startedAt.IsZero():
		return 0
	case s.state == StateRecording:
		return s.deps.Now().Sub(s.startedAt)
	case !s.stoppedAt.IsZero():
		return s.stoppedAt.Sub(s.startedAt)
	default:
		return 0
	}
}

// BytesCaptured is the amount of PCM accumulated.
func (s *Session) BytesCaptured() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bytes
}

// Preview is the live transcript so far, including the latest interim words.
func (s *Session) Preview() string {
	s.mu.Lock()
	live := s.live
	s.mu.Unlock()

	if live == nil {
		return ""
	}

	return live.Preview()
}

// Transcript returns the resolved raw transcript.
func (s *Session) Transcript() journal.TranscriptResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transcript
}

// Processing returns the refinement result.
func (s *Session) Processing() journal.ProcessingResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.processing
}

// Draft returns the text that Save will persist.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.draft
}

// PipelineDone reports whether refinement has finished and the session can be saved.
func (s *Session) PipelineDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pipelineDone
}

// Levels exposes recent samples for a level meter.
func (s *Session) Levels() uictl.Levels[int16] {
	return s.levels
}

func nonBlank(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	return &s
}

func drain(ch <-chan []byte) {
	for range ch { //nolint:revive // discard
	}
}
