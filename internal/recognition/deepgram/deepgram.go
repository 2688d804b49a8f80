// Package deepgram implements a live recognition engine on Deepgram's
// streaming websocket API.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/alkime/journal/internal/recognition"
	"github.com/gorilla/websocket"
)

const (
	DefaultBaseURL    = "https://api.deepgram.com/v1"
	DefaultModel      = "nova-2"
	DefaultSampleRate = 16000
)

// Config controls the Deepgram connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	SampleRate  int
}

// Engine opens Deepgram streams. It implements recognition.SpeechEngine.
type Engine struct {
	cfg    Config
	dialer *websocket.Dialer
}

// New creates an engine, filling config defaults.
func New(cfg Config) *Engine {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	return &Engine{cfg: cfg, dialer: websocket.DefaultDialer}
}

// Start dials a new listen session. A missing API key reports
// recognition.ErrUnsupported so the supervisor gives up immediately.
func (e *Engine) Start(ctx context.Context) (recognition.Stream, error) {
	if strings.TrimSpace(e.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is not configured", recognition.ErrUnsupported)
	}

	wsURL, err := buildListenURL(e.cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+e.cfg.APIKey)

	conn, resp, err := e.dialer.DialContext(ctx, wsURL, headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	s := &stream{
		conn:     conn,
		segments: make(chan recognition.Segment, 64),
		audio:    make(chan []byte, 32),
		readDone: make(chan struct{}),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()

	stopWatch := context.AfterFunc(ctx, func() { _ = s.Close() })

	go func() {
		s.wg.Wait()
		stopWatch()
		close(s.segments)
		close(s.done)
		_ = conn.Close()
	}()

	return s, nil
}

type stream struct {
	conn *websocket.Conn

	segments chan recognition.Segment
	audio    chan []byte
	readDone chan struct{}
	closing  chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	finishOnce sync.Once
	closeOnce  sync.Once
	sendMu     sync.RWMutex
	sendClosed bool
}

func (s *stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	if s.sendClosed {
		return errors.New("audio stream is already finished")
	}

	select {
	case s.audio <- append([]byte(nil), chunk...):
		return nil
	case <-s.readDone:
		if err := s.waitErr(); err != nil {
			return err
		}

		return errors.New("stream closed")
	}
}

func (s *stream) Finish() error {
	s.finishOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})

	return nil
}

func (s *stream) Segments() <-chan recognition.Segment {
	return s.segments
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.conn.Close()
	})

	<-s.done

	return s.waitErr()
}

func (s *stream) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	return s.err
}

// setErr records the first failure. Normal closes are how the host ends a
// session and are not errors.
func (s *stream) setErr(err error) {
	if err == nil {
		return
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()

	if s.err == nil {
		s.err = err
	}
}

func (s *stream) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
					s.setErr(fmt.Errorf("failed to close stream: %w", err))
				}

				return
			}

			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(fmt.Errorf("failed to send audio: %w", err))
				return
			}
		case <-s.readDone:
			return
		}
	}
}

func (s *stream) readLoop() {
	defer s.wg.Done()
	defer close(s.readDone)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read provider event: %w", err))
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}

			s.setErr(errors.New(message))

			return
		}

		transcript := extractTranscript(response)
		if transcript == "" && !response.IsFinal {
			continue
		}

		select {
		case s.segments <- recognition.Segment{
			Text:  transcript,
			Final: response.IsFinal || response.SpeechFinal,
		}:
		case <-s.closing:
			return
		}
	}
}

type alternative struct {
	Transcript string `json:"transcript"`
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`
}

func extractTranscript(response listenResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}

	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	query.Set("channels", "1")
	query.Set("interim_results", "true")
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))

	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}

	listenURL.RawQuery = query.Encode()

	return listenURL.String(), nil
}
