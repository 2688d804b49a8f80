package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alkime/journal/internal/apiclient"
	"github.com/alkime/journal/internal/config"
	"github.com/alkime/journal/internal/entry"
	"github.com/alkime/journal/internal/journal"
	"github.com/alkime/journal/internal/refine"
	"github.com/alkime/journal/internal/server"
	"github.com/alkime/journal/internal/transcription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranscriber struct {
	text string
	err  error
	urls []string
}

func (s *stubTranscriber) Transcribe(_ context.Context, audioURL string) (string, error) {
	s.urls = append(s.urls, audioURL)
	return s.text, s.err
}

type stubCorrector struct {
	result journal.ProcessingResult
	err    error
}

func (s stubCorrector) Correct(context.Context, string) (journal.ProcessingResult, error) {
	return s.result, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Env:         "test",
		Port:        "8080",
		HSTSMaxAge:  31536000,
		CSPMode:     "relaxed",
		LogLevel:    "info",
		JournalUser: "me",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T, deps server.Deps) http.Handler {
	t.Helper()

	if deps.Entries == nil {
		repo, err := entry.Open(t.Context(), filepath.Join(t.TempDir(), "journal.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })

		deps.Entries = repo
	}

	return server.New(testConfig(), deps, testLogger()).Router()
}

func do(t *testing.T, h http.Handler, method, path string, body any, user string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(apiclient.UserHeader, user)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func decodeEntry(t *testing.T, w *httptest.ResponseRecorder) journal.Entry {
	t.Helper()

	var env entry.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))

	return env.Entry
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apiclient.ErrorBody {
	t.Helper()

	var body apiclient.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})

	w := do(t, h, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code, "Health endpoint should return 200 OK")
	assert.Contains(t, w.Body.String(), "healthy", "Response should contain 'healthy'")
	assert.Contains(t, w.Body.String(), "journal", "Response should contain service name 'journal'")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestEntriesLifecycle(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})
	transcript := "Dinner at eight."

	w := do(t, h, http.MethodPost, "/entries/voice", entry.CreateVoiceRequest{
		AudioRef:   "audio/abc.mp3",
		Duration:   12.5,
		Transcript: &transcript,
	}, "alice")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeEntry(t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, journal.EntryTypeVoice, created.Type)
	assert.Equal(t, "audio/abc.mp3", *created.AudioRef)
	assert.Equal(t, transcript, *created.Transcript)
	assert.False(t, created.Locked)

	path := "/entries/" + created.ID

	w = do(t, h, http.MethodGet, path, nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decodeEntry(t, w).ID)

	w = do(t, h, http.MethodGet, path, nil, "bob")
	assert.Equal(t, http.StatusNotFound, w.Code, "entries are scoped to their owner")

	locked := true
	w = do(t, h, http.MethodPatch, path, entry.UpdateRequest{Locked: &locked}, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEntry(t, w).Locked)

	edited := "Dinner at nine."
	w = do(t, h, http.MethodPatch, path, entry.UpdateRequest{Transcript: &edited}, "alice")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "locked", decodeError(t, w).Code)

	notes := "moved to friday"
	w = do(t, h, http.MethodPatch, path, entry.UpdateRequest{Notes: &notes}, "alice")
	require.Equal(t, http.StatusOK, w.Code, "notes stay editable on locked entries")
	assert.Equal(t, notes, *decodeEntry(t, w).Notes)

	w = do(t, h, http.MethodGet, "/entries?limit=10", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Entries []journal.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Entries, 1)

	w = do(t, h, http.MethodDelete, path, nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/abc.mp3", *decodeEntry(t, w).AudioRef)

	w = do(t, h, http.MethodDelete, path, nil, "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEntries_DefaultUser(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})

	w := do(t, h, http.MethodPost, "/entries/voice", entry.CreateVoiceRequest{AudioRef: "audio/x.mp3"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	id := decodeEntry(t, w).ID

	w = do(t, h, http.MethodGet, "/entries/"+id, nil, "me")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEntries_BadRequests(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "missing audio ref", method: http.MethodPost, path: "/entries/voice", body: entry.CreateVoiceRequest{Duration: 3}},
		{name: "negative duration", method: http.MethodPost, path: "/entries/voice", body: entry.CreateVoiceRequest{AudioRef: "a.mp3", Duration: -1}},
		{name: "not json", method: http.MethodPost, path: "/entries/voice", body: "nope"},
		{name: "bad limit", method: http.MethodGet, path: "/entries?limit=zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body, "alice")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		stub       *stubTranscriber
		body       any
		wantStatus int
		wantCode   string
		wantText   string
	}{
		{
			name:       "success",
			stub:       &stubTranscriber{text: "hello world"},
			body:       transcription.Request{AudioURL: "http://localhost/media/temp/a.mp3"},
			wantStatus: http.StatusOK,
			wantText:   "hello world",
		},
		{
			name:       "quota",
			stub:       &stubTranscriber{err: fmt.Errorf("%w: insufficient_quota", transcription.ErrQuotaExceeded)},
			body:       transcription.Request{AudioURL: "http://localhost/media/temp/a.mp3"},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   transcription.QuotaCode,
		},
		{
			name:       "provider failure",
			stub:       &stubTranscriber{err: assert.AnError},
			body:       transcription.Request{AudioURL: "http://localhost/media/temp/a.mp3"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "missing url",
			stub:       &stubTranscriber{},
			body:       transcription.Request{},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestServer(t, server.Deps{Transcriber: tt.stub})

			w := do(t, h, http.MethodPost, "/transcribe", tt.body, "")
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
				return
			}

			var resp transcription.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantText, resp.Transcript)
		})
	}
}

func TestTranscribe_NotConfigured(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})

	w := do(t, h, http.MethodPost, "/transcribe", transcription.Request{AudioURL: "http://x/a.mp3"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProcessTranscript(t *testing.T) {
	t.Parallel()

	corrector := stubCorrector{result: journal.ProcessingResult{
		Original:    "I'm going to the store. Don't forget milk.",
		Processed:   "I'm going to the store. Don't forget the milk.",
		Changed:     true,
		Corrections: []journal.Correction{{Original: "forget milk", Corrected: "forget the milk"}},
	}}

	h := newTestServer(t, server.Deps{Corrector: corrector})

	w := do(t, h, http.MethodPost, "/transcript/process",
		refine.ProcessRequest{Transcript: "I'm going to the store. Don't forget milk."}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp refine.ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, "I'm going to the store. Don't forget the milk.", resp.Processed)
	assert.Len(t, resp.Corrections, 1)
}

func TestProcessTranscript_Failures(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{})
	w := do(t, h, http.MethodPost, "/transcript/process", refine.ProcessRequest{Transcript: "hi"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h = newTestServer(t, server.Deps{Corrector: stubCorrector{err: assert.AnError}})
	w = do(t, h, http.MethodPost, "/transcript/process", refine.ProcessRequest{Transcript: "hi"}, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = do(t, h, http.MethodPost, "/transcript/process", refine.ProcessRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessTranscript_EmptyCorrections(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Deps{Corrector: stubCorrector{result: journal.ProcessingResult{
		Original: "Fine.", Processed: "Fine.",
	}}})

	w := do(t, h, http.MethodPost, "/transcript/process", refine.ProcessRequest{Transcript: "Fine."}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"corrections":[]`)
}

func TestMediaServing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "temp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp", "clip.mp3"), []byte("ID3"), 0o644))

	h := newTestServer(t, server.Deps{MediaDir: dir})

	w := do(t, h, http.MethodGet, "/media/temp/clip.mp3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID3", w.Body.String())

	w = do(t, h, http.MethodGet, "/media/temp/missing.mp3", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
