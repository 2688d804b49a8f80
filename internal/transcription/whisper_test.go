package transcription_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alkime/journal/internal/transcription"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/media/tmp/a.mp3", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if assert.NoError(t, err) {
			data, _ := io.ReadAll(file)
			assert.Equal(t, "mp3-bytes", string(data))
			assert.Contains(t, header.Filename, ".mp3")
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestWhisper_Transcribe(t *testing.T) {
	t.Parallel()

	srv := openAIServer(t, http.StatusOK, `{"text":" hello from whisper "}`)

	w := transcription.NewWhisper("test-key", option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	text, err := w.Transcribe(context.Background(), srv.URL+"/media/tmp/a.mp3")

	require.NoError(t, err)
	assert.Equal(t, "hello from whisper", text)
}

func TestWhisper_TranscribeQuota(t *testing.T) {
	t.Parallel()

	srv := openAIServer(t, http.StatusTooManyRequests,
		`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`)

	w := transcription.NewWhisper("test-key", option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	_, err := w.Transcribe(context.Background(), srv.URL+"/media/tmp/a.mp3")

	require.ErrorIs(t, err, transcription.ErrQuotaExceeded)
}

func TestWhisper_TranscribeDownloadFailure(t *testing.T) {
	t.Parallel()

	srv := openAIServer(t, http.StatusOK, `{"text":"unused"}`)

	w := transcription.NewWhisper("test-key", option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	_, err := w.Transcribe(context.Background(), srv.URL+"/media/tmp/missing.mp3")

	require.Error(t, err)
	assert.NotErrorIs(t, err, transcription.ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "download")
}

func TestWhisper_MissingAPIKey(t *testing.T) {
	t.Parallel()

	_, err := transcription.NewWhisper("").Transcribe(context.Background(), "http://example.test/a.mp3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
