package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// MaxAudioBytes is the largest recording the Whisper API accepts.
const MaxAudioBytes = 25 << 20

// Whisper transcribes audio fetched from a URL with the OpenAI Whisper API.
// It backs the POST /transcribe endpoint.
type Whisper struct {
	apiKey   string
	opts     []option.RequestOption
	download *resty.Client
}

// NewWhisper creates a Whisper transcriber. Extra request options are passed to the SDK client.
func NewWhisper(apiKey string, opts ...option.RequestOption) *Whisper {
	return &Whisper{
		apiKey:   apiKey,
		opts:     opts,
		download: resty.New(),
	}
}

// Transcribe downloads the audio at audioURL and returns its transcript.
// Provider quota failures wrap ErrQuotaExceeded.
func (w *Whisper) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if w.apiKey == "" {
		return "", errors.New("API key required: set OPENAI_API_KEY")
	}

	audioFile, err := w.fetch(ctx, audioURL)
	if err != nil {
		return "", err
	}
	defer closeAndRemove(audioFile)

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(w.apiKey)}, w.opts...)...)

	params := openai.AudioTranscriptionNewParams{
		File:  audioFile,
		Model: openai.AudioModelWhisper1,
	}

	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		}

		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// fetch downloads the audio into a temp file named after the URL's extension,
// which the OpenAI SDK uses to infer the upload's format.
func (w *Whisper) fetch(ctx context.Context, audioURL string) (*os.File, error) {
	resp, err := w.download.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(audioURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to download audio: status %d", resp.StatusCode())
	}

	ext := path.Ext(resp.RawResponse.Request.URL.Path)
	if ext == "" {
		ext = ".mp3"
	}

	file, err := os.CreateTemp("", "journal-transcribe-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp audio file: %w", err)
	}

	n, err := io.Copy(file, io.LimitReader(body, MaxAudioBytes+1))
	if err != nil {
		closeAndRemove(file)
		return nil, fmt.Errorf("failed to write temp audio file: %w", err)
	}

	if n > MaxAudioBytes {
		closeAndRemove(file)
		return nil, fmt.Errorf("audio exceeds %d bytes", MaxAudioBytes)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		closeAndRemove(file)
		return nil, fmt.Errorf("failed to rewind temp audio file: %w", err)
	}

	return file, nil
}

func isQuotaError(err error) bool {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.StatusCode == http.StatusTooManyRequests || quotaCodes[apiErr.Code]
}

func closeAndRemove(f *os.File) {
	_ = f.Close()
	_ = os.Remove(f.Name())
}
