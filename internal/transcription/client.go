// Package transcription turns recorded audio into text on the server side:
// a client for POST /transcribe and the Whisper backend that serves it.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alkime/journal/internal/apiclient"
	"github.com/alkime/journal/internal/journal"
	"github.com/alkime/journal/internal/storage"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrQuotaExceeded indicates the transcription provider refused the request for quota reasons.
	ErrQuotaExceeded = errors.New("transcription quota exceeded")
	// ErrTranscriptionFailed covers every other transcription failure.
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// QuotaCode is the error code the server returns when the provider quota is exhausted.
const QuotaCode = "quota_exceeded"

// quotaCodes are error codes treated as quota exhaustion.
var quotaCodes = map[string]bool{
	QuotaCode:            true,
	"insufficient_quota": true,
	"rate_limited":       true,
}

// Request is the body of POST /transcribe.
type Request struct {
	AudioURL string `json:"audioUrl"`
}

// Response is the reply of POST /transcribe.
type Response struct {
	Transcript string `json:"transcript"`
}

// Client transcribes recordings through the collaborator service. The
// recording is staged in temporary object storage for the server to fetch.
type Client struct {
	http    *resty.Client
	objects storage.ObjectStore
	logger  *slog.Logger
}

// NewClient creates a fallback transcriber.
func NewClient(opts apiclient.Options, objects storage.ObjectStore, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Logger == nil {
		opts.Logger = logger
	}

	return &Client{
		http:    apiclient.New(opts),
		objects: objects,
		logger:  logger,
	}
}

// Transcribe returns the transcript of the artifact. Failures wrap
// ErrQuotaExceeded or ErrTranscriptionFailed.
func (c *Client) Transcribe(ctx context.Context, artifact journal.AudioArtifact) (string, error) {
	key := storage.NewKey(storage.TempPrefix, artifact.Extension)

	audioURL, err := c.objects.Upload(ctx, key, artifact.Data, artifact.ContentType)
	if err != nil {
		return "", fmt.Errorf("%w: failed to stage audio: %w", ErrTranscriptionFailed, err)
	}
	defer c.cleanup(ctx, key)

	var out Response

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(Request{AudioURL: audioURL}).
		SetResult(&out).
		SetError(&apiclient.ErrorBody{}).
		Post("/transcribe")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	if resp.IsError() {
		if resp.StatusCode() == http.StatusTooManyRequests || quotaCodes[apiclient.Code(resp)] {
			return "", fmt.Errorf("%w: %s", ErrQuotaExceeded, apiclient.Describe(resp))
		}

		return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, apiclient.Describe(resp))
	}

	return strings.TrimSpace(out.Transcript), nil
}

// cleanup removes the staged audio regardless of the transcription outcome.
func (c *Client) cleanup(ctx context.Context, key string) {
	if err := c.objects.Delete(context.WithoutCancel(ctx), key); err != nil {
		c.logger.Warn("failed to delete staged transcription audio", "key", key, "error", err)
	}
}
