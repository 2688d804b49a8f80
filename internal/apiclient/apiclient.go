// Package apiclient builds the HTTP client shared by the journal's
// collaborator-service clients (entries, transcription, refinement).
package apiclient

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// UserHeader carries the journal owner on every collaborator request.
	UserHeader = "X-Journal-User"

	DefaultTimeout = 60 * time.Second
	DefaultRetries = 1
)

// Options configures a collaborator client.
type Options struct {
	BaseURL string
	UserID  string
	Timeout time.Duration
	// Retries is the number of extra attempts after a transport failure.
	// Responses with an HTTP status are never retried.
	Retries int
	// Logger receives resty's retry and transport warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// WithDefaults returns options with default values applied to zero fields.
func (o Options) WithDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}

	if o.Retries < 0 {
		o.Retries = 0
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}

// New creates a resty client for the collaborator service.
func New(opts Options) *resty.Client {
	opts = opts.WithDefaults()

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetLogger(NewLogger(opts.Logger)).
		SetHeader("Accept", "application/json")

	if opts.UserID != "" {
		client.SetHeader(UserHeader, opts.UserID)
	}

	return client
}

// ErrorBody is the error payload returned by the collaborator service.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Describe renders a failed response for error messages.
func Describe(resp *resty.Response) string {
	if body, ok := resp.Error().(*ErrorBody); ok && body != nil && body.Error != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode(), body.Error)
	}

	return fmt.Sprintf("status %d", resp.StatusCode())
}

// Code returns the machine-readable error code of a failed response, if any.
func Code(resp *resty.Response) string {
	if body, ok := resp.Error().(*ErrorBody); ok && body != nil {
		return body.Code
	}

	return ""
}
