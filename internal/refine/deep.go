package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/journal/internal/apiclient"
	"github.com/alkime/journal/internal/journal"
	"github.com/go-resty/resty/v2"
)

// ErrRefineFailed indicates the grammar-correction service could not refine a transcript.
var ErrRefineFailed = errors.New("transcript refinement failed")

// ProcessRequest is the body of POST /transcript/process.
type ProcessRequest struct {
	Transcript string `json:"transcript"`
}

// ProcessResponse is the reply of POST /transcript/process.
type ProcessResponse struct {
	Processed   string               `json:"processed"`
	Original    string               `json:"original"`
	Changed     bool                 `json:"changed"`
	Corrections []journal.Correction `json:"corrections"`
}

// DeepClient calls the remote grammar-correction service.
type DeepClient struct {
	http *resty.Client
}

// NewDeepClient creates a client for POST /transcript/process.
func NewDeepClient(opts apiclient.Options) *DeepClient {
	return &DeepClient{http: apiclient.New(opts)}
}

// Refine sends text to the correction service and returns its result.
func (c *DeepClient) Refine(ctx context.Context, text string) (journal.ProcessingResult, error) {
	var out ProcessResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ProcessRequest{Transcript: text}).
		SetResult(&out).
		SetError(&apiclient.ErrorBody{}).
		Post("/transcript/process")
	if err != nil {
		return journal.ProcessingResult{}, fmt.Errorf("%w: %w", ErrRefineFailed, err)
	}

	if resp.IsError() {
		return journal.ProcessingResult{}, fmt.Errorf("%w: %s", ErrRefineFailed, apiclient.Describe(resp))
	}

	if strings.TrimSpace(out.Processed) == "" {
		return journal.ProcessingResult{}, fmt.Errorf("%w: empty processed transcript", ErrRefineFailed)
	}

	return journal.ProcessingResult{
		Original:    out.Original,
		Processed:   out.Processed,
		Corrections: out.Corrections,
		Changed:     out.Changed,
	}, nil
}
