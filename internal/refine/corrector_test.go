package refine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messagesServer(t *testing.T, input map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "msg_test",
			"type":  "message",
			"role":  "assistant",
			"model": string(anthropic.ModelClaudeSonnet4_5_20250929),
			"content": []map[string]any{{
				"type":  "tool_use",
				"id":    "toolu_test",
				"name":  saveRefinedToolName,
				"input": input,
			}},
			"stop_reason": "tool_use",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 10},
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestCorrector_Correct(t *testing.T) {
	t.Parallel()

	srv := messagesServer(t, map[string]any{
		"processed": "I'm going to the store. Don't forget the milk.",
		"corrections": []map[string]any{
			{"original": "forget milk", "corrected": "forget the milk", "reason": "article"},
		},
	})

	corrector := NewCorrector("test-key", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	result, err := corrector.Correct(context.Background(), "I'm going to the store. Don't forget milk.")

	require.NoError(t, err)
	assert.Equal(t, "I'm going to the store. Don't forget milk.", result.Original)
	assert.Equal(t, "I'm going to the store. Don't forget the milk.", result.Processed)
	assert.True(t, result.Changed)
	require.Len(t, result.Corrections, 1)
	assert.Equal(t, "article", result.Corrections[0].Reason)
}

func TestCorrector_CorrectUnchanged(t *testing.T) {
	t.Parallel()

	srv := messagesServer(t, map[string]any{
		"processed":   "All good.",
		"corrections": []map[string]any{},
	})

	corrector := NewCorrector("test-key", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	result, err := corrector.Correct(context.Background(), "All good.")

	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Empty(t, result.Corrections)
}

func TestCorrector_MissingAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewCorrector("").Correct(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestGetRefinedTool(t *testing.T) {
	t.Parallel()

	tool := getRefinedTool()

	assert.Equal(t, saveRefinedToolName, tool.Name)
	assert.ElementsMatch(t, []string{"processed", "corrections"}, tool.InputSchema.Required)
}
