package refine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/journal/internal/journal"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// CorrectorSystemPrompt is the system prompt for the grammar-correction pass.
const CorrectorSystemPrompt = `You are a careful proofreader for a personal voice journal. Given a transcript
that has already had basic punctuation and contractions fixed, you will:
- Correct grammar, punctuation, and obvious speech-to-text mistakes
- Keep the speaker's words, tone, and meaning; never summarize or add content
- Leave filler words alone unless they make a sentence unreadable
- Report every change you make as a correction with the original and corrected text
- If nothing needs fixing, return the transcript exactly as given with no corrections`

const saveRefinedToolName = "save_refined_transcript"

// refinedToolInput is the structured output of the correction tool.
type refinedToolInput struct {
	Processed   string               `json:"processed"`
	Corrections []journal.Correction `json:"corrections"`
}

// Corrector refines transcripts with the Anthropic Messages API. It backs
// the POST /transcript/process endpoint.
type Corrector struct {
	apiKey string
	model  anthropic.Model
	opts   []option.RequestOption
}

// NewCorrector creates a corrector. Extra request options are passed to the SDK client.
func NewCorrector(apiKey string, opts ...option.RequestOption) *Corrector {
	return &Corrector{
		apiKey: apiKey,
		model:  anthropic.ModelClaudeSonnet4_5_20250929,
		opts:   opts,
	}
}

func getRefinedTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        saveRefinedToolName,
		Description: anthropic.String("Save the corrected transcript and the list of corrections made"),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type: "object",
			Properties: map[string]interface{}{
				"processed": map[string]interface{}{
					"type":        "string",
					"description": "The full corrected transcript",
				},
				"corrections": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"original":  map[string]interface{}{"type": "string"},
							"corrected": map[string]interface{}{"type": "string"},
							"reason":    map[string]interface{}{"type": "string"},
						},
						"required": []string{"original", "corrected"},
					},
					"description": "Each change, with the original and corrected text",
				},
			},
			Required: []string{"processed", "corrections"},
		},
	}
}

// Correct returns the corrected transcript. Original is the submitted text.
func (c *Corrector) Correct(ctx context.Context, transcript string) (journal.ProcessingResult, error) {
	if c.apiKey == "" {
		return journal.ProcessingResult{}, errors.New("API key required: set ANTHROPIC_API_KEY")
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(c.apiKey)}, c.opts...)...)
	toolDef := getRefinedTool()

	tool := anthropic.ToolUnionParamOfTool(toolDef.InputSchema, toolDef.Name)
	tool.OfTool.Description = toolDef.Description

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: CorrectorSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(transcript)),
		},
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: anthropic.ToolChoiceParamOfTool(saveRefinedToolName),
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return journal.ProcessingResult{}, fmt.Errorf("failed to refine transcript via Anthropic API: %w", err)
	}

	if len(resp.Content) == 0 {
		return journal.ProcessingResult{}, errors.New("empty response from Anthropic API")
	}

	toolInput, err := parseRefinedToolUse(resp.Content)
	if err != nil {
		return journal.ProcessingResult{}, err
	}

	processed := strings.TrimSpace(toolInput.Processed)
	if processed == "" {
		return journal.ProcessingResult{}, errors.New("empty transcript in Anthropic API response")
	}

	result := journal.ProcessingResult{
		Original:    transcript,
		Processed:   processed,
		Corrections: toolInput.Corrections,
		Changed:     processed != transcript,
	}
	if !result.Changed {
		result.Corrections = nil
	}

	return result, nil
}

// parseRefinedToolUse extracts the tool input from response content blocks.
func parseRefinedToolUse(content []anthropic.ContentBlockUnion) (*refinedToolInput, error) {
	for _, block := range content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			var toolInput refinedToolInput
			inputBytes, err := json.Marshal(toolUse.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool input: %w", err)
			}
			if err := json.Unmarshal(inputBytes, &toolInput); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}

			return &toolInput, nil
		}
	}

	return nil, errors.New("no tool use found in Anthropic API response")
}
