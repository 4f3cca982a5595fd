package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI calls the Chat Completions API with a structured-output schema so
// the response parses directly into Inference.
type OpenAI struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAI(apiKey, model string, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

func (o *OpenAI) Infer(ctx context.Context, text string, reference time.Time) (*Inference, error) {
	start := time.Now()

	o.logger.Debug("openai inference request",
		"model", o.model,
		"text_len", len(text),
		"reference", reference.Format(time.RFC3339),
	)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildSystemPrompt(reference)),
			openai.UserMessage(buildUserPrompt(text)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "note_inference",
					Schema: inferenceSchema(),
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		o.logger.Error("openai inference failed", "error", err, "elapsed", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	content := resp.Choices[0].Message.Content
	o.logger.Debug("openai inference response",
		"elapsed", time.Since(start),
		"content_len", len(content),
	)

	var inf Inference
	if err := json.Unmarshal([]byte(content), &inf); err != nil {
		o.logger.Error("failed to parse inference",
			"error", err,
			"raw", truncateStr(content, 1000),
		)
		return nil, fmt.Errorf("%w: parsing inference: %v", ErrUnavailable, err)
	}

	return &inf, nil
}
