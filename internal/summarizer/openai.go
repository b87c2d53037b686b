package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"reddigest/internal/domain"
)

const summarySchemaName = "reddit_dialogue_summary"

var (
	errOutputMissing = errors.New("output text is missing")
	errRefused       = errors.New("model refused the request")
)

// OpenAISummarizer calls the Chat Completions API. In structured mode it asks
// for schema-constrained output first and falls back to plain JSON mode.
type OpenAISummarizer struct {
	client openai.Client
	model  openai.ChatModel
	prompt PromptConfig
	log    *slog.Logger
}

// NewOpenAISummarizer builds a new summarizer instance.
func NewOpenAISummarizer(
	apiKey string,
	model string,
	prompt PromptConfig,
	log *slog.Logger,
	opts ...option.RequestOption,
) (*OpenAISummarizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("OpenAI model is empty")
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &OpenAISummarizer{
		client: openai.NewClient(opts...),
		model:  openai.ChatModel(model),
		prompt: prompt,
		log:    log,
	}, nil
}

func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (domain.Summary, error) {
	messages := s.prompt.messagesFor(input)

	if !s.prompt.Structured {
		content, model, err := s.complete(ctx, messages, openai.ChatCompletionNewParamsResponseFormatUnion{})
		if err != nil {
			return domain.Summary{}, err
		}

		return domain.Summary{Details: content, Model: model}, nil
	}

	content, model, err := s.complete(ctx, messages, schemaResponseFormat())
	if err == nil {
		summary, decodeErr := DecodeSummary(content)
		if decodeErr == nil {
			summary.Model = model
			return summary, nil
		}

		err = decodeErr
	} else if !isSchemaRejection(err) {
		return domain.Summary{}, err
	}

	s.log.WarnContext(ctx, "Structured output is not available so JSON mode will be used",
		"error", err,
		"model", string(s.model),
		"community", input.Community)

	content, model, err = s.complete(ctx, WithJSONInstruction(messages), jsonObjectResponseFormat())
	if err != nil {
		return domain.Summary{}, fmt.Errorf("complete in JSON mode: %w", err)
	}

	summary, err := DecodeSummaryLenient(content)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("decode JSON mode output (model = %s): %w", model, err)
	}

	summary.Model = model

	return summary, nil
}

func (s *OpenAISummarizer) complete(
	ctx context.Context,
	messages []Message,
	format openai.ChatCompletionNewParamsResponseFormatUnion,
) (string, string, error) {
	params := openai.ChatCompletionNewParams{
		Model:          s.model,
		Messages:       toOpenAIMessages(messages),
		ResponseFormat: format,
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", "", fmt.Errorf("do request: %w", err)
	}

	model := resp.Model
	if model == "" {
		model = string(s.model)
	}

	if len(resp.Choices) == 0 {
		return "", model, fmt.Errorf("%w (no choices)", errOutputMissing)
	}

	message := resp.Choices[0].Message
	if refusal := strings.TrimSpace(message.Refusal); refusal != "" {
		return "", model, fmt.Errorf("%w: %s", errRefused, refusal)
	}

	content := strings.TrimSpace(message.Content)
	if content == "" {
		return "", model, fmt.Errorf("%w (finish reason = %s)", errOutputMissing, resp.Choices[0].FinishReason)
	}

	return content, model, nil
}

// isSchemaRejection reports whether err means the schema-constrained request
// could not be honored, as opposed to a transport or auth failure.
func isSchemaRejection(err error) bool {
	if errors.Is(err, errRefused) || errors.Is(err, errOutputMissing) {
		return true
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusBadRequest ||
			apiErr.StatusCode == http.StatusUnprocessableEntity
	}

	return false
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}

	return out
}

func schemaResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        summarySchemaName,
				Description: openai.String("Three one-line highlights and the full character dialogue"),
				Schema:      summarySchema(),
				Strict:      openai.Bool(true),
			},
		},
	}
}

func jsonObjectResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
	}
}

func summarySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"digest": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": domain.DigestSize,
				"maxItems": domain.DigestSize,
			},
			"details": map[string]any{
				"type": "string",
			},
		},
		"required":             []string{"digest", "details"},
		"additionalProperties": false,
	}
}
