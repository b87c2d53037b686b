package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"reddigest/internal/domain"
)

type geminiGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// GeminiSummarizer sends one flattened prompt. The JSON object is cut out of
// the response text by ExtractJSONObject before decoding.
type GeminiSummarizer struct {
	models geminiGenerator
	model  string
	prompt PromptConfig
	log    *slog.Logger
}

func NewGeminiSummarizer(
	ctx context.Context,
	apiKey string,
	model string,
	prompt PromptConfig,
	log *slog.Logger,
) (*GeminiSummarizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("Google API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("Gemini model is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiSummarizer{
		models: client.Models,
		model:  model,
		prompt: prompt,
		log:    log,
	}, nil
}

func (s *GeminiSummarizer) Summarize(
	ctx context.Context,
	input Input,
) (domain.Summary, error) {
	prompt := Flatten(s.prompt.messagesFor(input))
	if s.prompt.Structured {
		prompt += "\n\n" + JSONInstruction
	}

	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return domain.Summary{}, err
	}

	model := s.model
	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}

	if !s.prompt.Structured {
		return domain.Summary{Details: text, Model: model}, nil
	}

	summary, err := decodeOrPlaceholder(text, true)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to decode summary JSON so placeholder digest is used",
			"error", err,
			"model", model,
			"community", input.Community,
			"responseLength", len(text))
	}

	summary.Model = model

	return summary, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w (no candidates)", errOutputMissing)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(b.String()), nil
}
