package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"

	"reddigest/internal/domain"
)

const (
	cohereTemperature = 1.0

	cohereRoleSystem = "SYSTEM"
	cohereRoleUser   = "USER"

	cohereEmptyMessage = "指示に従って要約してください"
)

type cohereChatter interface {
	Chat(
		ctx context.Context,
		request *cohere.ChatRequest,
		opts ...option.RequestOption,
	) (*cohere.NonStreamedChatResponse, error)
}

// CohereSummarizer sends the system segments as chat history and the corpus
// as the message. Cohere has no schema mode, so structured output is requested
// in the prompt and decoded best-effort.
type CohereSummarizer struct {
	client cohereChatter
	model  string
	prompt PromptConfig
	log    *slog.Logger
}

func NewCohereSummarizer(
	apiKey string,
	model string,
	prompt PromptConfig,
	log *slog.Logger,
) (*CohereSummarizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("Cohere API key is empty")
	}

	return &CohereSummarizer{
		client: cohereclient.NewClient(option.WithToken(apiKey)),
		model:  strings.TrimSpace(model),
		prompt: prompt,
		log:    log,
	}, nil
}

func (s *CohereSummarizer) Summarize(
	ctx context.Context,
	input Input,
) (domain.Summary, error) {
	messages := s.prompt.messagesFor(input)
	if s.prompt.Structured {
		messages = WithJSONInstruction(messages)
	}

	req := s.buildRequest(messages)

	resp, err := s.client.Chat(ctx, req)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("do request: %w", err)
	}
	if resp == nil {
		return domain.Summary{}, fmt.Errorf("%w (nil response)", errOutputMissing)
	}

	text := strings.TrimSpace(resp.Text)

	if !s.prompt.Structured {
		return domain.Summary{Details: text, Model: s.model}, nil
	}

	summary, err := decodeOrPlaceholder(text, false)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to decode summary JSON so placeholder digest is used",
			"error", err,
			"model", s.model,
			"community", input.Community,
			"responseLength", len(text))
	}

	summary.Model = s.model

	return summary, nil
}

// buildRequest maps every segment but the last onto chat history; the last
// user turn becomes the message.
func (s *CohereSummarizer) buildRequest(messages []Message) *cohere.ChatRequest {
	req := &cohere.ChatRequest{
		Temperature: ptr(cohereTemperature),
	}
	if s.model != "" {
		req.Model = ptr(s.model)
	}

	if len(messages) == 0 {
		return req
	}

	last := messages[len(messages)-1]
	req.Message = last.Content
	if strings.TrimSpace(req.Message) == "" {
		req.Message = cohereEmptyMessage
	}

	history := make([]*cohere.Message, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		history = append(history, toCohereMessage(m))
	}
	req.ChatHistory = history

	return req
}

func toCohereMessage(m Message) *cohere.Message {
	chatMessage := &cohere.ChatMessage{Message: m.Content}

	if m.Role == RoleSystem {
		return &cohere.Message{Role: cohereRoleSystem, System: chatMessage}
	}

	return &cohere.Message{Role: cohereRoleUser, User: chatMessage}
}

func ptr[T any](v T) *T {
	return &v
}
