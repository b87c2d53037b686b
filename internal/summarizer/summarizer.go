package summarizer

import (
	"context"
	"fmt"
	"log/slog"

	"reddigest/internal/config"
	"reddigest/internal/domain"
)

// Input describes the payload for a summary request.
type Input struct {
	// Community is the subreddit name without the r/ prefix.
	Community string
	// Corpus is the concatenated text of the fetched posts. It may be empty.
	Corpus string
	// Window is the top listing time window the corpus was fetched for.
	Window string
}

// Summarizer renders a corpus as a dialogue summary.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (domain.Summary, error)
}

// New builds the backend selected by cfg.Engine. An unknown engine is
// rejected before any client is created.
func New(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Summarizer, error) {
	prompt := PromptConfig{
		ConversationLength: cfg.ConversationLength,
		Structured:         cfg.StructuredOutput,
	}

	switch cfg.Engine {
	case config.EngineOpenAI:
		return NewOpenAISummarizer(cfg.OpenAIAPIKey, cfg.Model, prompt, log)
	case config.EngineCohere:
		return NewCohereSummarizer(cfg.CohereAPIKey, cfg.Model, prompt, log)
	case config.EngineGemini:
		return NewGeminiSummarizer(ctx, cfg.GoogleAPIKey, cfg.Model, prompt, log)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedEngine, cfg.Engine)
	}
}
