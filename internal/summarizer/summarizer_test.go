package summarizer

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"reddigest/internal/config"
)

func TestNewRejectsUnsupportedEngine(t *testing.T) {
	for _, engine := range []string{"", "llama", "OpenAI "} {
		s, err := New(context.Background(), config.AIConfig{
			Engine:             engine,
			Model:              "any",
			ConversationLength: 15,
			OpenAIAPIKey:       "sk-test",
		}, slog.Default())

		if !errors.Is(err, config.ErrUnsupportedEngine) {
			t.Fatalf("expected ErrUnsupportedEngine for %q, got %v", engine, err)
		}
		if s != nil {
			t.Fatalf("expected no summarizer for %q", engine)
		}
	}
}

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.AIConfig
		check func(Summarizer) bool
	}{
		{
			"openai",
			config.AIConfig{Engine: config.EngineOpenAI, Model: "gpt-test", OpenAIAPIKey: "sk-test"},
			func(s Summarizer) bool { _, ok := s.(*OpenAISummarizer); return ok },
		},
		{
			"cohere",
			config.AIConfig{Engine: config.EngineCohere, Model: "command-test", CohereAPIKey: "co-test"},
			func(s Summarizer) bool { _, ok := s.(*CohereSummarizer); return ok },
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := New(context.Background(), test.cfg, slog.Default())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !test.check(s) {
				t.Fatalf("unexpected summarizer type %T", s)
			}
		})
	}
}

func TestNewRequiresSelectedCredential(t *testing.T) {
	_, err := New(context.Background(), config.AIConfig{
		Engine:       config.EngineCohere,
		OpenAIAPIKey: "sk-test",
	}, slog.Default())
	if err == nil {
		t.Fatalf("expected error for missing Cohere key")
	}
}
