package summarizer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	cohere "github.com/cohere-ai/cohere-go/v2"
	"github.com/cohere-ai/cohere-go/v2/option"

	"reddigest/internal/domain"
)

type stubCohere struct {
	text     string
	err      error
	requests []*cohere.ChatRequest
}

func (s *stubCohere) Chat(
	_ context.Context,
	request *cohere.ChatRequest,
	_ ...option.RequestOption,
) (*cohere.NonStreamedChatResponse, error) {
	s.requests = append(s.requests, request)
	if s.err != nil {
		return nil, s.err
	}

	return &cohere.NonStreamedChatResponse{Text: s.text}, nil
}

func newTestCohereSummarizer(stub *stubCohere, structured bool) *CohereSummarizer {
	return &CohereSummarizer{
		client: stub,
		model:  "command-test",
		prompt: PromptConfig{ConversationLength: 12, Structured: structured},
		log:    slog.Default(),
	}
}

func TestCohereSummarizerBuildsChatHistory(t *testing.T) {
	stub := &stubCohere{text: validSummaryJSON}
	s := newTestCohereSummarizer(stub, true)

	if _, err := s.Summarize(context.Background(), Input{Community: "golang", Corpus: "corpus"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stub.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(stub.requests))
	}

	req := stub.requests[0]
	if req.Model == nil || *req.Model != "command-test" {
		t.Fatalf("unexpected model: %v", req.Model)
	}
	if req.Temperature == nil || *req.Temperature != cohereTemperature {
		t.Fatalf("unexpected temperature: %v", req.Temperature)
	}

	if !strings.HasPrefix(req.Message, "corpus") || !strings.HasSuffix(req.Message, JSONInstruction) {
		t.Fatalf("expected corpus plus JSON instruction as message, got %q", req.Message)
	}

	if len(req.ChatHistory) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(req.ChatHistory))
	}
	for i, m := range req.ChatHistory {
		if m.Role != cohereRoleSystem || m.System == nil {
			t.Fatalf("expected history entry %d to be a system message, got %+v", i, m)
		}
	}
	if !strings.Contains(req.ChatHistory[0].System.Message, "12 回以上") {
		t.Fatalf("expected configured threshold in first history entry")
	}
}

func TestCohereSummarizerDecodesJSON(t *testing.T) {
	s := newTestCohereSummarizer(&stubCohere{text: validSummaryJSON}, true)

	summary, err := s.Summarize(context.Background(), Input{Community: "golang", Corpus: "corpus"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(summary.Digest, []string{"a", "b", "c"}) || summary.Details != "めたん: 紹介するわ" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Model != "command-test" {
		t.Fatalf("unexpected model: %q", summary.Model)
	}
}

func TestCohereSummarizerUsesPlaceholderOnDecodeFailure(t *testing.T) {
	raw := "めたん: JSON を忘れたわ\nずんだもん: しょうがないのだ"
	s := newTestCohereSummarizer(&stubCohere{text: raw}, true)

	summary, err := s.Summarize(context.Background(), Input{Community: "golang", Corpus: "corpus"})
	if err != nil {
		t.Fatalf("expected placeholder instead of error, got %v", err)
	}

	if len(summary.Digest) != domain.DigestSize || !slices.Equal(summary.Digest, PlaceholderDigest()) {
		t.Fatalf("expected placeholder digest, got %v", summary.Digest)
	}
	if summary.Details != raw {
		t.Fatalf("expected raw response as details, got %q", summary.Details)
	}
}

func TestCohereSummarizerEmptyCorpus(t *testing.T) {
	tests := []struct {
		name       string
		structured bool
	}{
		{"structured", true},
		{"legacy", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stub := &stubCohere{text: "めたん: 話題は見つからなかったわ"}
			s := newTestCohereSummarizer(stub, test.structured)

			if _, err := s.Summarize(context.Background(), Input{Community: "golang"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if strings.TrimSpace(stub.requests[0].Message) == "" {
				t.Fatalf("expected non-empty message for empty corpus")
			}
		})
	}
}

func TestCohereSummarizerLegacyMode(t *testing.T) {
	stub := &stubCohere{text: "  めたん: 今週の r/golang  "}
	s := newTestCohereSummarizer(stub, false)

	summary, err := s.Summarize(context.Background(), Input{Community: "golang", Corpus: "corpus"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Structured() || summary.Details != "めたん: 今週の r/golang" {
		t.Fatalf("unexpected legacy summary: %+v", summary)
	}
	if stub.requests[0].Message != "corpus" {
		t.Fatalf("expected bare corpus as message, got %q", stub.requests[0].Message)
	}
}

func TestCohereSummarizerPropagatesRequestError(t *testing.T) {
	upstream := errors.New("boom")
	s := newTestCohereSummarizer(&stubCohere{err: upstream}, true)

	_, err := s.Summarize(context.Background(), Input{Community: "golang"})
	if !errors.Is(err, upstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}
