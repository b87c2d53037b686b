package notifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"reddigest/internal/ratelimiter"
)

type stubTelegram struct {
	params []*bot.SendMessageParams
	failAt int
}

func (s *stubTelegram) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.params = append(s.params, params)
	if s.failAt != 0 && len(s.params) == s.failAt {
		return nil, errors.New("Bad Request: message is too long")
	}

	return &models.Message{ID: 100 + len(s.params)}, nil
}

func TestTelegramSend(t *testing.T) {
	stub := &stubTelegram{}
	tg := newTelegram(stub, 42, slog.Default())

	id, err := tg.Send(context.Background(), "digest", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "101" {
		t.Fatalf("unexpected handle: %q", id)
	}

	if _, err = tg.Send(context.Background(), "details", id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, reply := stub.params[0], stub.params[1]
	if first.ChatID != int64(42) || first.Text != "digest" || first.ReplyParameters != nil {
		t.Fatalf("unexpected first message: %+v", first)
	}
	if reply.ReplyParameters == nil || reply.ReplyParameters.MessageID != 101 {
		t.Fatalf("expected reply to 101, got %+v", reply.ReplyParameters)
	}
	if first.ParseMode != "" {
		t.Fatalf("expected plain text, got parse mode %q", first.ParseMode)
	}
}

func TestTelegramSendSplitsLongText(t *testing.T) {
	stub := &stubTelegram{}
	tg := newTelegram(stub, 42, slog.Default())

	line := strings.Repeat("あ", 1000) + "\n"
	text := strings.Repeat(line, 6)

	id, err := tg.Send(context.Background(), text, "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "101" {
		t.Fatalf("expected handle of the first chunk, got %q", id)
	}

	if len(stub.params) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(stub.params))
	}
	for i, p := range stub.params {
		if p.ReplyParameters == nil || p.ReplyParameters.MessageID != 7 {
			t.Fatalf("chunk %d: expected reply to 7, got %+v", i, p.ReplyParameters)
		}
	}
}

func TestTelegramSendErrors(t *testing.T) {
	tg := newTelegram(&stubTelegram{failAt: 1}, 42, slog.Default())
	if _, err := tg.Send(context.Background(), "digest", ""); err == nil {
		t.Fatalf("expected send error")
	}

	tg = newTelegram(&stubTelegram{}, 42, slog.Default())
	if _, err := tg.Send(context.Background(), "details", "1700000000.000100"); err == nil {
		t.Fatalf("expected error for non-numeric reply handle")
	}
}

func TestNewTelegramRequiresSettings(t *testing.T) {
	if _, err := NewTelegram("", 42, slog.Default()); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := NewTelegram("123:abc", 0, slog.Default()); err == nil {
		t.Fatalf("expected error for empty chat ID")
	}
}

func TestTelegramCloseStopsQueue(t *testing.T) {
	stub := &stubTelegram{}
	limiter := ratelimiter.New(stub, slog.Default())

	tg := newTelegram(limiter, 42, slog.Default())
	tg.stop = limiter.Stop

	if _, err := tg.Send(context.Background(), "before", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tg.Close()
	tg.Close()

	if _, err := tg.Send(context.Background(), "after", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled after close, got %v", err)
	}
	if len(stub.params) != 1 {
		t.Fatalf("expected only the message sent before close, got %d", len(stub.params))
	}
}

func TestCloseWithoutResources(t *testing.T) {
	Close(NewWriter(&strings.Builder{}))
	Close(newTelegram(&stubTelegram{}, 42, slog.Default()))
}
