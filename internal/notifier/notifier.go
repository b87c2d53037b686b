package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"reddigest/internal/config"
)

// Notifier delivers text to a chat channel. When replyTo is set and the
// transport supports threads, the text is posted as a reply. The returned
// handle identifies the posted message, or is empty when the transport has no
// threading.
type Notifier interface {
	Send(ctx context.Context, text string, replyTo string) (string, error)
}

// New builds the notifier selected by cfg.Notifier.
func New(cfg config.Config, log *slog.Logger) (Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierSlack:
		return NewSlack(cfg.Slack.BotToken, cfg.Slack.Channel, log)
	case config.NotifierWebhook:
		return NewWebhook(cfg.Slack.WebhookURL, log)
	case config.NotifierTelegram:
		return NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedNotifier, cfg.Notifier)
	}
}

// Close releases what n holds, for notifiers that hold anything.
func Close(n Notifier) {
	if c, ok := n.(interface{ Close() }); ok {
		c.Close()
	}
}

// Writer prints messages instead of delivering them. It has no threading.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (n *Writer) Send(_ context.Context, text string, replyTo string) (string, error) {
	if replyTo != "" {
		if _, err := fmt.Fprintf(n.w, "--- reply to %s ---\n", replyTo); err != nil {
			return "", fmt.Errorf("write reply marker: %w", err)
		}
	}

	if _, err := fmt.Fprintln(n.w, text); err != nil {
		return "", fmt.Errorf("write message: %w", err)
	}

	return "", nil
}
