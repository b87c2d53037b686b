package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"reddigest/internal/markdown"
)

// Webhook posts to a Slack incoming webhook. Incoming webhooks cannot
// reply in threads, so replyTo is ignored and the handle is always empty.
type Webhook struct {
	url        string
	httpClient *http.Client
	log        *slog.Logger
}

func NewWebhook(url string, log *slog.Logger) (*Webhook, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("webhook URL is empty")
	}

	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: slackClientTimeout},
		log:        log,
	}, nil
}

func (w *Webhook) Send(ctx context.Context, text string, replyTo string) (string, error) {
	if replyTo != "" {
		w.log.DebugContext(ctx, "Webhook has no threads so reply is posted standalone",
			"replyTo", replyTo)
	}

	msg := &slack.WebhookMessage{Text: markdown.EscapeSlack(text)}

	if err := slack.PostWebhookCustomHTTPContext(ctx, w.url, w.httpClient, msg); err != nil {
		return "", fmt.Errorf("post webhook (reason = %s): %w", slackReason(err), err)
	}

	return "", nil
}
