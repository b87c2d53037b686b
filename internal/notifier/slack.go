package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"reddigest/internal/markdown"
)

const slackClientTimeout = 30 * time.Second

// Slack posts through chat.postMessage with a bot token. Threads are
// addressed by the ts of the parent message.
type Slack struct {
	client  *slack.Client
	channel string
	log     *slog.Logger
}

// NewSlack builds a bot-token notifier. opts are passed to the Slack client,
// e.g. slack.OptionAPIURL for another endpoint.
func NewSlack(token, channel string, log *slog.Logger, opts ...slack.Option) (*Slack, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("Slack bot token is empty")
	}

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("Slack channel is empty")
	}

	opts = append([]slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: slackClientTimeout}),
	}, opts...)

	return &Slack{
		client:  slack.New(token, opts...),
		channel: channel,
		log:     log,
	}, nil
}

func (s *Slack) Send(ctx context.Context, text string, replyTo string) (string, error) {
	options := []slack.MsgOption{
		slack.MsgOptionText(markdown.EscapeSlack(text), false),
	}
	if replyTo != "" {
		options = append(options, slack.MsgOptionTS(replyTo))
	}

	_, ts, err := s.client.PostMessageContext(ctx, s.channel, options...)
	if err != nil {
		return "", fmt.Errorf("post message (channel = %s, reason = %s): %w", s.channel, slackReason(err), err)
	}

	s.log.DebugContext(ctx, "Slack message is posted",
		"channel", s.channel,
		"ts", ts,
		"threadTS", replyTo,
		"textLength", len(text))

	return ts, nil
}

// slackReason names the failure: the Slack error code for ok:false
// responses, the HTTP status for transport-level rejections.
func slackReason(err error) string {
	var apiErr slack.SlackErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.Err
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP %d", statusErr.Code)
	}

	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		return fmt.Sprintf("rate limited, retry after %s", rateErr.RetryAfter)
	}

	return "request failed"
}
