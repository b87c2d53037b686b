package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"reddigest/internal/ratelimiter"
)

// Telegram sends plain-text messages to one chat. Long texts are split and
// every chunk of a reply points at the parent message.
type Telegram struct {
	sender ratelimiter.Sender
	chatID int64
	stop   func()
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("Telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("Telegram chat ID is empty")
	}

	api, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	limiter := ratelimiter.New(api, log)

	t := newTelegram(limiter, chatID, log)
	t.stop = limiter.Stop

	return t, nil
}

func newTelegram(sender ratelimiter.Sender, chatID int64, log *slog.Logger) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		log:    log,
	}
}

// Close stops the send queue. Sends after Close fail.
func (t *Telegram) Close() {
	if t.stop != nil {
		t.stop()
	}
}

func (t *Telegram) Send(ctx context.Context, text string, replyTo string) (string, error) {
	params := &bot.SendMessageParams{ChatID: t.chatID}

	if replyTo != "" {
		messageID, err := strconv.Atoi(replyTo)
		if err != nil {
			return "", fmt.Errorf("parse reply message ID %q: %w", replyTo, err)
		}

		params.ReplyParameters = &models.ReplyParameters{
			MessageID:                messageID,
			AllowSendingWithoutReply: true,
		}
	}

	disablePreview := true
	params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: &disablePreview}

	var first string
	chunks := SplitMessage(text, TelegramMessageMaxLength)

	for i, chunk := range chunks {
		chunkParams := *params
		chunkParams.Text = chunk

		msg, err := t.sender.SendMessage(ctx, &chunkParams)
		if err != nil {
			return first, fmt.Errorf("send message (chatID = %d, chunk = %d/%d): %w", t.chatID, i+1, len(chunks), err)
		}

		if first == "" && msg != nil {
			first = strconv.Itoa(msg.ID)
		}
	}

	t.log.DebugContext(ctx, "Telegram message is sent",
		"chatID", t.chatID,
		"messageID", first,
		"replyTo", replyTo,
		"chunkCount", len(chunks))

	return first, nil
}
