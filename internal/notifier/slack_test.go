package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/slack-go/slack"
	"github.com/tidwall/gjson"
)

type slackRequest struct {
	path        string
	token       string
	channel     string
	text        string
	threadTS    string
	hasThreadTS bool
}

type fakeSlack struct {
	mu       sync.Mutex
	requests []slackRequest
	status   int
	reply    string
}

func (f *fakeSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.FormValue("token")
	}

	_, hasThreadTS := r.Form["thread_ts"]

	f.mu.Lock()
	f.requests = append(f.requests, slackRequest{
		path:        r.URL.Path,
		token:       token,
		channel:     r.FormValue("channel"),
		text:        r.FormValue("text"),
		threadTS:    r.FormValue("thread_ts"),
		hasThreadTS: hasThreadTS,
	})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = io.WriteString(w, f.reply)
}

func newTestSlack(t *testing.T, fake *fakeSlack, channel string) *Slack {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewSlack("xoxb-token", channel, slog.Default(), slack.OptionAPIURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("create Slack notifier: %v", err)
	}

	return s
}

func TestSlackSend(t *testing.T) {
	fake := &fakeSlack{reply: `{"ok":true,"channel":"C1","ts":"1700000000.000100"}`}
	s := newTestSlack(t, fake, "C1")

	ts, err := s.Send(context.Background(), "a < b & c", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "1700000000.000100" {
		t.Fatalf("unexpected ts: %q", ts)
	}

	if _, err = s.Send(context.Background(), "details", ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(fake.requests))
	}

	first := fake.requests[0]
	if first.path != "/chat.postMessage" {
		t.Fatalf("unexpected path: %q", first.path)
	}
	if first.token != "xoxb-token" {
		t.Fatalf("unexpected token: %q", first.token)
	}
	if first.channel != "C1" {
		t.Fatalf("unexpected channel: %q", first.channel)
	}
	if first.text != "a &lt; b &amp; c" {
		t.Fatalf("expected escaped text, got %q", first.text)
	}
	if first.hasThreadTS && first.threadTS != "" {
		t.Fatalf("expected no thread_ts on top-level message, got %q", first.threadTS)
	}

	if got := fake.requests[1].threadTS; got != ts {
		t.Fatalf("expected reply in thread %q, got %q", ts, got)
	}
}

func TestSlackSendNotOK(t *testing.T) {
	fake := &fakeSlack{reply: `{"ok":false,"error":"channel_not_found"}`}
	s := newTestSlack(t, fake, "C404")

	ts, err := s.Send(context.Background(), "hello", "")
	if ts != "" {
		t.Fatalf("expected no handle, got %q", ts)
	}

	var apiErr slack.SlackErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected slack.SlackErrorResponse, got %T: %v", err, err)
	}
	if apiErr.Err != "channel_not_found" {
		t.Fatalf("unexpected Slack error: %q", apiErr.Err)
	}
	if !strings.Contains(err.Error(), "reason = channel_not_found") {
		t.Fatalf("expected reason in error message, got %q", err.Error())
	}
}

func TestSlackSendHTTPError(t *testing.T) {
	fake := &fakeSlack{status: http.StatusBadGateway, reply: "upstream down"}
	s := newTestSlack(t, fake, "C1")

	_, err := s.Send(context.Background(), "hello", "")

	var statusErr slack.StatusCodeError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected slack.StatusCodeError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", statusErr.Code)
	}
}

func TestNewSlackRequiresSettings(t *testing.T) {
	if _, err := NewSlack("", "C1", slog.Default()); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := NewSlack("xoxb-token", " ", slog.Default()); err == nil {
		t.Fatalf("expected error for empty channel")
	}
}

type webhookRequest struct {
	contentType string
	body        []byte
}

func newFakeWebhook(t *testing.T, status int, requests *[]webhookRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*requests = append(*requests, webhookRequest{contentType: r.Header.Get("Content-Type"), body: body})

		w.WriteHeader(status)
		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestWebhookSend(t *testing.T) {
	var requests []webhookRequest
	srv := newFakeWebhook(t, http.StatusOK, &requests)

	w, err := NewWebhook(srv.URL, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handle, err := w.Send(context.Background(), "<digest>", "ignored")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle != "" {
		t.Fatalf("webhook has no threads, got handle %q", handle)
	}

	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	req := requests[0]
	if !strings.HasPrefix(req.contentType, "application/json") {
		t.Fatalf("unexpected content type: %q", req.contentType)
	}
	if got := gjson.GetBytes(req.body, "text").String(); got != "&lt;digest&gt;" {
		t.Fatalf("unexpected text: %q", got)
	}
	if gjson.GetBytes(req.body, "thread_ts").String() != "" {
		t.Fatalf("unexpected thread_ts in webhook payload: %s", req.body)
	}
}

func TestWebhookSendError(t *testing.T) {
	var requests []webhookRequest
	srv := newFakeWebhook(t, http.StatusNotFound, &requests)

	w, err := NewWebhook(srv.URL, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = w.Send(context.Background(), "hello", "")

	var statusErr slack.StatusCodeError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected slack.StatusCodeError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", statusErr.Code)
	}
}

func TestNewWebhookRequiresURL(t *testing.T) {
	if _, err := NewWebhook("  ", slog.Default()); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
