package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"reddigest/internal/config"
	"reddigest/internal/domain"
	"reddigest/internal/notifier"
	"reddigest/internal/source"
	"reddigest/internal/summarizer"
)

const bullet = "• "

// Digest runs one fetch, summarize and notify cycle for a community.
type Digest struct {
	source     source.Source
	summarizer summarizer.Summarizer
	notifier   notifier.Notifier
	window     string
	out        io.Writer
	log        *slog.Logger
}

type Option func(*Digest)

// WithWindow sets the Reddit time window of the top listing.
func WithWindow(window string) Option {
	return func(d *Digest) {
		d.window = window
	}
}

// WithOutput echoes the generated summary to w.
func WithOutput(w io.Writer) Option {
	return func(d *Digest) {
		d.out = w
	}
}

func New(
	src source.Source,
	sum summarizer.Summarizer,
	n notifier.Notifier,
	log *slog.Logger,
	opts ...Option,
) *Digest {
	d := &Digest{
		source:     src,
		summarizer: sum,
		notifier:   n,
		out:        io.Discard,
		log:        log,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run posts the digest of the top limit posts of community. A failed first
// message does not stop the details from being posted standalone; errors of
// both sends are joined.
func (d *Digest) Run(ctx context.Context, community string, limit int) (domain.Summary, error) {
	posts, err := d.source.FetchTop(ctx, community, limit, d.window)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("fetch top posts: %w", err)
	}

	corpus := source.FormatCorpus(posts)

	d.log.InfoContext(ctx, "Corpus is built",
		"community", community,
		"postCount", len(posts),
		"corpusLength", len(corpus))

	summary, err := d.summarizer.Summarize(ctx, summarizer.Input{
		Community: community,
		Corpus:    corpus,
		Window:    d.window,
	})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize: %w", err)
	}

	d.log.InfoContext(ctx, "Summary is generated",
		"community", community,
		"model", summary.Model,
		"structured", summary.Structured(),
		"detailsLength", len(summary.Details))

	if _, err = fmt.Fprintln(d.out, summary.Details); err != nil {
		d.log.WarnContext(ctx, "Failed to echo summary", "error", err)
	}

	return summary, d.send(ctx, community, summary)
}

func (d *Digest) send(ctx context.Context, community string, summary domain.Summary) error {
	var errs []error

	handle, err := d.notifier.Send(ctx, FirstMessage(community, d.window, summary), "")
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to send first message so details are sent standalone",
			"error", err,
			"community", community)

		errs = append(errs, fmt.Errorf("send first message: %w", err))
		handle = ""
	}

	if _, err = d.notifier.Send(ctx, DetailsMessage(summary), handle); err != nil {
		errs = append(errs, fmt.Errorf("send details (threaded = %t): %w", handle != "", err))
	}

	if len(errs) == 0 {
		d.log.InfoContext(ctx, "Digest is posted",
			"community", community,
			"threaded", handle != "")
	}

	return errors.Join(errs...)
}

// FirstMessage is the short top-level message: a header naming the window,
// followed by the digest bullets when the summary is structured.
func FirstMessage(community, window string, summary domain.Summary) string {
	var b strings.Builder

	b.WriteString(config.PeriodLabel(window))
	b.WriteString(" r/")
	b.WriteString(community)

	for _, line := range summary.Digest {
		b.WriteString("\n")
		b.WriteString(bullet)
		b.WriteString(line)
	}

	return b.String()
}

// DetailsMessage is the full transcript with the model that produced it.
func DetailsMessage(summary domain.Summary) string {
	details := strings.TrimSpace(summary.Details)
	if summary.Model == "" {
		return details
	}

	return details + "\n\nmodel: " + summary.Model
}
