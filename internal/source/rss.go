package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"reddigest/internal/config"
	"reddigest/internal/domain"
)

const (
	redditRSSBaseURL = "https://www.reddit.com"
	rssClientTimeout = 20 * time.Second
)

// RSS reads the public top feed of a community. It needs no credentials but
// the feed carries neither scores nor comments.
type RSS struct {
	parser  *gofeed.Parser
	baseURL string
	log     *slog.Logger
}

func NewRSS(userAgent string, log *slog.Logger) *RSS {
	parser := gofeed.NewParser()
	parser.UserAgent = strings.TrimSpace(userAgent)
	parser.Client = &http.Client{Timeout: rssClientTimeout}

	return &RSS{
		parser:  parser,
		baseURL: redditRSSBaseURL,
		log:     log,
	}
}

// WithBaseURL points the source at another host, e.g. a test server.
func (s *RSS) WithBaseURL(baseURL string) *RSS {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

func (s *RSS) FetchTop(
	ctx context.Context,
	community string,
	limit int,
	window string,
) ([]domain.Post, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window == "" {
		window = config.DefaultTimeWindow
	}

	feedURL := fmt.Sprintf("%s/r/%s/top/.rss?t=%s", s.baseURL, url.PathEscape(community), url.QueryEscape(window))

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed (URL = %s): %w", feedURL, err)
	}

	posts := make([]domain.Post, 0, min(limit, len(feed.Items)))
	for _, item := range feed.Items {
		if len(posts) == limit {
			break
		}
		if item == nil {
			continue
		}

		posts = append(posts, s.postFromItem(ctx, item))
	}

	s.log.InfoContext(ctx, "Top posts are fetched from feed",
		"community", community,
		"limit", limit,
		"window", window,
		"postCount", len(posts))

	return posts, nil
}

func (s *RSS) postFromItem(ctx context.Context, item *gofeed.Item) domain.Post {
	post := domain.Post{
		Title: strings.TrimSpace(item.Title),
		URL:   strings.TrimSpace(item.Link),
	}

	switch {
	case item.PublishedParsed != nil:
		post.CreatedAt = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		post.CreatedAt = item.UpdatedParsed.UTC()
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}

	text, err := htmlToText(content)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to convert feed item HTML so raw content is used",
			"error", err,
			"postURL", post.URL)

		text = content
	}
	post.Body = text

	return post
}

func htmlToText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	doc.Find("p, div, li").Each(func(_ int, block *goquery.Selection) {
		block.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n"), nil
}
