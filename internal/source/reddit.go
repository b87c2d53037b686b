package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"reddigest/internal/config"
	"reddigest/internal/domain"
	"reddigest/internal/httpclient"
)

const (
	redditAPIBaseURL    = "https://oauth.reddit.com"
	redditTokenURL      = "https://www.reddit.com/api/v1/access_token"
	redditClientTimeout = 30 * time.Second

	kindComment = "t1"
)

// Reddit reads listings from the Reddit API using an app-only OAuth token.
type Reddit struct {
	client  *httpclient.Client
	baseURL string
	log     *slog.Logger
}

type RedditOption func(*redditOptions)

type redditOptions struct {
	baseURL  string
	tokenURL string
}

// WithRedditEndpoints overrides the API and token URLs.
func WithRedditEndpoints(baseURL, tokenURL string) RedditOption {
	return func(o *redditOptions) {
		o.baseURL = strings.TrimRight(baseURL, "/")
		o.tokenURL = tokenURL
	}
}

func NewReddit(
	ctx context.Context,
	cfg config.RedditConfig,
	log *slog.Logger,
	opts ...RedditOption,
) (*Reddit, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("Reddit client credentials are empty")
	}

	o := redditOptions{baseURL: redditAPIBaseURL, tokenURL: redditTokenURL}
	for _, opt := range opts {
		opt(&o)
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)

	// The token request goes through the same transport, so it carries the
	// User-Agent as well.
	base := &http.Client{
		Timeout:   redditClientTimeout,
		Transport: userAgentTransport{userAgent: userAgent, base: http.DefaultTransport},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	credentials := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     o.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	oauthClient := credentials.Client(ctx)
	oauthClient.Timeout = redditClientTimeout

	return &Reddit{
		client:  httpclient.New(httpclient.WithHTTPClient(oauthClient), httpclient.WithUserAgent(userAgent)),
		baseURL: o.baseURL,
		log:     log,
	}, nil
}

func (r *Reddit) FetchTop(
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

	listingURL := fmt.Sprintf("%s/r/%s/top", r.baseURL, url.PathEscape(community))
	body, err := r.client.Get(ctx, listingURL, url.Values{
		"limit":    {strconv.Itoa(limit)},
		"t":        {window},
		"raw_json": {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("get top listing (community = %s): %w", community, err)
	}

	children := gjson.GetBytes(body, "data.children").Array()
	posts := make([]domain.Post, 0, len(children))

	for _, child := range children {
		data := child.Get("data")
		post := postFromListing(data)

		id := data.Get("id").String()
		comments, commentsErr := r.fetchComments(ctx, community, id)
		if commentsErr != nil {
			return nil, fmt.Errorf("get comments (community = %s, id = %s): %w", community, id, commentsErr)
		}
		post.Comments = comments

		posts = append(posts, post)
	}

	r.log.InfoContext(ctx, "Top posts are fetched",
		"community", community,
		"limit", limit,
		"window", window,
		"postCount", len(posts))

	return posts, nil
}

func (r *Reddit) fetchComments(ctx context.Context, community, id string) ([]string, error) {
	if id == "" {
		return nil, errors.New("post ID is empty")
	}

	commentsURL := fmt.Sprintf("%s/r/%s/comments/%s", r.baseURL, url.PathEscape(community), url.PathEscape(id))
	body, err := r.client.Get(ctx, commentsURL, url.Values{
		"depth":    {"1"},
		"raw_json": {"1"},
	})
	if err != nil {
		return nil, err
	}

	return topLevelComments(body), nil
}

func postFromListing(data gjson.Result) domain.Post {
	created := data.Get("created_utc").Float()

	return domain.Post{
		Title:       data.Get("title").String(),
		URL:         data.Get("url").String(),
		CreatedAt:   time.Unix(int64(created), 0).UTC(),
		Score:       int(data.Get("score").Int()),
		NumComments: int(data.Get("num_comments").Int()),
		Body:        data.Get("selftext").String(),
	}
}

// topLevelComments reads the second listing of a comments response and keeps
// only real comments, dropping "more" placeholders and nested replies.
func topLevelComments(body []byte) []string {
	var comments []string

	gjson.GetBytes(body, "1.data.children").ForEach(func(_, child gjson.Result) bool {
		if child.Get("kind").String() != kindComment {
			return true
		}

		comments = append(comments, child.Get("data.body").String())

		return true
	})

	return comments
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)

	return t.base.RoundTrip(clone)
}
