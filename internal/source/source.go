package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"reddigest/internal/domain"
)

const (
	DefaultLimit = 3

	createdAtLayout = "2006/01/02 15:04:05"
)

var communityRe = regexp.MustCompile(`^\w{2,21}$`)

// Source fetches the top posts of a community. Posts are returned in the
// upstream ranking order.
type Source interface {
	FetchTop(ctx context.Context, community string, limit int, window string) ([]domain.Post, error)
}

// NormalizeCommunity strips an optional r/ prefix and validates the name.
func NormalizeCommunity(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(strings.TrimPrefix(name, "r/"), "R/")
	name = strings.TrimSuffix(name, "/")

	if !communityRe.MatchString(name) {
		return "", fmt.Errorf("invalid community name %q", raw)
	}

	return name, nil
}

// FormatCorpus concatenates posts into the text handed to the summarizer.
// Zero posts yield an empty corpus.
func FormatCorpus(posts []domain.Post) string {
	var b strings.Builder

	for _, post := range posts {
		fmt.Fprintf(&b, "タイトル: %s\n", post.Title)
		fmt.Fprintf(&b, "URL: %s\n", post.URL)
		fmt.Fprintf(&b, "投稿日時: %s\n", post.CreatedAt.UTC().Format(createdAtLayout))
		fmt.Fprintf(&b, "スコア: %d\n", post.Score)
		fmt.Fprintf(&b, "コメント数: %d\n", post.NumComments)
		fmt.Fprintf(&b, "本文:\n%s\n", post.Body)
		b.WriteString("コメントリスト:\n")
		b.WriteString(strings.Join(post.Comments, "\n"))
		b.WriteString("\n\n")
	}

	return b.String()
}
