package domain

import "time"

const DigestSize = 3

type Post struct {
	Title       string
	URL         string
	CreatedAt   time.Time
	Score       int
	NumComments int
	Body        string
	Comments    []string
}

// Summary is the output of one summarization run. A nil Digest means the
// backend ran in legacy mode and Details holds the whole model output.
type Summary struct {
	Digest  []string `json:"digest"`
	Details string   `json:"details"`
	Model   string   `json:"-"`
}

func (s Summary) Structured() bool {
	return s.Digest != nil
}
