package markdown

import "strings"

// EscapeSlack escapes the control characters of Slack mrkdwn.
// Taken from https://api.slack.com/reference/surfaces/formatting#escaping.
func EscapeSlack(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if slackEntities[input[i]] != "" {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape*len("&amp;"))

	for i := range len(input) {
		c := input[i]
		if entity := slackEntities[c]; entity != "" {
			b.WriteString(entity)
			continue
		}
		b.WriteByte(c)
	}

	return b.String()
}

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var slackEntities = func() [256]string {
	var m [256]string
	m['&'] = "&amp;"
	m['<'] = "&lt;"
	m['>'] = "&gt;"
	return m
}()
