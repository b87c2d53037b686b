package notifier

import (
	"strings"
	"unicode/utf16"
)

// TelegramMessageMaxLength is Telegram's limit, counted in UTF-16 code units.
const TelegramMessageMaxLength = 4096

// SplitMessage cuts text into chunks of at most limit UTF-16 code units,
// breaking on line boundaries where possible. Lines longer than limit are
// cut on rune boundaries.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if chunk := strings.Trim(current.String(), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := utf16Len(line)

		if currentLen+lineLen > limit {
			flush()
		}

		for lineLen > limit {
			head, tail := cutUTF16(line, limit)
			chunks = append(chunks, head)
			line = tail
			lineLen = utf16Len(line)
		}

		current.WriteString(line)
		currentLen += lineLen
	}

	flush()

	return chunks
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// cutUTF16 splits s so that head holds at most limit UTF-16 code units.
func cutUTF16(s string, limit int) (string, string) {
	n := 0
	for i, r := range s {
		size := utf16.RuneLen(r)
		if n+size > limit {
			return s[:i], s[i:]
		}
		n += size
	}
	return s, ""
}
