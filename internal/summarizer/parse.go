package summarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"reddigest/internal/domain"
)

var (
	errDigestMissing  = errors.New("digest is missing")
	errDetailsMissing = errors.New("details is missing")

	//nolint:gochecknoglobals // Copied out by PlaceholderDigest, never mutated.
	placeholderDigest = [domain.DigestSize]string{
		"ダイジェストを生成できませんでした",
		"会話の全文はスレッドを確認してください",
		"(要約結果の解析に失敗しました)",
	}
)

// PlaceholderDigest returns the fixed three lines used when a response
// cannot be decoded.
func PlaceholderDigest() []string {
	out := make([]string, domain.DigestSize)
	copy(out, placeholderDigest[:])

	return out
}

// DecodeSummary strictly decodes a schema-constrained response.
func DecodeSummary(raw string) (domain.Summary, error) {
	var payload struct {
		Digest  []string `json:"digest"`
		Details *string  `json:"details"`
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return domain.Summary{}, fmt.Errorf("unmarshal summary: %w", err)
	}

	if payload.Digest == nil {
		return domain.Summary{}, errDigestMissing
	}
	if payload.Details == nil {
		return domain.Summary{}, errDetailsMissing
	}

	return domain.Summary{
		Digest:  normalizeDigest(payload.Digest),
		Details: *payload.Details,
	}, nil
}

// DecodeSummaryLenient decodes model output that was only asked to be JSON.
// Markdown code fences are removed, text around the outermost braces is
// ignored and raw control characters inside string values are tolerated.
func DecodeSummaryLenient(raw string) (domain.Summary, error) {
	text := trimCodeFence(raw)
	if text == "" {
		return domain.Summary{}, errors.New("response is empty")
	}

	text, ok := ExtractJSONObject(text)
	if !ok {
		return domain.Summary{}, errors.New("response has no JSON object")
	}

	digest := gjson.Get(text, "digest")
	if !digest.IsArray() {
		return domain.Summary{}, errDigestMissing
	}

	details := gjson.Get(text, "details")
	if details.Type != gjson.String {
		return domain.Summary{}, errDetailsMissing
	}

	items := digest.Array()
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.String())
	}

	return domain.Summary{
		Digest:  normalizeDigest(lines),
		Details: details.String(),
	}, nil
}

// ExtractJSONObject returns the substring from the first '{' to the last
// '}'. Braces inside string values are not interpreted.
func ExtractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", false
	}

	return raw[start : end+1], true
}

// decodeOrPlaceholder applies the placeholder policy: when raw cannot be
// decoded the digest is replaced and raw becomes the details.
func decodeOrPlaceholder(raw string, extract bool) (domain.Summary, error) {
	candidate := raw
	if extract {
		object, ok := ExtractJSONObject(raw)
		if !ok {
			return placeholderSummary(raw), errors.New("no JSON object in response")
		}
		candidate = object
	}

	summary, err := DecodeSummaryLenient(candidate)
	if err != nil {
		return placeholderSummary(raw), err
	}

	return summary, nil
}

func placeholderSummary(raw string) domain.Summary {
	return domain.Summary{
		Digest:  PlaceholderDigest(),
		Details: strings.TrimSpace(raw),
	}
}

// normalizeDigest pads or truncates lines to DigestSize. Entries keep their
// position; a missing or blank entry takes the placeholder of that position.
func normalizeDigest(lines []string) []string {
	out := make([]string, domain.DigestSize)
	for i := range out {
		if i < len(lines) {
			out[i] = strings.TrimSpace(lines[i])
		}
		if out[i] == "" {
			out[i] = placeholderDigest[i]
		}
	}

	return out
}

func trimCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		text = text[newline+1:]
	} else {
		text = ""
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}
