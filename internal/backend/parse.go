package backend

import (
	"regexp"
	"strings"
)

var (
	reasoningBlockPattern = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
	labelSeparatorPattern = regexp.MustCompile(`[\s-]+`)
)

// Normalize case-folds model output and strips reasoning and markup blocks so
// label and title extraction sees only the answer text.
func Normalize(raw string) string {
	cleaned := reasoningBlockPattern.ReplaceAllString(raw, " ")
	cleaned = stripCodeFences(cleaned)
	return strings.TrimSpace(cleaned)
}

// ExtractLabel pulls a quality label out of free-form model output by
// substring match. When both labels appear, the first occurrence wins; when
// neither does, the result is empty.
func ExtractLabel(raw string) string {
	normalized := strings.ToLower(Normalize(raw))
	// Collapse "high quality" / "high-quality" variants onto the canonical form.
	normalized = labelSeparatorPattern.ReplaceAllString(normalized, "_")

	high := strings.Index(normalized, LabelHighQuality)
	low := strings.Index(normalized, LabelLowQuality)
	switch {
	case high < 0 && low < 0:
		return ""
	case low < 0:
		return LabelHighQuality
	case high < 0:
		return LabelLowQuality
	case high < low:
		return LabelHighQuality
	default:
		return LabelLowQuality
	}
}

// ExtractTitle takes the first non-empty line of the normalized output.
func ExtractTitle(raw string) string {
	for _, line := range strings.Split(Normalize(raw), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "Title:")
		line = strings.TrimPrefix(line, "title:")
		line = strings.Trim(strings.TrimSpace(line), "\"'`")
		if line != "" {
			return line
		}
	}
	return ""
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if idx := strings.IndexAny(body, "\r\n"); idx >= 0 {
		body = body[idx:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
