package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleReplacer replaces filesystem-unsafe characters with safe alternatives.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed.
var titleReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeTitle cleans a model-generated document title: unsafe filename
// characters are replaced, quotes stripped, whitespace collapsed, and the
// result clamped to maxLen runes. Returns "" when nothing usable remains.
func SanitizeTitle(title string, maxLen int) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, "\"'`")
	title = titleReplacer.Replace(title)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return ""
	}
	if maxLen > 0 {
		runes := []rune(title)
		if len(runes) > maxLen {
			title = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return title
}

// TitleCase converts a sanitized title into title casing.
func TitleCase(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	return cases.Title(language.Und, cases.NoLower).String(title)
}

// TruncateError flattens an error message onto one line and clamps it for
// checkpoint records and log output.
func TruncateError(message string, limit int) string {
	message = strings.Join(strings.Fields(message), " ")
	if limit <= 0 || len([]rune(message)) <= limit {
		return message
	}
	return string([]rune(message)[:limit]) + "..."
}
