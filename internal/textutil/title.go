package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// titleSeparators are trimmed from both ends of a chapter title.
const titleSeparators = " \t-:|\u2013\u2014\u00a0"

// CleanTitle trims separator runs from both ends of a chapter title and
// applies NFC normalization so visually identical titles compare equal.
func CleanTitle(value string) string {
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.Trim(value, titleSeparators)
	if value == "" {
		return ""
	}
	return norm.NFC.String(value)
}

// Truncate shortens value to at most limit runes, appending "..." when cut.
func Truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit]) + "..."
}

// Clip cuts value to at most limit runes without adding a marker.
func Clip(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	return strings.TrimSpace(string([]rune(value)[:limit]))
}
