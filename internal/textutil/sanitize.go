package textutil

import (
	"strings"
	"unicode"
)

// unsafeNameRunes cannot appear in a file name on at least one target
// filesystem.
const unsafeNameRunes = `/\:*?"<>|`

// SanitizeFileName removes path separators, reserved punctuation and control
// characters from name. The result may be empty.
func SanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(unsafeNameRunes, r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(cleaned)
}
