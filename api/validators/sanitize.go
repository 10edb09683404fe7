package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims whitespace, drops control characters, and caps the
// result at maxLen runes. Truncation counts runes, not bytes, so accented
// names survive the cut intact.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}
