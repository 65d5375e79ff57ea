package auth

import (
	"html"
	"strings"
	"unicode"
)

// SanitizeName cleans a person's name for storage: trimmed, control
// characters stripped, HTML-escaped.
func SanitizeName(name string) string {
	return html.EscapeString(removeControlChars(strings.TrimSpace(name)))
}

// SanitizeText cleans free-form text (addresses, notes) while keeping
// newlines and tabs.
func SanitizeText(text string) string {
	return html.EscapeString(removeControlChars(text))
}

func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
