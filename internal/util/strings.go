package util

import (
	"strings"
	"unicode"
)

// Titleize converts an identifier like "sales-report" or "git_repo" into a
// human-readable title ("Sales Report", "Git Repo"). Hyphens, underscores,
// and spaces all act as word separators.
func Titleize(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// TruncateString shortens s to max runes, appending "..." when truncated.
// Used for log lines that carry prompt or response fragments.
func TruncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
