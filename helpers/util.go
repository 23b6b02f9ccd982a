package helpers

import (
	"strings"
)

// Truncate shortens s to at most n runes, marking the cut with "..."
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// IsHTTPURL reports whether source names an http or https resource
func IsHTTPURL(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
