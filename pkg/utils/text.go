package utils

import "strings"

// Snippet returns s trimmed and truncated to maxLen characters, with an
// ellipsis marker appended when truncation occurred.
// If maxLen is 0 or negative, returns the trimmed string unchanged.
func Snippet(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[:maxLen]) + " …"
}
