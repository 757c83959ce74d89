package common

import "strings"

// SplitTrimmed splits a comma-separated value, trimming whitespace around
// items and dropping empty ones.
func SplitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
