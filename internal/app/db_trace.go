package app

import (
	"regexp"
	"strings"
)

const maxTracedQueryLength = 512

var queryWhitespace = regexp.MustCompile(`\s+`)

// formatDBQueryForTrace collapses whitespace and truncates long statements so
// span attributes stay readable.
func formatDBQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}
	normalized := queryWhitespace.ReplaceAllString(query, " ")
	if len(normalized) > maxTracedQueryLength {
		return normalized[:maxTracedQueryLength] + "..."
	}
	return normalized
}
