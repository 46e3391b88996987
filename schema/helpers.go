package schema

import (
	"math"
	"strings"
)

// Percent returns part/total as a percentage rounded to two decimals, 0 when total is 0.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// CleanToken trims a token and removes the list delimiter from it.
func CleanToken(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ListDelimiter, ""))
}

// CleanTokens cleans every token and drops the empty ones.
// The result is never nil.
func CleanTokens(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := CleanToken(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Dedup removes repeated strings, keeping the first occurrence of each.
// The result is never nil.
func Dedup(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
