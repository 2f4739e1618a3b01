package jdiarg

import "strings"

// MatchesClassPattern reports whether name matches pattern, which may carry
// a single leading or trailing "*" wildcard (§4.3 class inclusion/exclusion).
// A pattern with no "*" requires an exact match.
func MatchesClassPattern(pattern, name string) bool {
	switch {
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(name, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	default:
		return name == pattern
	}
}
