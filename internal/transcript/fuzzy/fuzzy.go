// Package fuzzy holds the string-similarity primitives shared by intent
// matching, wake-word detection and entity extraction.
//
// Distances are computed over runes with standard Levenshtein semantics:
// single-character insertions, deletions and substitutions each cost one.
package fuzzy

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Distance returns the Levenshtein edit distance between a and b.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	return matchr.Levenshtein(a, b)
}

// Similar reports whether a and b are equal or within max edits of each other.
func Similar(a, b string, max int) bool {
	if a == b {
		return true
	}
	if max <= 0 {
		return false
	}
	// Length difference is a lower bound on the distance.
	if d := len([]rune(a)) - len([]rune(b)); d > max || -d > max {
		return false
	}
	return Distance(a, b) <= max
}

// Normalize lower-cases s, strips sentence punctuation and collapses runs of
// whitespace into single spaces. The result is the canonical transcript form.
// A period between two digits is a decimal point and is kept; apostrophes,
// hyphens, plus signs and parentheses survive because entity shapes use them.
func Normalize(s string) string {
	rs := []rune(strings.ToLower(s))
	for i, r := range rs {
		switch r {
		case ',', '!', '?', ';', ':', '"':
			rs[i] = ' '
		case '.':
			if i > 0 && i < len(rs)-1 && isDigit(rs[i-1]) && isDigit(rs[i+1]) {
				continue
			}
			rs[i] = ' '
		}
	}
	return strings.Join(strings.Fields(string(rs)), " ")
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Words splits a normalized string into its words.
func Words(s string) []string {
	return strings.Fields(s)
}
