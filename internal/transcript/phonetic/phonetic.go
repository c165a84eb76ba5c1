// Package phonetic corrects spoken place names against a gazetteer of known
// places. Speech recognizers routinely mangle Indian city names ("poona" for
// Pune, "bombay" style spellings, split syllables), so an extracted location
// phrase is snapped to the closest known place before it reaches a form.
//
// Matching runs in two passes:
//
//  1. Candidates whose Double Metaphone codes overlap with the phrase are
//     ranked by Jaro-Winkler similarity and accepted above the phonetic
//     threshold.
//  2. When no phonetic candidate is accepted, pure Jaro-Winkler similarity
//     against every place is tried with the stricter fuzzy threshold.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a place whose
// phonetic code overlaps with the phrase. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for the fallback
// pass without phonetic overlap. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// place is a known place with its precomputed lower-case tokens and codes.
type place struct {
	name   string
	lower  string
	tokens []string
	codes  map[string]struct{}
}

// Matcher snaps phrases to known places. It is read-only after construction
// and safe for concurrent use.
type Matcher struct {
	places            []place
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Matcher over the given place names. Blank names and
// case-insensitive duplicates are ignored.
func New(places []string, opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}

	seen := make(map[string]bool, len(places))
	for _, name := range places {
		name = strings.TrimSpace(name)
		lower := strings.ToLower(name)
		if lower == "" || seen[lower] {
			continue
		}
		seen[lower] = true
		tokens := strings.Fields(lower)
		m.places = append(m.places, place{
			name:   name,
			lower:  lower,
			tokens: tokens,
			codes:  codesFor(tokens),
		})
	}
	return m
}

// Len returns the number of known places.
func (m *Matcher) Len() int { return len(m.places) }

// Match returns the known place closest to phrase. When matched is false,
// corrected equals phrase and confidence is 0.
func (m *Matcher) Match(phrase string) (corrected string, confidence float64, matched bool) {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	if lower == "" || len(m.places) == 0 {
		return phrase, 0, false
	}
	tokens := strings.Fields(lower)
	codes := codesFor(tokens)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, p := range m.places {
		if p.lower == lower {
			return p.name, 1, true
		}
		score := similarity(tokens, p.tokens, lower, p.lower)
		if overlaps(codes, p.codes) {
			if score >= m.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = p.name, score, true
			}
			continue
		}
		if !bestPhonetic && score >= m.fuzzyThreshold && score > bestScore {
			best, bestScore = p.name, score
		}
	}
	if best == "" {
		return phrase, 0, false
	}
	return best, bestScore, true
}

func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

// similarity is the best Jaro-Winkler score across the full strings, the
// space-stripped strings and, for multi-word inputs, every token pair.
// Single-token pairs are skipped for one-word phrases against multi-word
// places so "nagar" alone does not snap to "Ahmed Nagar".
func similarity(in, known []string, inFull, knownFull string) float64 {
	score := matchr.JaroWinkler(inFull, knownFull, false)
	if len(in) > 1 || len(known) > 1 {
		if s := matchr.JaroWinkler(strings.Join(in, ""), strings.Join(known, ""), false); s > score {
			score = s
		}
	}
	if len(in) > 1 && len(known) > 1 {
		for _, a := range in {
			for _, b := range known {
				if s := matchr.JaroWinkler(a, b, false); s > score {
					score = s
				}
			}
		}
	}
	return score
}
