// Package intent turns a normalized transcript into a catalog intent.
//
// Matching runs in two modes. [Matcher.Match] walks the catalog's pattern
// rules in declaration order and returns the first hit. When that fails,
// [Matcher.Rank] scores every command with a weighted keyword and
// edit-distance heuristic, and [Matcher.Resolve] decides between executing
// the best guess (auto-correction) and offering suggestions.
package intent

import (
	"sort"
	"strings"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/transcript/fuzzy"
)

// Outcome classifies how a transcript was resolved.
type Outcome string

const (
	OutcomeRecognized    Outcome = "recognized"
	OutcomeAutoCorrected Outcome = "auto_corrected"
	OutcomeUnrecognized  Outcome = "unrecognized"
)

// Suggestion is one ranked candidate command.
type Suggestion struct {
	Command catalog.Command
	Score   int
}

// Resolution is the combined result of deterministic and fuzzy matching.
type Resolution struct {
	Intent  catalog.Intent
	Outcome Outcome

	// Confidence is 1 for deterministic matches and the word-overlap ratio
	// for auto-corrected ones.
	Confidence float64

	// Suggestions holds at most Scoring.MaxSuggestions entries when Outcome
	// is OutcomeUnrecognized.
	Suggestions []Suggestion

	// Fallback is set when no command scored and Suggestions is the
	// catalog's common set instead of a ranking.
	Fallback bool

	// NeedsForm names a command that would have been auto-corrected to but
	// whose form precondition does not hold.
	NeedsForm catalog.Intent
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "my": true,
	"is": true, "at": true, "in": true, "on": true, "for": true,
}

// entry caches the normalized text of one command.
type entry struct {
	cmd      catalog.Command
	primary  string
	words    []string
	alts     []string
	keywords []string
	text     string
}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithScoring replaces the default scoring weights and thresholds.
func WithScoring(s Scoring) Option {
	return func(m *Matcher) {
		m.scoring = s
	}
}

// Matcher resolves transcripts against a catalog. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	catalog *catalog.Catalog
	entries []entry
	scoring Scoring
}

// New returns a Matcher over c.
func New(c *catalog.Catalog, opts ...Option) *Matcher {
	m := &Matcher{
		catalog: c,
		scoring: DefaultScoring(),
	}
	for _, o := range opts {
		o(m)
	}
	for _, cmd := range c.All() {
		e := entry{
			cmd:     cmd,
			primary: fuzzy.Normalize(cmd.Primary),
		}
		e.words = fuzzy.Words(e.primary)
		for _, a := range cmd.Alternatives {
			e.alts = append(e.alts, fuzzy.Normalize(a))
		}
		for _, k := range cmd.Keywords {
			e.keywords = append(e.keywords, fuzzy.Normalize(k))
		}
		e.text = strings.Join(append([]string{e.primary}, e.alts...), " ")
		m.entries = append(m.entries, e)
	}
	return m
}

// Scoring returns the active scoring configuration.
func (m *Matcher) Scoring() Scoring { return m.scoring }

// Catalog returns the catalog the matcher was built from.
func (m *Matcher) Catalog() *catalog.Catalog { return m.catalog }

// Match returns the first intent whose pattern matches transcript, trying
// commands and their patterns in declaration order. Commands that require a
// form are skipped when formPresented is false.
func (m *Matcher) Match(transcript string, formPresented bool) catalog.Intent {
	t := fuzzy.Normalize(transcript)
	if t == "" {
		return catalog.None
	}
	for _, e := range m.entries {
		if e.cmd.RequiresForm && !formPresented {
			continue
		}
		for _, p := range e.cmd.Patterns {
			if p.Match(t) {
				return e.cmd.ID
			}
		}
	}
	return catalog.None
}

// Rank scores every command against transcript and returns those with a
// positive score, best first. Ties keep catalog order.
func (m *Matcher) Rank(transcript string) []Suggestion {
	t := fuzzy.Normalize(transcript)
	if t == "" {
		return nil
	}
	words := fuzzy.Words(t)

	var out []Suggestion
	for _, e := range m.entries {
		if s := m.score(t, words, e); s > 0 {
			out = append(out, Suggestion{Command: e.cmd, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func (m *Matcher) score(t string, words []string, e entry) int {
	w := m.scoring.Weights
	score := 0

	if strings.Contains(t, e.primary) {
		score += w.PrimaryPhrase
	}
	for _, alt := range e.alts {
		if strings.Contains(t, alt) {
			score += w.AlternativePhrase
		}
	}

	for _, kw := range e.keywords {
		if strings.Contains(t, kw) {
			score += w.Keyword
		}
		// Stopwords and single letters would substring-match most keywords.
		for _, word := range words {
			if stopwords[word] || len(word) < 2 {
				continue
			}
			if strings.Contains(word, kw) || strings.Contains(kw, word) {
				score += w.KeywordSubstring
			}
			if len(kw) > 3 {
				if d := fuzzy.Distance(kw, word); d <= m.scoring.KeywordMaxDistance {
					score += w.KeywordFuzzy * (m.scoring.KeywordMaxDistance + 1 - d)
				}
			}
		}
	}

	for _, word := range words {
		if len(word) > 2 && !stopwords[word] && strings.Contains(e.text, word) {
			score += w.GenericKeyword
		}
	}

	if d := fuzzy.Distance(t, e.primary); d <= m.scoring.PhraseMaxDistance {
		score += (m.scoring.PhraseMaxDistance + 1 - d) * w.PhraseDistance
	}
	return score
}

// Overlap returns the share of words that transcript and cmd's primary
// phrase have in common: matched words divided by the larger word count.
// Words match when equal or one edit apart; each command word is used once.
func (m *Matcher) Overlap(transcript string, cmd catalog.Command) float64 {
	return overlap(fuzzy.Words(fuzzy.Normalize(transcript)), fuzzy.Words(fuzzy.Normalize(cmd.Primary)))
}

func overlap(words, cmdWords []string) float64 {
	denom := max(len(words), len(cmdWords))
	if denom == 0 {
		return 0
	}
	used := make([]bool, len(cmdWords))
	matched := 0
	for _, w := range words {
		for i, cw := range cmdWords {
			if !used[i] && fuzzy.Similar(w, cw, 1) {
				used[i] = true
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(denom)
}

// Resolve runs deterministic matching and, failing that, the fuzzy
// auto-correct and suggestion flow.
func (m *Matcher) Resolve(transcript string, formPresented bool) Resolution {
	if id := m.Match(transcript, formPresented); id != catalog.None {
		return Resolution{Intent: id, Outcome: OutcomeRecognized, Confidence: 1}
	}

	res := Resolution{Intent: catalog.None, Outcome: OutcomeUnrecognized}
	ranked := m.Rank(transcript)
	if len(ranked) > 0 {
		top := ranked[0].Command
		if ratio := m.Overlap(transcript, top); ratio >= m.scoring.AutoCorrectRatio {
			if !top.RequiresForm || formPresented {
				return Resolution{Intent: top.ID, Outcome: OutcomeAutoCorrected, Confidence: ratio}
			}
			res.NeedsForm = top.ID
		}
	}

	if len(ranked) == 0 {
		for _, cmd := range m.catalog.Common() {
			res.Suggestions = append(res.Suggestions, Suggestion{Command: cmd})
		}
		res.Fallback = true
		return res
	}
	if n := m.scoring.MaxSuggestions; n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	res.Suggestions = ranked
	return res
}
