package intent

import (
	"errors"
	"fmt"
)

// Weights are the per-rule scores of the fuzzy ranking.
type Weights struct {
	PrimaryPhrase     int `yaml:"primary_phrase"`
	AlternativePhrase int `yaml:"alternative_phrase"`
	Keyword           int `yaml:"keyword"`
	KeywordSubstring  int `yaml:"keyword_substring"`
	KeywordFuzzy      int `yaml:"keyword_fuzzy"`
	GenericKeyword    int `yaml:"generic_keyword"`
	PhraseDistance    int `yaml:"phrase_distance"`
}

// Scoring holds the tunable constants of fuzzy ranking and auto-correction.
type Scoring struct {
	Weights Weights `yaml:"weights"`

	// KeywordMaxDistance bounds the keyword/word edit distance that still
	// earns KeywordFuzzy points, scaled by (max+1-d).
	KeywordMaxDistance int `yaml:"keyword_max_distance"`

	// PhraseMaxDistance bounds the whole transcript/primary phrase distance
	// that still earns PhraseDistance points, scaled by (max+1-d).
	PhraseMaxDistance int `yaml:"phrase_max_distance"`

	// AutoCorrectRatio is the word-overlap ratio at or above which the top
	// ranked command is executed without asking.
	AutoCorrectRatio float64 `yaml:"auto_correct_ratio"`

	MaxSuggestions int `yaml:"max_suggestions"`
}

// DefaultScoring returns the stock weights: 100 for the primary phrase, 80
// per alternative, 15 per keyword, 8 per substring pair, 5 per fuzzy step,
// 5 per generic word, 3 per phrase-distance step, 60% auto-correct overlap
// and three suggestions.
func DefaultScoring() Scoring {
	return Scoring{
		Weights: Weights{
			PrimaryPhrase:     100,
			AlternativePhrase: 80,
			Keyword:           15,
			KeywordSubstring:  8,
			KeywordFuzzy:      5,
			GenericKeyword:    5,
			PhraseDistance:    3,
		},
		KeywordMaxDistance: 2,
		PhraseMaxDistance:  5,
		AutoCorrectRatio:   0.6,
		MaxSuggestions:     3,
	}
}

// Validate reports every out-of-range field.
func (s Scoring) Validate() error {
	var errs []error
	w := s.Weights
	for _, f := range []struct {
		name string
		v    int
	}{
		{"primary_phrase", w.PrimaryPhrase},
		{"alternative_phrase", w.AlternativePhrase},
		{"keyword", w.Keyword},
		{"keyword_substring", w.KeywordSubstring},
		{"keyword_fuzzy", w.KeywordFuzzy},
		{"generic_keyword", w.GenericKeyword},
		{"phrase_distance", w.PhraseDistance},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Errorf("weights.%s must not be negative, got %d", f.name, f.v))
		}
	}
	if s.KeywordMaxDistance < 0 {
		errs = append(errs, fmt.Errorf("keyword_max_distance must not be negative, got %d", s.KeywordMaxDistance))
	}
	if s.PhraseMaxDistance < 0 {
		errs = append(errs, fmt.Errorf("phrase_max_distance must not be negative, got %d", s.PhraseMaxDistance))
	}
	if s.AutoCorrectRatio <= 0 || s.AutoCorrectRatio > 1 {
		errs = append(errs, fmt.Errorf("auto_correct_ratio must be in (0, 1], got %g", s.AutoCorrectRatio))
	}
	if s.MaxSuggestions < 1 {
		errs = append(errs, fmt.Errorf("max_suggestions must be at least 1, got %d", s.MaxSuggestions))
	}
	return errors.Join(errs...)
}
