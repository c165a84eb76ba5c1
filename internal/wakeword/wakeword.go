// Package wakeword detects the activation phrase in the auxiliary
// recognition stream and tracks whether that stream should be running.
//
// Detection tries, in order, a verbatim word-sequence match, a list of known
// mis-hearings and a fuzzy fallback: when the first heard word is a greeting
// alias ("hey", "hi", ...) and the second is within a small edit distance of
// the phrase's second word.
package wakeword

import (
	"strings"

	"github.com/MrWong99/haulvoice/internal/transcript/fuzzy"
)

// Method tells how a wake phrase was recognized.
type Method string

const (
	MethodExact   Method = "exact"
	MethodVariant Method = "variant"
	MethodFuzzy   Method = "fuzzy"
)

// State is the detector's listening state.
type State int

const (
	// StateArmed means the wake stream should be listening.
	StateArmed State = iota
	// StateSuspended means a command capture holds the microphone.
	StateSuspended
	// StateStopped is terminal; it follows a permission denial.
	StateStopped
)

// String returns a lower-case state name.
func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateSuspended:
		return "suspended"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config describes the wake phrase and its tolerated variations.
type Config struct {
	Phrase      string   `yaml:"phrase"`
	Variants    []string `yaml:"variants"`
	Aliases     []string `yaml:"aliases"`
	MaxDistance int      `yaml:"max_distance"`
}

// DefaultConfig returns the "hey daas" configuration.
func DefaultConfig() Config {
	return Config{
		Phrase:      "hey daas",
		Variants:    []string{"hey das", "hey dass", "hey dos", "hay daas", "hey the ass", "a das", "hey thus"},
		Aliases:     []string{"hey", "hi", "hay", "hai", "he", "a"},
		MaxDistance: 2,
	}
}

// FatalCode is the recognition error that disables wake detection for good.
const FatalCode = "not-allowed"

// Detector matches wake phrases and holds the wake stream state. It is not
// safe for concurrent use; the dialogue loop owns it.
type Detector struct {
	phrase   string
	variants []string
	aliases  map[string]bool
	second   string
	maxDist  int
	state    State
}

// New returns an armed Detector for cfg.
func New(cfg Config) *Detector {
	d := &Detector{
		phrase:  fuzzy.Normalize(cfg.Phrase),
		aliases: make(map[string]bool, len(cfg.Aliases)),
		maxDist: cfg.MaxDistance,
	}
	for _, v := range cfg.Variants {
		if v = fuzzy.Normalize(v); v != "" {
			d.variants = append(d.variants, v)
		}
	}
	for _, a := range cfg.Aliases {
		d.aliases[fuzzy.Normalize(a)] = true
	}
	if w := fuzzy.Words(d.phrase); len(w) > 1 {
		d.second = w[1]
	}
	return d
}

// Detect reports whether text contains the wake phrase and how.
func (d *Detector) Detect(text string) (Method, bool) {
	t := fuzzy.Normalize(text)
	if t == "" || d.phrase == "" {
		return "", false
	}
	if containsWords(t, d.phrase) {
		return MethodExact, true
	}
	for _, v := range d.variants {
		if containsWords(t, v) {
			return MethodVariant, true
		}
	}
	words := fuzzy.Words(t)
	if d.second != "" && len(words) >= 2 && d.aliases[words[0]] && fuzzy.Similar(words[1], d.second, d.maxDist) {
		return MethodFuzzy, true
	}
	return "", false
}

// containsWords reports whether phrase occurs in text as whole words. Both
// are normalized, so words are separated by single spaces.
func containsWords(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// Feed checks a recognition chunk while armed. On detection the detector
// suspends itself and Feed returns the method and true.
func (d *Detector) Feed(chunk string) (Method, bool) {
	if d.state != StateArmed {
		return "", false
	}
	m, ok := d.Detect(chunk)
	if ok {
		d.state = StateSuspended
	}
	return m, ok
}

// State returns the current state.
func (d *Detector) State() State { return d.state }

// Suspend yields the microphone to a command capture.
func (d *Detector) Suspend() {
	if d.state == StateArmed {
		d.state = StateSuspended
	}
}

// Arm returns to listening. It reports false when the detector is stopped.
func (d *Detector) Arm() bool {
	if d.state == StateStopped {
		return false
	}
	d.state = StateArmed
	return true
}

// Fail records a recognition error on the wake stream and reports whether
// it was terminal. Transient errors leave the state unchanged so the stream
// is restarted when it ends.
func (d *Detector) Fail(code string) bool {
	if code == FatalCode {
		d.state = StateStopped
		return true
	}
	return false
}

// Wanted reports whether the wake stream should be running.
func (d *Detector) Wanted() bool { return d.state == StateArmed }
