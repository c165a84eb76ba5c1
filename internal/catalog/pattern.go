package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled pattern-rule template.
//
// Template syntax, tokens separated by whitespace:
//
//	word        literal word
//	(a|b c)     required alternation; an alternative may span several words
//	[a|b]       optional alternation
//	^ ... $     leading/trailing anchors
//
// Tokens are joined by one or more spaces. Unanchored templates must start on
// a word boundary; there is no trailing boundary so "truck" also matches
// "trucks". Matching is case-insensitive.
type Pattern struct {
	template string
	re       *regexp.Regexp
}

// CompilePattern parses and compiles a template.
func CompilePattern(template string) (Pattern, error) {
	tokens := strings.Fields(template)
	if len(tokens) == 0 {
		return Pattern{}, fmt.Errorf("catalog: empty pattern")
	}

	var b strings.Builder
	b.WriteString("(?i)")
	if tokens[0] == "^" {
		b.WriteString("^")
		tokens = tokens[1:]
	} else {
		b.WriteString(`\b`)
	}
	anchorEnd := false
	if n := len(tokens); n > 0 && tokens[n-1] == "$" {
		anchorEnd = true
		tokens = tokens[:n-1]
	}
	tokens, err := groupTokens(tokens)
	if err != nil {
		return Pattern{}, fmt.Errorf("catalog: pattern %q: %w", template, err)
	}
	if len(tokens) == 0 {
		return Pattern{}, fmt.Errorf("catalog: pattern %q has no words", template)
	}

	needSep := false
	for _, tok := range tokens {
		optional := false
		var body string
		switch {
		case strings.HasPrefix(tok, "["):
			optional = true
			body, err = alternation(tok[1 : len(tok)-1])
		case strings.HasPrefix(tok, "("):
			body, err = alternation(tok[1 : len(tok)-1])
		default:
			body, err = literal(tok)
		}
		if err != nil {
			return Pattern{}, fmt.Errorf("catalog: pattern %q: %w", template, err)
		}

		switch {
		case !optional:
			if needSep {
				b.WriteString(`\s+`)
			}
			b.WriteString(body)
			needSep = true
		case needSep:
			b.WriteString(`(?:\s+` + body + `)?`)
		default:
			b.WriteString(`(?:` + body + `\s+)?`)
		}
	}
	if anchorEnd {
		b.WriteString("$")
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return Pattern{}, fmt.Errorf("catalog: pattern %q: %w", template, err)
	}
	return Pattern{template: template, re: re}, nil
}

// MustCompilePattern is like [CompilePattern] but panics on error. It is
// intended for the built-in catalog only.
func MustCompilePattern(template string) Pattern {
	p, err := CompilePattern(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the pattern occurs in s.
func (p Pattern) Match(s string) bool {
	return p.re != nil && p.re.MatchString(s)
}

// String returns the source template.
func (p Pattern) String() string { return p.template }

// groupTokens re-joins bracketed groups that were split on whitespace, so
// "(go to|show)" becomes a single token again.
func groupTokens(fields []string) ([]string, error) {
	var (
		out   []string
		open  byte
		group strings.Builder
	)
	for _, f := range fields {
		if open == 0 {
			if f[0] != '(' && f[0] != '[' {
				if strings.ContainsAny(f, "()[]") {
					return nil, fmt.Errorf("stray bracket in %q", f)
				}
				out = append(out, f)
				continue
			}
			open = f[0]
			group.Reset()
			group.WriteString(f)
		} else {
			group.WriteByte(' ')
			group.WriteString(f)
		}
		if closer(open) == f[len(f)-1] {
			out = append(out, group.String())
			open = 0
		}
	}
	if open != 0 {
		return nil, fmt.Errorf("unclosed %q", string(open))
	}
	return out, nil
}

func closer(open byte) byte {
	if open == '(' {
		return ')'
	}
	return ']'
}

// alternation compiles "a|b c" into a non-capturing group.
func alternation(inner string) (string, error) {
	if strings.ContainsAny(inner, "()[]") {
		return "", fmt.Errorf("nested group in %q", inner)
	}
	alts := strings.Split(inner, "|")
	parts := make([]string, 0, len(alts))
	for _, alt := range alts {
		words := strings.Fields(alt)
		if len(words) == 0 {
			return "", fmt.Errorf("empty alternative in %q", inner)
		}
		quoted := make([]string, len(words))
		for i, w := range words {
			q, err := literal(w)
			if err != nil {
				return "", err
			}
			quoted[i] = q
		}
		parts = append(parts, strings.Join(quoted, `\s+`))
	}
	return "(?:" + strings.Join(parts, "|") + ")", nil
}

func literal(word string) (string, error) {
	if strings.ContainsAny(word, "|^$") {
		return "", fmt.Errorf("unexpected operator in %q", word)
	}
	return regexp.QuoteMeta(word), nil
}
