package dialogue

import (
	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/entities"
	"github.com/MrWong99/haulvoice/internal/intent"
	"github.com/MrWong99/haulvoice/internal/transcript/fuzzy"
)

// Result describes how one transcript was interpreted.
type Result struct {
	Transcript  string              `json:"transcript"`
	Intent      catalog.Intent      `json:"intent"`
	Outcome     intent.Outcome      `json:"outcome"`
	Confidence  float64             `json:"confidence"`
	Entities    entities.Bag        `json:"entities"`
	Suggestions []intent.Suggestion `json:"-"`
	Fallback    bool                `json:"fallback,omitempty"`

	// NeedsForm is set when the best guess needs a form that is not on
	// the page.
	NeedsForm catalog.Intent `json:"needs_form,omitempty"`
}

// Interpret resolves transcript without side effects. It is the pure part of
// [Controller.Process] and is shared with the stateless HTTP and MCP
// surfaces.
func Interpret(m *intent.Matcher, x *entities.Extractor, transcript string, formPresented bool) Result {
	t := fuzzy.Normalize(transcript)
	res := m.Resolve(t, formPresented)
	return Result{
		Transcript:  t,
		Intent:      res.Intent,
		Outcome:     res.Outcome,
		Confidence:  res.Confidence,
		Entities:    x.Extract(t, res.Intent),
		Suggestions: res.Suggestions,
		Fallback:    res.Fallback,
		NeedsForm:   res.NeedsForm,
	}
}
