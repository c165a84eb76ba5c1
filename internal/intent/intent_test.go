package intent_test

import (
	"testing"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/intent"
)

func newMatcher(t *testing.T, opts ...intent.Option) *intent.Matcher {
	t.Helper()
	return intent.New(catalog.Default(), opts...)
}

func TestMatch_EveryExampleResolvesToItsIntent(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	for _, cmd := range catalog.Default().All() {
		for _, ex := range cmd.Examples {
			t.Run(string(cmd.ID)+"/"+ex, func(t *testing.T) {
				t.Parallel()
				formPresented := cmd.RequiresForm
				if got := m.Match(ex, formPresented); got != cmd.ID {
					t.Errorf("Match(%q, form=%v) = %s, want %s", ex, formPresented, got, cmd.ID)
				}
			})
		}
	}
}

func TestMatch_SubmitRequiresForm(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)

	tests := []struct {
		transcript string
		form       bool
		want       catalog.Intent
	}{
		{"submit the form", true, catalog.SubmitForm},
		{"submit the form", false, catalog.None},
		{"save form", false, catalog.None},
		{"submit", true, catalog.SubmitForm},
		{"submit", false, catalog.None},
		// Without a form the utterance falls through to the next entries.
		{"create truck", true, catalog.SubmitForm},
		{"create truck", false, catalog.AddTruck},
		{"register the lorry", false, catalog.None},
		{"register my lorry", true, catalog.AddTruck},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			if got := m.Match(tt.transcript, tt.form); got != tt.want {
				t.Errorf("Match(%q, form=%v) = %s, want %s", tt.transcript, tt.form, got, tt.want)
			}
		})
	}
}

func TestMatch_FirstPatternWins(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)

	tests := []struct {
		transcript string
		want       catalog.Intent
	}{
		{"Add my truck", catalog.AddTruck},
		{"please add a new lorry", catalog.AddTruck},
		{"request a shipment", catalog.AddDelivery},
		{"go to the main page", catalog.GoHome},
		{"home", catalog.GoHome},
		{"dashboard", catalog.GoDashboard},
		{"show me my trucks", catalog.MyLorries},
		{"open my shipments", catalog.MyDeliveries},
		{"view profile", catalog.GoProfile},
		{"switch to hindi", catalog.ChangeLanguage},
		{"how do i use this", catalog.Help},
		{"what are the voice commands", catalog.Help},
		{"", catalog.None},
		{"bake a cake", catalog.None},
	}
	for _, tt := range tests {
		if got := m.Match(tt.transcript, false); got != tt.want {
			t.Errorf("Match(%q) = %s, want %s", tt.transcript, got, tt.want)
		}
	}
}

func TestRank_ScoresMisheardTruck(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	ranked := m.Rank("ad my truk")
	if len(ranked) == 0 {
		t.Fatal("Rank returned no candidates")
	}
	top := ranked[0]
	if top.Command.ID != catalog.AddTruck {
		t.Fatalf("top = %s, want add_truck", top.Command.ID)
	}
	// substring "ad" in "add" (8) + truck/truk at distance 1 (10) +
	// whole-phrase distance 2 (12).
	if top.Score != 30 {
		t.Errorf("score = %d, want 30", top.Score)
	}
}

func TestRank_PrimaryPhraseDominates(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	ranked := m.Rank("i want to show my lorries maybe")
	if len(ranked) == 0 || ranked[0].Command.ID != catalog.MyLorries {
		t.Fatalf("Rank top = %v, want my_lorries", ranked)
	}
	if ranked[0].Score < 100 {
		t.Errorf("score = %d, want >= 100 for contained primary phrase", ranked[0].Score)
	}
}

func TestRank_SortedDescendingAndPositive(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	ranked := m.Rank("show delivery profile dashboard")
	for i, s := range ranked {
		if s.Score <= 0 {
			t.Errorf("ranked[%d] score %d <= 0", i, s.Score)
		}
		if i > 0 && ranked[i-1].Score < s.Score {
			t.Errorf("ranked[%d] score %d > ranked[%d] score %d", i, s.Score, i-1, ranked[i-1].Score)
		}
	}
}

func TestRank_KeywordRules(t *testing.T) {
	t.Parallel()

	cmd := catalog.Command{ID: catalog.GoHome, Primary: "zzzzzzzzzz alpha", Keywords: []string{"truck", "form"}, Patterns: []catalog.Pattern{catalog.MustCompilePattern("^ alpha $")}}
	c, err := catalog.New([]catalog.Command{cmd})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	m := intent.New(c)

	tests := []struct {
		transcript string
		want       int
	}{
		// contained (15) + substring pair (8) + distance 1 (10)
		{"trucks", 33},
		// contained (15) + substring pair (8) + distance 0 (15)
		{"truck", 38},
		// "for" is a stopword, so no pair rule fires, and "form" is not in
		// the transcript.
		{"for", 0},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			got := 0
			if ranked := m.Rank(tt.transcript); len(ranked) > 0 {
				got = ranked[0].Score
			}
			if got != tt.want {
				t.Errorf("Rank(%q) score = %d, want %d", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestRank_TiesKeepCatalogOrder(t *testing.T) {
	t.Parallel()

	alpha := catalog.Command{ID: catalog.GoHome, Primary: "zzzzzzzzzz alpha", Keywords: []string{"shared"}, Patterns: []catalog.Pattern{catalog.MustCompilePattern("^ alpha $")}}
	beta := catalog.Command{ID: catalog.GoProfile, Primary: "zzzzzzzzzz beta", Keywords: []string{"shared"}, Patterns: []catalog.Pattern{catalog.MustCompilePattern("^ beta $")}}
	c, err := catalog.New([]catalog.Command{alpha, beta})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	ranked := intent.New(c).Rank("shared")
	if len(ranked) != 2 {
		t.Fatalf("len(ranked) = %d, want 2", len(ranked))
	}
	if ranked[0].Score != ranked[1].Score {
		t.Fatalf("scores differ: %d vs %d", ranked[0].Score, ranked[1].Score)
	}
	if ranked[0].Command.ID != catalog.GoHome || ranked[1].Command.ID != catalog.GoProfile {
		t.Errorf("tie order = %s, %s; want go_home, go_profile", ranked[0].Command.ID, ranked[1].Command.ID)
	}
}

func TestRank_Empty(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	if got := m.Rank("   "); len(got) != 0 {
		t.Errorf("Rank(blank) = %v, want empty", got)
	}
	if got := m.Rank("xylophone quartz"); len(got) != 0 {
		t.Errorf("Rank(nonsense) = %v, want empty", got)
	}
}

func TestOverlap(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	addTruck, _ := catalog.Default().ByID(catalog.AddTruck)
	dashboard, _ := catalog.Default().ByID(catalog.GoDashboard)

	tests := []struct {
		transcript string
		cmd        catalog.Command
		want       float64
	}{
		{"ad my truk", addTruck, 1},
		{"add truck", addTruck, 2.0 / 3},
		{"add", addTruck, 1.0 / 3},
		{"add add add", addTruck, 1.0 / 3},
		{"dashboard settings please", dashboard, 1.0 / 3},
		{"", addTruck, 0},
	}
	for _, tt := range tests {
		if got := m.Overlap(tt.transcript, tt.cmd); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("Overlap(%q, %s) = %f, want %f", tt.transcript, tt.cmd.ID, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)

	tests := []struct {
		name        string
		transcript  string
		form        bool
		wantIntent  catalog.Intent
		wantOutcome intent.Outcome
		wantFirst   catalog.Intent
		fallback    bool
		needsForm   catalog.Intent
	}{
		{
			name:        "deterministic",
			transcript:  "add my truck",
			wantIntent:  catalog.AddTruck,
			wantOutcome: intent.OutcomeRecognized,
		},
		{
			name:        "auto-corrected above threshold",
			transcript:  "ad my truk",
			wantIntent:  catalog.AddTruck,
			wantOutcome: intent.OutcomeAutoCorrected,
		},
		{
			name:        "auto-corrected profile",
			transcript:  "go too profile",
			wantIntent:  catalog.GoProfile,
			wantOutcome: intent.OutcomeAutoCorrected,
		},
		{
			name:        "suggestions below threshold",
			transcript:  "dashboard settings please",
			wantIntent:  catalog.None,
			wantOutcome: intent.OutcomeUnrecognized,
			wantFirst:   catalog.GoDashboard,
		},
		{
			name:        "fallback when nothing scores",
			transcript:  "xylophone quartz",
			wantIntent:  catalog.None,
			wantOutcome: intent.OutcomeUnrecognized,
			wantFirst:   catalog.AddTruck,
			fallback:    true,
		},
		{
			name:        "submit without form never auto-executes",
			transcript:  "submit form",
			wantIntent:  catalog.None,
			wantOutcome: intent.OutcomeUnrecognized,
			wantFirst:   catalog.SubmitForm,
			needsForm:   catalog.SubmitForm,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := m.Resolve(tt.transcript, tt.form)
			if res.Intent != tt.wantIntent {
				t.Errorf("Intent = %s, want %s", res.Intent, tt.wantIntent)
			}
			if res.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.wantOutcome)
			}
			if res.NeedsForm != tt.needsForm {
				t.Errorf("NeedsForm = %s, want %s", res.NeedsForm, tt.needsForm)
			}
			if res.Fallback != tt.fallback {
				t.Errorf("Fallback = %v, want %v", res.Fallback, tt.fallback)
			}
			if tt.wantOutcome != intent.OutcomeUnrecognized {
				if len(res.Suggestions) != 0 {
					t.Errorf("Suggestions = %v, want none when executing", res.Suggestions)
				}
				return
			}
			if len(res.Suggestions) == 0 || len(res.Suggestions) > 3 {
				t.Fatalf("len(Suggestions) = %d, want 1..3", len(res.Suggestions))
			}
			if res.Suggestions[0].Command.ID != tt.wantFirst {
				t.Errorf("first suggestion = %s, want %s", res.Suggestions[0].Command.ID, tt.wantFirst)
			}
		})
	}
}

func TestResolve_ThresholdIsConfigurable(t *testing.T) {
	t.Parallel()

	s := intent.DefaultScoring()
	s.AutoCorrectRatio = 0.3
	m := newMatcher(t, intent.WithScoring(s))

	res := m.Resolve("dashboard settings please", false)
	if res.Outcome != intent.OutcomeAutoCorrected || res.Intent != catalog.GoDashboard {
		t.Errorf("Resolve with ratio 0.3 = (%s, %s), want auto-corrected go_dashboard", res.Outcome, res.Intent)
	}
	if m.Scoring().AutoCorrectRatio != 0.3 {
		t.Errorf("Scoring().AutoCorrectRatio = %g, want 0.3", m.Scoring().AutoCorrectRatio)
	}
}

func TestResolve_MaxSuggestions(t *testing.T) {
	t.Parallel()

	s := intent.DefaultScoring()
	s.MaxSuggestions = 1
	m := newMatcher(t, intent.WithScoring(s))

	res := m.Resolve("show delivery profile dashboard lorries", false)
	if res.Outcome != intent.OutcomeUnrecognized {
		t.Fatalf("Outcome = %s, want unrecognized", res.Outcome)
	}
	if len(res.Suggestions) != 1 {
		t.Errorf("len(Suggestions) = %d, want 1", len(res.Suggestions))
	}
}
