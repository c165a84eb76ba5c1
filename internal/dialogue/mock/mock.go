// Package mock provides recording implementations of the dialogue
// collaborators for use in unit tests.
//
// [Client] implements every client-facing collaborator and records each call.
// [Scheduler] holds timers until the test fires them. Both are safe for
// concurrent use.
//
// Example:
//
//	client := mock.NewClient()
//	client.AddForm("truck", "vehicleNumber", "capacity")
//	sched := &mock.Scheduler{}
//	c := dialogue.New(sess, matcher, extractor, client.Collaborators(sched, store))
package mock

import (
	"sort"
	"sync"
	"time"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/dialogue"
	"github.com/MrWong99/haulvoice/internal/handoff"
	"github.com/MrWong99/haulvoice/internal/intent"
)

// Compile-time interface assertions.
var (
	_ dialogue.Speaker     = (*Client)(nil)
	_ dialogue.Display     = (*Client)(nil)
	_ dialogue.Forms       = (*Client)(nil)
	_ dialogue.Navigator   = (*Client)(nil)
	_ dialogue.Confirmer   = (*Client)(nil)
	_ dialogue.Microphone  = (*Client)(nil)
	_ dialogue.Preferences = (*Client)(nil)
	_ dialogue.Scheduler   = (*Scheduler)(nil)
)

// FeedbackCall records one [Client.Feedback] call.
type FeedbackCall struct {
	Level dialogue.Level
	Text  string
}

// SuggestionsCall records one [Client.Suggestions] call.
type SuggestionsCall struct {
	Items    []intent.Suggestion
	Fallback bool
}

// FillCall records one successful [Client.SetField] call.
type FillCall struct {
	Form, Field, Value string
}

// Form is a form on the simulated page.
type Form struct {
	// Values holds the current value of every input.
	Values map[string]string
	// Required lists the inputs that must be non-empty to submit.
	Required []string
}

// Client is a simulated browser page.
type Client struct {
	mu sync.Mutex

	// RoleValue is returned by Role.
	RoleValue string

	forms   map[string]*Form
	pending []func(bool)

	Spoken      []string
	Cancels     int
	Feedbacks   []FeedbackCall
	Suggested   []SuggestionsCall
	HelpCalls   [][]catalog.Command
	Navigations []string
	Fills       []FillCall
	Submits     []string
	Prompts     []string
	MicActions  []string
	Languages   []string
}

// NewClient returns a client with no forms on the page.
func NewClient() *Client {
	return &Client{forms: make(map[string]*Form)}
}

// AddForm places a form with the given required inputs on the page. Every
// input starts empty.
func (c *Client) AddForm(name string, required ...string) *Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := &Form{Values: make(map[string]string), Required: required}
	for _, r := range required {
		f.Values[r] = ""
	}
	c.forms[name] = f
	return f
}

// AddInput adds an optional input to an existing form.
func (c *Client) AddInput(form, field string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.forms[form]; ok {
		f.Values[field] = ""
	}
}

// ClearForms simulates navigating to a page without forms.
func (c *Client) ClearForms() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forms = make(map[string]*Form)
}

// Value returns the current value of an input.
func (c *Client) Value(form, field string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.forms[form]; ok {
		return f.Values[field]
	}
	return ""
}

// Collaborators wires the client, sched and store into a
// [dialogue.Collaborators].
func (c *Client) Collaborators(sched dialogue.Scheduler, store handoff.Store) dialogue.Collaborators {
	return dialogue.Collaborators{
		Speaker:     c,
		Display:     c,
		Forms:       c,
		Navigator:   c,
		Confirmer:   c,
		Microphone:  c,
		Preferences: c,
		Scheduler:   sched,
		Handoff:     store,
	}
}

// Speak implements [dialogue.Speaker].
func (c *Client) Speak(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Spoken = append(c.Spoken, text)
}

// Cancel implements [dialogue.Speaker].
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Cancels++
}

// Feedback implements [dialogue.Display].
func (c *Client) Feedback(level dialogue.Level, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Feedbacks = append(c.Feedbacks, FeedbackCall{Level: level, Text: text})
}

// Suggestions implements [dialogue.Display].
func (c *Client) Suggestions(items []intent.Suggestion, fallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Suggested = append(c.Suggested, SuggestionsCall{Items: items, Fallback: fallback})
}

// Help implements [dialogue.Display].
func (c *Client) Help(cmds []catalog.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HelpCalls = append(c.HelpCalls, cmds)
}

// Presented implements [dialogue.Forms].
func (c *Client) Presented(form string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.forms[form]
	return ok
}

// EmptyRequired implements [dialogue.Forms].
func (c *Client) EmptyRequired(form string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.forms[form]
	if !ok {
		return nil
	}
	var out []string
	for _, r := range f.Required {
		if f.Values[r] == "" {
			out = append(out, r)
		}
	}
	return out
}

// SetField implements [dialogue.Forms].
func (c *Client) SetField(form, field, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.forms[form]
	if !ok {
		return false
	}
	if _, ok := f.Values[field]; !ok {
		return false
	}
	f.Values[field] = value
	c.Fills = append(c.Fills, FillCall{Form: form, Field: field, Value: value})
	return true
}

// Submit implements [dialogue.Forms].
func (c *Client) Submit(form string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Submits = append(c.Submits, form)
}

// Navigate implements [dialogue.Navigator].
func (c *Client) Navigate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Navigations = append(c.Navigations, path)
}

// Confirm implements [dialogue.Confirmer]. The callback is held until
// [Client.Answer] is called.
func (c *Client) Confirm(prompt string, done func(ok bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, prompt)
	c.pending = append(c.pending, done)
}

// Answer resolves the oldest pending confirmation. It reports false when
// none is pending.
func (c *Client) Answer(ok bool) bool {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return false
	}
	done := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()
	done(ok)
	return true
}

// StartWake implements [dialogue.Microphone].
func (c *Client) StartWake() { c.mic("wake") }

// StartCapture implements [dialogue.Microphone].
func (c *Client) StartCapture() { c.mic("capture") }

// Stop implements [dialogue.Microphone].
func (c *Client) Stop() { c.mic("stop") }

func (c *Client) mic(action string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MicActions = append(c.MicActions, action)
}

// Role implements [dialogue.Preferences].
func (c *Client) Role() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.RoleValue
}

// SetLanguage implements [dialogue.Preferences].
func (c *Client) SetLanguage(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Languages = append(c.Languages, code)
}

// Count returns how many times action appears in MicActions.
func (c *Client) Count(action string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, a := range c.MicActions {
		if a == action {
			n++
		}
	}
	return n
}

// LastFeedback returns the most recent feedback, or the zero value.
func (c *Client) LastFeedback() FeedbackCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Feedbacks) == 0 {
		return FeedbackCall{}
	}
	return c.Feedbacks[len(c.Feedbacks)-1]
}

// LastSpoken returns the most recent utterance, or "".
func (c *Client) LastSpoken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Spoken) == 0 {
		return ""
	}
	return c.Spoken[len(c.Spoken)-1]
}

type timer struct {
	seq       int
	delay     time.Duration
	f         func()
	cancelled bool
}

// Scheduler is a manual [dialogue.Scheduler]. Timers only run when the test
// calls [Scheduler.Fire].
type Scheduler struct {
	mu     sync.Mutex
	seq    int
	timers []*timer
}

// AfterFunc implements [dialogue.Scheduler].
func (s *Scheduler) AfterFunc(d time.Duration, f func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &timer{seq: s.seq, delay: d, f: f}
	s.timers = append(s.timers, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
	}
}

// Pending returns the number of timers that have neither fired nor been
// cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Delays returns the delays of the pending timers in firing order.
func (s *Scheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.ordered() {
		out = append(out, t.delay)
	}
	return out
}

// Fire runs every pending timer, shortest delay first, and returns how many
// ran. Timers scheduled by the callbacks stay pending; timers cancelled by
// an earlier callback are skipped.
func (s *Scheduler) Fire() int {
	s.mu.Lock()
	due := s.ordered()
	s.timers = nil
	s.mu.Unlock()

	n := 0
	for _, t := range due {
		s.mu.Lock()
		skip := t.cancelled
		s.mu.Unlock()
		if skip {
			continue
		}
		t.f()
		n++
	}
	return n
}

func (s *Scheduler) ordered() []*timer {
	var out []*timer
	for _, t := range s.timers {
		if !t.cancelled {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].delay != out[j].delay {
			return out[i].delay < out[j].delay
		}
		return out[i].seq < out[j].seq
	})
	return out
}
