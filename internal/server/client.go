package server

import (
	"context"
	"slices"
	"strconv"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/dialogue"
	"github.com/MrWong99/haulvoice/internal/handoff"
	"github.com/MrWong99/haulvoice/internal/intent"
)

// client adapts one websocket connection to the dialogue collaborators.
// Every method runs on the connection's [dialogue.Loop]; outgoing frames
// are queued for the writer goroutine.
type client struct {
	ctx  context.Context
	out  chan<- outbound
	page string
	role string
	lang string

	forms map[string]*FormState

	nextConfirm int
	confirms    map[string]func(bool)
}

var (
	_ dialogue.Speaker     = (*client)(nil)
	_ dialogue.Display     = (*client)(nil)
	_ dialogue.Forms       = (*client)(nil)
	_ dialogue.Navigator   = (*client)(nil)
	_ dialogue.Confirmer   = (*client)(nil)
	_ dialogue.Microphone  = (*client)(nil)
	_ dialogue.Preferences = (*client)(nil)
)

func newClient(ctx context.Context, out chan<- outbound) *client {
	return &client{
		ctx:      ctx,
		out:      out,
		forms:    make(map[string]*FormState),
		confirms: make(map[string]func(bool)),
	}
}

func (c *client) collaborators(sched dialogue.Scheduler, store handoff.Store) dialogue.Collaborators {
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

// setPage replaces the page mirror. Confirmations asked on the previous page
// are answered with no.
func (c *client) setPage(page string, forms map[string]FormState) {
	c.page = page
	c.forms = make(map[string]*FormState, len(forms))
	for name, f := range forms {
		fields := make(map[string]string, len(f.Fields))
		for k, v := range f.Fields {
			fields[k] = v
		}
		c.forms[name] = &FormState{Fields: fields, Required: slices.Clone(f.Required)}
	}
	for id, done := range c.confirms {
		delete(c.confirms, id)
		done(false)
	}
}

func (c *client) send(m outbound) {
	select {
	case c.out <- m:
	case <-c.ctx.Done():
	}
}

// Speak implements [dialogue.Speaker].
func (c *client) Speak(text string) { c.send(outbound{Type: msgSpeak, Text: text}) }

// Cancel implements [dialogue.Speaker].
func (c *client) Cancel() { c.send(outbound{Type: msgCancelSpeech}) }

// Feedback implements [dialogue.Display].
func (c *client) Feedback(level dialogue.Level, text string) {
	c.send(outbound{Type: msgFeedback, Level: string(level), Message: text})
}

// Suggestions implements [dialogue.Display].
func (c *client) Suggestions(items []intent.Suggestion, fallback bool) {
	c.send(outbound{Type: msgSuggestions, Items: SuggestionItems(items), Fallback: fallback})
}

// Help implements [dialogue.Display].
func (c *client) Help(cmds []catalog.Command) {
	c.send(outbound{Type: msgHelp, Commands: catalog.Infos(cmds)})
}

// Presented implements [dialogue.Forms].
func (c *client) Presented(form string) bool {
	_, ok := c.forms[form]
	return ok
}

// EmptyRequired implements [dialogue.Forms].
func (c *client) EmptyRequired(form string) []string {
	f, ok := c.forms[form]
	if !ok {
		return nil
	}
	var out []string
	for _, name := range f.Required {
		if f.Fields[name] == "" {
			out = append(out, name)
		}
	}
	return out
}

// SetField implements [dialogue.Forms]. The mirror is updated immediately
// so a following EmptyRequired sees the new value.
func (c *client) SetField(form, field, value string) bool {
	f, ok := c.forms[form]
	if !ok {
		return false
	}
	if _, ok := f.Fields[field]; !ok {
		return false
	}
	f.Fields[field] = value
	c.send(outbound{Type: msgFill, Form: form, Field: field, Value: value})
	return true
}

// Submit implements [dialogue.Forms].
func (c *client) Submit(form string) { c.send(outbound{Type: msgSubmit, Form: form}) }

// Navigate implements [dialogue.Navigator].
func (c *client) Navigate(path string) { c.send(outbound{Type: msgNavigate, Path: path}) }

// Confirm implements [dialogue.Confirmer]. The answer arrives as a
// confirm_result frame and is resolved by [client.resolve].
func (c *client) Confirm(prompt string, done func(ok bool)) {
	c.nextConfirm++
	id := "c" + strconv.Itoa(c.nextConfirm)
	c.confirms[id] = done
	c.send(outbound{Type: msgConfirm, ID: id, Prompt: prompt})
}

// resolve answers a pending confirmation. Unknown or repeated IDs are
// ignored.
func (c *client) resolve(id string, ok bool) bool {
	done, found := c.confirms[id]
	if !found {
		return false
	}
	delete(c.confirms, id)
	done(ok)
	return true
}

// StartWake implements [dialogue.Microphone].
func (c *client) StartWake() { c.send(outbound{Type: msgMic, Action: "wake"}) }

// StartCapture implements [dialogue.Microphone].
func (c *client) StartCapture() { c.send(outbound{Type: msgMic, Action: "capture"}) }

// Stop implements [dialogue.Microphone].
func (c *client) Stop() { c.send(outbound{Type: msgMic, Action: "stop"}) }

// Role implements [dialogue.Preferences].
func (c *client) Role() string { return c.role }

// SetLanguage implements [dialogue.Preferences].
func (c *client) SetLanguage(code string) {
	c.lang = code
	c.send(outbound{Type: msgLanguage, Code: code})
}
