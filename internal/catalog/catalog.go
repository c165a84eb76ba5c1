// Package catalog is the static registry of voice commands the interpreter
// understands. Each [Command] carries its canonical phrase, synonyms,
// keywords for fuzzy scoring, usage examples and the ordered pattern rules
// that recognize it deterministically.
//
// Adding a command means adding one entry to [Default] and, when it drives an
// action, one dispatch case in the dialogue controller.
package catalog

import (
	"errors"
	"fmt"
)

// Intent identifies a catalog entry. The zero value [None] means no match.
type Intent string

const (
	None           Intent = ""
	SubmitForm     Intent = "submit_form"
	AddTruck       Intent = "add_truck"
	AddDelivery    Intent = "add_delivery"
	GoHome         Intent = "go_home"
	GoDashboard    Intent = "go_dashboard"
	MyLorries      Intent = "my_lorries"
	MyDeliveries   Intent = "my_deliveries"
	GoProfile      Intent = "go_profile"
	ChangeLanguage Intent = "change_language"
	Help           Intent = "help"
)

var validIntents = map[Intent]bool{
	SubmitForm:     true,
	AddTruck:       true,
	AddDelivery:    true,
	GoHome:         true,
	GoDashboard:    true,
	MyLorries:      true,
	MyDeliveries:   true,
	GoProfile:      true,
	ChangeLanguage: true,
	Help:           true,
}

// IsValid reports whether i is one of the known intents. [None] is not valid.
func (i Intent) IsValid() bool { return validIntents[i] }

// String returns the intent identifier, or "none" for [None].
func (i Intent) String() string {
	if i == None {
		return "none"
	}
	return string(i)
}

// ErrDuplicateIntent is returned by [New] when two entries share an intent.
var ErrDuplicateIntent = errors.New("catalog: duplicate intent")

// Command is one supported voice command.
type Command struct {
	ID           Intent
	Primary      string
	Alternatives []string
	Keywords     []string
	Examples     []string
	Description  string
	Patterns     []Pattern

	// RequiresForm gates deterministic matching on a submittable form being
	// presented. When false at match time, the entry is skipped.
	RequiresForm bool
}

// Phrases returns the primary phrase followed by the alternatives.
func (c Command) Phrases() []string {
	out := make([]string, 0, len(c.Alternatives)+1)
	out = append(out, c.Primary)
	return append(out, c.Alternatives...)
}

// Catalog is an ordered, read-only set of commands.
type Catalog struct {
	commands []Command
	index    map[Intent]int
	common   []Intent
}

// New validates cmds and builds a catalog preserving their order.
func New(cmds []Command, common ...Intent) (*Catalog, error) {
	c := &Catalog{
		commands: make([]Command, 0, len(cmds)),
		index:    make(map[Intent]int, len(cmds)),
	}
	var errs []error
	for i, cmd := range cmds {
		if !cmd.ID.IsValid() {
			errs = append(errs, fmt.Errorf("catalog: entry %d: unknown intent %q", i, cmd.ID))
			continue
		}
		if _, dup := c.index[cmd.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateIntent, cmd.ID))
			continue
		}
		if cmd.Primary == "" {
			errs = append(errs, fmt.Errorf("catalog: %s: primary phrase is required", cmd.ID))
		}
		if len(cmd.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("catalog: %s: at least one pattern is required", cmd.ID))
		}
		c.index[cmd.ID] = len(c.commands)
		c.commands = append(c.commands, cmd)
	}
	for _, id := range common {
		if _, ok := c.index[id]; !ok {
			errs = append(errs, fmt.Errorf("catalog: common command %q is not in the catalog", id))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	c.common = common
	return c, nil
}

// All returns the commands in declaration order. The slice is a copy.
func (c *Catalog) All() []Command {
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// ByID returns the command for id.
func (c *Catalog) ByID(id Intent) (Command, bool) {
	i, ok := c.index[id]
	if !ok {
		return Command{}, false
	}
	return c.commands[i], true
}

// Common returns the fallback commands offered when nothing else fits.
func (c *Catalog) Common() []Command {
	out := make([]Command, 0, len(c.common))
	for _, id := range c.common {
		out = append(out, c.commands[c.index[id]])
	}
	return out
}

// Len returns the number of commands.
func (c *Catalog) Len() int { return len(c.commands) }

// Info is the client-facing description of a command.
type Info struct {
	Intent       Intent   `json:"intent"`
	Phrase       string   `json:"phrase"`
	Alternatives []string `json:"alternatives,omitempty"`
	Examples     []string `json:"examples,omitempty"`
	Description  string   `json:"description"`
	RequiresForm bool     `json:"requires_form,omitempty"`
}

// Info returns c's client-facing description.
func (c Command) Info() Info {
	return Info{
		Intent:       c.ID,
		Phrase:       c.Primary,
		Alternatives: c.Alternatives,
		Examples:     c.Examples,
		Description:  c.Description,
		RequiresForm: c.RequiresForm,
	}
}

// Infos returns the descriptions of cmds in order.
func Infos(cmds []Command) []Info {
	out := make([]Info, len(cmds))
	for i, c := range cmds {
		out[i] = c.Info()
	}
	return out
}
