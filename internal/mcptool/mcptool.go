// Package mcptool publishes the voice command interpreter as Model Context
// Protocol tools, so assistants and test harnesses can resolve transcripts
// without a browser session.
//
// Two tools are registered:
//   - "interpret_voice_command": resolves one transcript to an intent,
//     entities and suggestions.
//   - "list_voice_commands": returns the command catalog.
package mcptool

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/dialogue"
	"github.com/MrWong99/haulvoice/internal/observe"
	"github.com/MrWong99/haulvoice/internal/server"
)

const (
	InterpretToolName = "interpret_voice_command"
	ListToolName      = "list_voice_commands"
)

// TuningSource yields the interpreter tuning to use for a call.
// [server.Server] implements it.
type TuningSource interface {
	Tuning() server.Tuning
}

// InterpretInput is the argument of the interpret tool.
type InterpretInput struct {
	Transcript    string `json:"transcript" jsonschema:"the recognized text of the spoken command"`
	FormPresented bool   `json:"form_presented,omitempty" jsonschema:"whether a truck or delivery form is on the current page"`
}

// InterpretOutput is the structured result of the interpret tool.
type InterpretOutput struct {
	Transcript  string                  `json:"transcript"`
	Intent      string                  `json:"intent"`
	Outcome     string                  `json:"outcome"`
	Confidence  float64                 `json:"confidence"`
	Entities    map[string]string       `json:"entities,omitempty"`
	Suggestions []server.SuggestionItem `json:"suggestions,omitempty"`
	Fallback    bool                    `json:"fallback,omitempty"`
	NeedsForm   string                  `json:"needs_form,omitempty"`
}

// ListInput is the (empty) argument of the list tool.
type ListInput struct{}

// ListOutput is the structured result of the list tool.
type ListOutput struct {
	Commands []catalog.Info `json:"commands"`
}

// Option configures the tool set.
type Option func(*tools)

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(t *tools) { t.metrics = m }
}

type tools struct {
	src     TuningSource
	metrics *observe.Metrics
}

// NewServer returns an MCP server exposing the interpreter tools.
func NewServer(src TuningSource, version string, opts ...Option) *mcp.Server {
	t := &tools{src: src}
	for _, o := range opts {
		o(t)
	}
	if t.metrics == nil {
		t.metrics = observe.DefaultMetrics()
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "haulvoice", Version: version}, nil)
	mcp.AddTool(s, &mcp.Tool{
		Name:        InterpretToolName,
		Description: "Interpret a spoken T2YD marketplace command: returns the matched intent, how it was matched, extracted form entities and, when unrecognized, suggested commands.",
	}, t.interpret)
	mcp.AddTool(s, &mcp.Tool{
		Name:        ListToolName,
		Description: "List every supported voice command with its phrase, alternatives, examples and description.",
	}, t.list)
	return s
}

// Handler serves s over the streamable HTTP transport.
func Handler(s *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s }, nil)
}

func (t *tools) interpret(ctx context.Context, _ *mcp.CallToolRequest, in InterpretInput) (*mcp.CallToolResult, InterpretOutput, error) {
	if strings.TrimSpace(in.Transcript) == "" {
		return nil, InterpretOutput{}, errors.New("transcript is required")
	}
	ctx, span := observe.StartInterpret(ctx, observe.SurfaceMCP, "")
	tu := t.src.Tuning()
	start := time.Now()
	res := dialogue.Interpret(tu.Matcher, tu.Extractor, in.Transcript, in.FormPresented)
	t.metrics.InterpretDuration.Record(ctx, time.Since(start).Seconds())
	t.metrics.RecordUtterance(ctx, string(res.Outcome), res.Intent.String())
	observe.EndInterpret(span, res.Intent.String(), string(res.Outcome), res.Confidence)

	out := InterpretOutput{
		Transcript:  res.Transcript,
		Intent:      string(res.Intent),
		Outcome:     string(res.Outcome),
		Confidence:  res.Confidence,
		Suggestions: server.SuggestionItems(res.Suggestions),
		Fallback:    res.Fallback,
		NeedsForm:   string(res.NeedsForm),
	}
	if f := res.Entities.Fields(); len(f) > 0 {
		out.Entities = f
	}
	return nil, out, nil
}

func (t *tools) list(_ context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	return nil, ListOutput{Commands: catalog.Infos(t.src.Tuning().Matcher.Catalog().All())}, nil
}
