package server

import (
	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/intent"
)

// Client → server message types.
const (
	msgHello          = "hello"
	msgPage           = "page"
	msgStartListening = "start_listening"
	msgStopListening  = "stop_listening"
	msgRecognition    = "recognition"
	msgConfirmResult  = "confirm_result"
	msgWakeWord       = "wake_word"
)

// Server → client message types.
const (
	msgWelcome      = "welcome"
	msgSpeak        = "speak"
	msgCancelSpeech = "cancel_speech"
	msgFeedback     = "feedback"
	msgSuggestions  = "suggestions"
	msgHelp         = "help"
	msgNavigate     = "navigate"
	msgFill         = "fill"
	msgSubmit       = "submit"
	msgConfirm      = "confirm"
	msgMic          = "mic"
	msgLanguage     = "language"
	msgError        = "error"
)

// FormState is the client's report of one form on its current page.
type FormState struct {
	// Fields maps every input name to its current value. Inputs that are
	// not listed cannot be filled.
	Fields   map[string]string `json:"fields"`
	Required []string          `json:"required,omitempty"`
}

// inbound is any client → server frame. Only the fields relevant to Type
// are set.
type inbound struct {
	Type string `json:"type"`

	// hello, page
	SessionID string               `json:"session_id,omitempty"`
	Page      string               `json:"page,omitempty"`
	Role      string               `json:"role,omitempty"`
	Language  string               `json:"language,omitempty"`
	WakeWord  *bool                `json:"wake_word,omitempty"`
	Forms     map[string]FormState `json:"forms,omitempty"`

	// recognition
	Stream string `json:"stream,omitempty"`
	Event  string `json:"event,omitempty"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`

	// confirm_result
	ID string `json:"id,omitempty"`
	OK bool   `json:"ok,omitempty"`

	// wake_word
	Enabled bool `json:"enabled,omitempty"`
}

// outbound is any server → client frame.
type outbound struct {
	Type string `json:"type"`

	SessionID string           `json:"session_id,omitempty"`
	Text      string           `json:"text,omitempty"`
	Level     string           `json:"level,omitempty"`
	Message   string           `json:"message,omitempty"`
	Items     []SuggestionItem `json:"items,omitempty"`
	Fallback  bool             `json:"fallback,omitempty"`
	Commands  []catalog.Info   `json:"commands,omitempty"`
	Path      string           `json:"path,omitempty"`
	Form      string           `json:"form,omitempty"`
	Field     string           `json:"field,omitempty"`
	Value     string           `json:"value,omitempty"`
	ID        string           `json:"id,omitempty"`
	Prompt    string           `json:"prompt,omitempty"`
	Action    string           `json:"action,omitempty"`
	Code      string           `json:"code,omitempty"`
}

// SuggestionItem is one suggested command as sent to clients.
type SuggestionItem struct {
	Intent      catalog.Intent `json:"intent"`
	Phrase      string         `json:"phrase"`
	Description string         `json:"description,omitempty"`
	Example     string         `json:"example,omitempty"`
	Score       int            `json:"score,omitempty"`
}

// SuggestionItems converts ranked suggestions for the wire.
func SuggestionItems(in []intent.Suggestion) []SuggestionItem {
	if len(in) == 0 {
		return nil
	}
	out := make([]SuggestionItem, len(in))
	for i, s := range in {
		item := SuggestionItem{
			Intent:      s.Command.ID,
			Phrase:      s.Command.Primary,
			Description: s.Command.Description,
			Score:       s.Score,
		}
		if len(s.Command.Examples) > 0 {
			item.Example = s.Command.Examples[0]
		}
		out[i] = item
	}
	return out
}
