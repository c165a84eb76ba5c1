// Package dialogue drives the listen, interpret and act cycle of one voice
// client.
//
// A [Controller] owns a [Session] and talks to the client only through the
// collaborator interfaces declared here. All controller methods must be
// called from a single goroutine; [Loop] provides one, and collaborators
// that call back asynchronously ([Confirmer], [Scheduler]) must deliver
// their callbacks on it.
package dialogue

import (
	"time"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/intent"
	"github.com/MrWong99/haulvoice/internal/wakeword"
)

// Level is the severity of a visual feedback message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Form names known to the controller.
const (
	FormTruck    = "truck"
	FormDelivery = "delivery"
)

// Navigation targets.
const (
	RouteHome                 = "/"
	RouteAddTruck             = "/lorries/add"
	RouteAddDelivery          = "/deliveries/add"
	RouteTransporterDashboard = "/dashboard/transporter"
	RouteShipperDashboard     = "/dashboard/shipper"
	RouteMyLorries            = "/lorries/my"
	RouteMyDeliveries         = "/deliveries/my"
	RouteProfile              = "/profile"
)

// Speaker plays synthesized speech. A new utterance cancels any utterance
// that is still playing.
type Speaker interface {
	Speak(text string)
	Cancel()
}

// Display shows visual feedback.
type Display interface {
	Feedback(level Level, text string)
	Suggestions(items []intent.Suggestion, fallback bool)
	Help(cmds []catalog.Command)
}

// Forms exposes the forms on the client's current page. SetField reports
// false and does nothing when the field does not exist.
type Forms interface {
	Presented(form string) bool
	EmptyRequired(form string) []string
	SetField(form, field, value string) bool
	Submit(form string)
}

// Navigator moves the client to another page.
type Navigator interface {
	Navigate(path string)
}

// Confirmer asks the user a yes/no question. done is called exactly once,
// on the controller's goroutine.
type Confirmer interface {
	Confirm(prompt string, done func(ok bool))
}

// Microphone switches the single microphone between the wake-word stream
// and a command capture. Starting one stream replaces the other.
type Microphone interface {
	StartWake()
	StartCapture()
	Stop()
}

// Preferences holds per-user settings owned by the client.
type Preferences interface {
	Role() string
	SetLanguage(code string)
}

// Scheduler runs f after d on the controller's goroutine. The returned
// function cancels the call if it has not run yet.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// Stream identifies which recognizer produced an event.
type Stream string

const (
	StreamWake    Stream = "wake"
	StreamCommand Stream = "command"
)

// EventKind is the kind of a recognition event.
type EventKind string

const (
	EventStart   EventKind = "start"
	EventPartial EventKind = "partial"
	EventFinal   EventKind = "final"
	EventError   EventKind = "error"
	EventEnd     EventKind = "end"
)

// Recognition error codes reported by clients.
const (
	CodeNoSpeech     = "no-speech"
	CodeAudioCapture = "audio-capture"
	CodeNotAllowed   = "not-allowed"
	CodeNetwork      = "network"
	CodeAborted      = "aborted"
)

// Event is one callback from a speech recognizer.
type Event struct {
	Stream Stream
	Kind   EventKind
	Text   string
	Code   string
}

// Config tunes controller timing and behaviour.
type Config struct {
	// SpokenFeedback enables the Speaker. Visual feedback is always shown.
	SpokenFeedback bool

	// SuggestionDelay is how long after an unrecognized command the detailed
	// suggestion list is shown.
	SuggestionDelay time.Duration

	// Cooldown is the pause between the end of a command capture and
	// re-arming the wake word.
	Cooldown time.Duration

	// AckDelay is the pause between acknowledging the wake word and starting
	// the command capture, so the acknowledgement is not captured.
	AckDelay time.Duration

	WakeWord wakeword.Config
}

// DefaultConfig returns the built-in timings.
func DefaultConfig() Config {
	return Config{
		SpokenFeedback:  true,
		SuggestionDelay: 2 * time.Second,
		Cooldown:        time.Second,
		AckDelay:        600 * time.Millisecond,
		WakeWord:        wakeword.DefaultConfig(),
	}
}
