package dialogue

import (
	"fmt"
	"strings"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/intent"
)

// Message is one piece of feedback in both channels. An empty Spoken means
// nothing is said.
type Message struct {
	Visual string
	Spoken string
}

func same(text string) Message { return Message{Visual: text, Spoken: text} }

// unrecognizedMessage words the no-match reply. Both channels are built from
// the same primaries so they name the same commands.
func unrecognizedMessage(items []intent.Suggestion, fallback bool) Message {
	names := make([]string, 0, len(items))
	for _, s := range items {
		names = append(names, s.Command.Primary)
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}

	const visualPrefix = "I didn't recognize that command. "
	const spokenPrefix = "That command is not recognized. "
	switch {
	case fallback || len(names) == 0:
		return Message{
			Visual: visualPrefix + "Here are some common commands you can try: " +
				strings.Join(quoted, ", ") + `. Or say "Help" for all available commands.`,
			Spoken: spokenPrefix + "Here are some commands you can try: " +
				strings.Join(names, ", ") + ". Or say Help for all available commands.",
		}
	case len(names) == 1:
		return Message{
			Visual: visualPrefix + fmt.Sprintf("Did you mean %s? Try saying: %s", quoted[0], quoted[0]),
			Spoken: spokenPrefix + fmt.Sprintf("Did you mean %s? Try saying %s", names[0], names[0]),
		}
	default:
		return Message{
			Visual: visualPrefix + "Did you mean one of these? " + strings.Join(quoted, ", "),
			Spoken: spokenPrefix + "Did you mean " + strings.Join(names, ", or ") + "?",
		}
	}
}

// recognitionErrorMessage maps a recognizer error code to feedback.
func recognitionErrorMessage(code string) Message {
	switch code {
	case CodeNoSpeech:
		return Message{"No speech detected. Please try again.", "I didn't hear anything. Please try again."}
	case CodeAudioCapture:
		return Message{"No microphone found. Please check your microphone.", "No microphone found."}
	case CodeNotAllowed:
		return Message{"Microphone permission denied. Please allow microphone access.", "Microphone permission denied."}
	case CodeNetwork:
		return Message{"Network error. Please check your connection.", "Network error occurred."}
	case CodeAborted:
		return Message{Visual: "Voice recognition stopped."}
	default:
		return Message{"Voice recognition error. Please try again.", "An error occurred. Please try again."}
	}
}

func autoCorrectedMessage(primary string) Message {
	return Message{
		Visual: fmt.Sprintf("Auto-corrected to %q.", primary),
		Spoken: fmt.Sprintf("Auto-corrected to %s.", primary),
	}
}

// fillMessage reports a form fill of filled fields with missing required
// fields still empty.
func fillMessage(filled, missing int) Message {
	switch {
	case filled == 0:
		return same("Form opened. Please fill in the details.")
	case missing == 0:
		return Message{
			Visual: fmt.Sprintf(`Filled %d field(s). All required fields are filled. Say "submit form" to submit.`, filled),
			Spoken: fmt.Sprintf("Filled %d %s. All required fields are filled. Say submit form to submit.", filled, plural(filled, "field", "fields")),
		}
	default:
		return Message{
			Visual: fmt.Sprintf("Filled %d field(s). Please fill the remaining required fields.", filled),
			Spoken: fmt.Sprintf("Filled %d %s. Please fill the remaining required fields.", filled, plural(filled, "field", "fields")),
		}
	}
}

func cannotSubmitMessage(missing int) Message {
	return Message{
		Visual: fmt.Sprintf("Cannot submit: %d required field(s) are still empty.", missing),
		Spoken: fmt.Sprintf("Cannot submit. %d required %s still empty. Please fill them first.",
			missing, plural(missing, "field is", "fields are")),
	}
}

const confirmSubmitPrompt = "All required fields are filled. Do you want to submit the form now?"

var (
	submittingMessage  = Message{"Submitting form...", "Submitting form now."}
	cancelledMessage   = same("Submission cancelled. You can review and submit manually.")
	noFormMessage      = same("There is no form to submit on this page.")
	loginMessage       = same("Please log in to open your dashboard.")
	askLanguageMessage = same("Which language would you like? Say English, Hindi or Marathi.")
	wakeAckMessage     = Message{"Wake word detected. Listening...", "Yes?"}
	noDispatchMessage  = Message{Visual: "Command executed but no action defined"}
)

const listeningFeedback = "Listening..."

func languageChangedMessage(code string) Message {
	return same(fmt.Sprintf("Language changed to %s.", languageName(code)))
}

func languageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "hi":
		return "Hindi"
	case "mr":
		return "Marathi"
	}
	return code
}

// helpMessage lists up to three commands by name.
func helpMessage(cmds []catalog.Command) Message {
	names := make([]string, 0, 3)
	for _, c := range cmds {
		if len(names) == 3 {
			break
		}
		names = append(names, c.Primary)
	}
	text := "Here are some commands you can try: " + strings.Join(names, ", ") +
		", and more. Check the help window for all commands."
	return same(text)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
