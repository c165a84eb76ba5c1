package dialogue

// Session is the state of one client's dialogue. It is owned by a single
// [Controller] and only touched on its goroutine.
type Session struct {
	// ID keys the hand-off slot.
	ID string

	// Language is the last language the user switched to.
	Language string

	// Listening is set while a command capture holds the microphone.
	Listening bool

	// WakeEnabled reports whether the client wants wake-word activation.
	WakeEnabled bool

	// RearmPending is set while a wake-word re-arm is scheduled.
	RearmPending bool

	// CaptureHandled is set once the current capture produced a final
	// transcript, so a repeated final event is ignored.
	CaptureHandled bool
}

// NewSession returns an idle session.
func NewSession(id string, wakeEnabled bool) *Session {
	return &Session{ID: id, WakeEnabled: wakeEnabled}
}
