package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/haulvoice/internal/cmdlog"
	"github.com/MrWong99/haulvoice/internal/entities"
	"github.com/MrWong99/haulvoice/internal/handoff"
	"github.com/MrWong99/haulvoice/internal/intent"
	"github.com/MrWong99/haulvoice/internal/observe"
	"github.com/MrWong99/haulvoice/internal/wakeword"
)

// Collaborators bundles the client-side capabilities a [Controller] drives.
// Handoff may be nil, in which case commands that need another page just
// navigate there.
type Collaborators struct {
	Speaker     Speaker
	Display     Display
	Forms       Forms
	Navigator   Navigator
	Confirmer   Confirmer
	Microphone  Microphone
	Preferences Preferences
	Scheduler   Scheduler
	Handoff     handoff.Store
}

// Option configures a [Controller].
type Option func(*Controller)

// WithConfig replaces [DefaultConfig].
func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithRecorder sets where interpreted utterances are logged.
func WithRecorder(r cmdlog.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock overrides the clock used for hand-off timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller runs the dialogue of one client. It is not safe for concurrent
// use; see the package documentation.
type Controller struct {
	session   *Session
	cfg       Config
	matcher   *intent.Matcher
	extractor *entities.Extractor
	collab    Collaborators
	wake      *wakeword.Detector
	metrics   *observe.Metrics
	recorder  cmdlog.Recorder
	now       func() time.Time

	// held collects utterances while holding is set. Speak replaces the
	// current utterance, so a turn that says several things says them once.
	held    []string
	holding bool

	cancelRearm   func()
	cancelAck     func()
	cancelSuggest func()
}

// New returns a controller for sess.
func New(sess *Session, m *intent.Matcher, x *entities.Extractor, collab Collaborators, opts ...Option) *Controller {
	c := &Controller{
		session:   sess,
		cfg:       DefaultConfig(),
		matcher:   m,
		extractor: x,
		collab:    collab,
		recorder:  cmdlog.Nop{},
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	c.wake = wakeword.New(c.cfg.WakeWord)
	c.wake.Suspend()
	return c
}

// Session returns the controller's session.
func (c *Controller) Session() *Session { return c.session }

// WakeState returns the wake-word detector state.
func (c *Controller) WakeState() wakeword.State { return c.wake.State() }

// Init arms the wake word when enabled and applies any pending hand-off for
// the page the client has just loaded.
func (c *Controller) Init(ctx context.Context) {
	if c.session.WakeEnabled {
		c.armWake()
	}
	c.PageLoaded(ctx)
}

// SetWakeEnabled toggles wake-word activation.
func (c *Controller) SetWakeEnabled(enabled bool) {
	if c.session.WakeEnabled == enabled {
		return
	}
	c.session.WakeEnabled = enabled
	if enabled {
		c.armWake()
		return
	}
	c.cancel(&c.cancelRearm)
	c.session.RearmPending = false
	if c.wake.Wanted() {
		c.wake.Suspend()
		if !c.session.Listening {
			c.collab.Microphone.Stop()
		}
	}
}

// StartListening begins a command capture. It is a no-op while a capture is
// already running.
func (c *Controller) StartListening() {
	if c.session.Listening {
		return
	}
	c.cancel(&c.cancelAck)
	c.cancel(&c.cancelRearm)
	c.session.RearmPending = false

	if c.wake.Wanted() {
		c.wake.Suspend()
		c.collab.Microphone.Stop()
	}
	c.session.Listening = true
	c.session.CaptureHandled = false
	c.collab.Microphone.StartCapture()
	c.collab.Display.Feedback(LevelInfo, listeningFeedback)
}

// StopListening ends the current capture. Repeated calls are harmless and
// schedule at most one wake-word re-arm.
func (c *Controller) StopListening() {
	if c.cancelAck != nil {
		c.cancel(&c.cancelAck)
		c.scheduleRearm()
		return
	}
	if !c.session.Listening {
		return
	}
	c.collab.Microphone.Stop()
	c.collab.Speaker.Cancel()
	c.finishCapture()
}

// HandleRecognition applies one recognizer callback.
func (c *Controller) HandleRecognition(ctx context.Context, ev Event) {
	switch ev.Stream {
	case StreamWake:
		c.handleWake(ctx, ev)
	case StreamCommand:
		c.handleCommand(ctx, ev)
	default:
		slog.Warn("dialogue: unknown recognition stream", "session_id", c.session.ID, "stream", ev.Stream)
	}
}

func (c *Controller) handleWake(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventPartial, EventFinal:
		method, ok := c.wake.Feed(ev.Text)
		if !ok {
			return
		}
		slog.Debug("dialogue: wake word detected", "session_id", c.session.ID, "method", method)
		c.metrics.RecordWakeDetection(ctx, string(method))
		c.collab.Microphone.Stop()
		c.show(LevelInfo, wakeAckMessage)
		c.cancel(&c.cancelAck)
		c.cancelAck = c.collab.Scheduler.AfterFunc(c.cfg.AckDelay, func() {
			c.cancelAck = nil
			c.StartListening()
		})
	case EventError:
		if c.wake.Fail(ev.Code) {
			slog.Warn("dialogue: wake word stopped", "session_id", c.session.ID, "code", ev.Code)
			c.metrics.RecordRecognitionError(ctx, ev.Code)
			c.collab.Display.Feedback(LevelError, recognitionErrorMessage(ev.Code).Visual)
		}
	case EventEnd:
		if c.wake.Wanted() && !c.session.Listening {
			c.collab.Microphone.StartWake()
		}
	}
}

func (c *Controller) handleCommand(ctx context.Context, ev Event) {
	if !c.session.Listening {
		slog.Debug("dialogue: dropping event outside capture", "session_id", c.session.ID, "kind", ev.Kind)
		return
	}
	switch ev.Kind {
	case EventFinal:
		if c.session.CaptureHandled {
			return
		}
		c.session.CaptureHandled = true
		c.Process(ctx, ev.Text)
		c.finishCapture()
	case EventError:
		c.reportError(ctx, ev.Code)
		c.finishCapture()
	case EventEnd:
		c.finishCapture()
	}
}

func (c *Controller) reportError(ctx context.Context, code string) {
	c.metrics.RecordRecognitionError(ctx, code)
	if code == CodeNotAllowed {
		c.wake.Fail(code)
	}
	level := LevelError
	if code == CodeAborted {
		level = LevelInfo
	}
	c.show(level, recognitionErrorMessage(code))
}

// finishCapture releases the capture and schedules the wake-word re-arm. It
// is idempotent.
func (c *Controller) finishCapture() {
	if !c.session.Listening {
		return
	}
	c.session.Listening = false
	c.scheduleRearm()
}

func (c *Controller) scheduleRearm() {
	if !c.session.WakeEnabled || c.session.RearmPending || c.wake.State() == wakeword.StateStopped {
		return
	}
	c.session.RearmPending = true
	c.cancelRearm = c.collab.Scheduler.AfterFunc(c.cfg.Cooldown, func() {
		c.cancelRearm = nil
		c.session.RearmPending = false
		c.armWake()
	})
}

func (c *Controller) armWake() {
	if c.session.Listening || c.cancelAck != nil {
		return
	}
	if c.wake.Arm() {
		c.collab.Microphone.StartWake()
	}
}

// Process interprets one final transcript and performs the resulting action.
func (c *Controller) Process(ctx context.Context, transcript string) Result {
	start := time.Now()
	ctx, span := observe.StartInterpret(ctx, observe.SurfaceSession, c.session.ID)
	res := Interpret(c.matcher, c.extractor, transcript, c.formPresented())
	switch {
	case res.Transcript == "":
		c.show(LevelError, recognitionErrorMessage(CodeNoSpeech))
	case res.Outcome == intent.OutcomeRecognized:
		c.dispatch(ctx, res.Intent, res.Entities)
	case res.Outcome == intent.OutcomeAutoCorrected:
		c.holdSpeech()
		if cmd, ok := c.matcher.Catalog().ByID(res.Intent); ok {
			c.show(LevelWarning, autoCorrectedMessage(cmd.Primary))
		}
		c.dispatch(ctx, res.Intent, res.Entities)
		c.releaseSpeech()
	case res.NeedsForm != "":
		c.show(LevelWarning, noFormMessage)
	default:
		c.unrecognized(res)
	}

	c.metrics.RecordUtterance(ctx, string(res.Outcome), res.Intent.String())
	c.metrics.InterpretDuration.Record(ctx, time.Since(start).Seconds())
	observe.EndInterpret(span, res.Intent.String(), string(res.Outcome), res.Confidence)
	observe.Logger(ctx).Info("dialogue: utterance interpreted",
		"session_id", c.session.ID,
		"intent", res.Intent.String(),
		"outcome", res.Outcome,
		"confidence", res.Confidence,
		"entities", res.Entities.Len(),
	)
	c.record(ctx, res)
	return res
}

func (c *Controller) record(ctx context.Context, res Result) {
	ents, err := json.Marshal(res.Entities)
	if err != nil {
		ents = nil
	}
	err = c.recorder.Record(ctx, cmdlog.Entry{
		SessionID:  c.session.ID,
		Transcript: res.Transcript,
		Intent:     string(res.Intent),
		Outcome:    string(res.Outcome),
		Confidence: res.Confidence,
		Entities:   ents,
		CreatedAt:  c.now(),
	})
	if err != nil {
		slog.Warn("dialogue: command log failed", "session_id", c.session.ID, "error", err)
	}
}

func (c *Controller) unrecognized(res Result) {
	c.show(LevelError, unrecognizedMessage(res.Suggestions, res.Fallback))
	items, fallback := res.Suggestions, res.Fallback
	c.cancel(&c.cancelSuggest)
	c.cancelSuggest = c.collab.Scheduler.AfterFunc(c.cfg.SuggestionDelay, func() {
		c.cancelSuggest = nil
		c.collab.Display.Suggestions(items, fallback)
	})
}

// PageLoaded consumes the hand-off slot and applies a pending form fill.
// The slot is emptied even when the payload cannot be applied.
func (c *Controller) PageLoaded(ctx context.Context) {
	if c.collab.Handoff == nil {
		return
	}
	data, err := c.collab.Handoff.Take(ctx, c.session.ID)
	switch {
	case errors.Is(err, handoff.ErrEmpty):
		return
	case err != nil:
		slog.Warn("dialogue: hand-off read failed", "session_id", c.session.ID, "error", err)
		c.metrics.RecordHandoff(ctx, "take", "error")
		return
	}
	p, err := handoff.Decode(data)
	if err != nil {
		slog.Warn("dialogue: discarding malformed hand-off", "session_id", c.session.ID, "error", err)
		c.metrics.RecordHandoff(ctx, "take", "malformed")
		return
	}
	c.metrics.RecordHandoff(ctx, "take", "ok")

	form := formFor(p.Intent)
	if form == "" || !c.collab.Forms.Presented(form) {
		slog.Info("dialogue: hand-off target not on page", "session_id", c.session.ID, "intent", p.Intent)
		return
	}
	c.fill(form, p.Entities)
}

// Close cancels pending timers.
func (c *Controller) Close() {
	c.cancel(&c.cancelRearm)
	c.cancel(&c.cancelAck)
	c.cancel(&c.cancelSuggest)
	c.session.RearmPending = false
}

func (c *Controller) show(level Level, m Message) {
	if m.Visual != "" {
		c.collab.Display.Feedback(level, m.Visual)
	}
	c.say(m.Spoken)
}

func (c *Controller) say(text string) {
	if text == "" || !c.cfg.SpokenFeedback {
		return
	}
	if c.holding {
		c.held = append(c.held, text)
		return
	}
	c.collab.Speaker.Speak(text)
}

func (c *Controller) holdSpeech() { c.holding = true }

func (c *Controller) releaseSpeech() {
	text := strings.Join(c.held, " ")
	c.holding, c.held = false, nil
	c.say(text)
}

func (c *Controller) cancel(fn *func()) {
	if *fn != nil {
		(*fn)()
		*fn = nil
	}
}

func (c *Controller) formPresented() bool {
	return c.collab.Forms.Presented(FormTruck) || c.collab.Forms.Presented(FormDelivery)
}
