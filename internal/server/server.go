// Package server exposes the voice command interpreter over HTTP.
//
// Browser clients connect to /ws and exchange JSON frames: the client
// reports its page, forms and speech recognizer events, and the server
// answers with speech, feedback, navigation and form-fill instructions
// produced by a per-connection [dialogue.Controller]. The stateless
// /api/v1 routes interpret a single transcript and list the command
// catalog.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/haulvoice/internal/cmdlog"
	"github.com/MrWong99/haulvoice/internal/dialogue"
	"github.com/MrWong99/haulvoice/internal/entities"
	"github.com/MrWong99/haulvoice/internal/handoff"
	"github.com/MrWong99/haulvoice/internal/intent"
	"github.com/MrWong99/haulvoice/internal/observe"
)

// Tuning is the reloadable part of the interpreter. New connections pick up
// the tuning current at their hello; running sessions keep theirs.
type Tuning struct {
	Matcher   *intent.Matcher
	Extractor *entities.Extractor
	Dialogue  dialogue.Config

	// WakeWord is used when a client's hello does not state a preference.
	WakeWord bool
}

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithHandoff sets the hand-off store shared by all sessions. Without one,
// commands that need another page only navigate there.
func WithHandoff(s handoff.Store) Option {
	return func(srv *Server) { srv.handoff = s }
}

// WithRecorder sets where interpreted utterances are logged.
func WithRecorder(r cmdlog.Recorder) Option {
	return func(srv *Server) { srv.recorder = r }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// WithOriginPatterns lists extra host patterns allowed to open websockets.
// Same-origin requests are always accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(srv *Server) { srv.origins = patterns }
}

// WithHelloTimeout bounds the wait for a client's hello frame. Default 10s.
func WithHelloTimeout(d time.Duration) Option {
	return func(srv *Server) {
		if d > 0 {
			srv.helloTimeout = d
		}
	}
}

// Server serves the interpreter's HTTP surfaces. It is safe for concurrent
// use.
type Server struct {
	tuning       atomic.Pointer[Tuning]
	handoff      handoff.Store
	recorder     cmdlog.Recorder
	metrics      *observe.Metrics
	origins      []string
	helloTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

// New creates a Server using t until [Server.SetTuning] replaces it.
func New(t Tuning, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		recorder:     cmdlog.Nop{},
		helloTimeout: 10 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.SetTuning(t)
	return s
}

// SetTuning replaces the tuning used for new sessions.
func (s *Server) SetTuning(t Tuning) {
	s.tuning.Store(&t)
}

// Tuning returns the current tuning.
func (s *Server) Tuning() Tuning {
	return *s.tuning.Load()
}

// Register adds the server's routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /api/v1/interpret", s.handleInterpret)
	mux.HandleFunc("GET /api/v1/commands", s.handleCommands)
}

// Shutdown ends every open session and waits for them to finish or for ctx
// to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
