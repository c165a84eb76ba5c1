package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/haulvoice/internal/dialogue"
)

const (
	readLimit    = 64 << 10
	outboxSize   = 64
	loopSize     = 64
	writeTimeout = 5 * time.Second
)

// errProtocol marks a client that broke the frame protocol.
var errProtocol = errors.New("server: protocol violation")

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		slog.Warn("server: websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn.SetReadLimit(readLimit)

	s.conns.Add(1)
	defer s.conns.Done()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	err = s.serve(ctx, conn)
	switch {
	case err == nil:
		conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, errProtocol):
		slog.Warn("server: closing session", "remote", r.RemoteAddr, "err", err)
		conn.Close(websocket.StatusPolicyViolation, "protocol violation")
	default:
		slog.Warn("server: session failed", "remote", r.RemoteAddr, "err", err)
		conn.CloseNow()
	}
}

// serve runs one dialogue session until the client leaves or ctx ends.
func (s *Server) serve(ctx context.Context, conn *websocket.Conn) error {
	hello, err := s.readHello(ctx, conn)
	if err != nil {
		return err
	}

	t := s.tuning.Load()
	id := hello.SessionID
	if id == "" {
		id = ulid.Make().String()
	}
	wake := t.WakeWord
	if hello.WakeWord != nil {
		wake = *hello.WakeWord
	}
	log := slog.With("session_id", id)

	g, gctx := errgroup.WithContext(ctx)
	out := make(chan outbound, outboxSize)
	cl := newClient(gctx, out)
	cl.role = hello.Role
	cl.lang = hello.Language
	cl.setPage(hello.Page, hello.Forms)

	sess := dialogue.NewSession(id, wake)
	sess.Language = hello.Language
	loop := dialogue.NewLoop(loopSize)
	ctrl := dialogue.New(sess, t.Matcher, t.Extractor, cl.collaborators(loop, s.handoff),
		dialogue.WithConfig(t.Dialogue),
		dialogue.WithMetrics(s.metrics),
		dialogue.WithRecorder(s.recorder),
	)

	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)
	log.Info("server: session started", "page", hello.Page, "role", hello.Role, "wake_word", wake)
	defer log.Info("server: session ended")

	// The outbox is empty, so the welcome is always the first frame.
	out <- outbound{Type: msgWelcome, SessionID: id}
	loop.Post(func() { ctrl.Init(gctx) })

	g.Go(func() error { return writeLoop(gctx, conn, out) })
	g.Go(func() error {
		err := loop.Run(gctx)
		// The loop has stopped; nothing else touches ctrl now.
		ctrl.Close()
		return err
	})
	g.Go(func() error { return s.readLoop(gctx, conn, loop, ctrl, cl, log) })

	err = g.Wait()
	if closedNormally(err) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) readHello(ctx context.Context, conn *websocket.Conn) (inbound, error) {
	ctx, cancel := context.WithTimeout(ctx, s.helloTimeout)
	defer cancel()

	var m inbound
	if err := wsjson.Read(ctx, conn, &m); err != nil {
		if ctx.Err() != nil {
			return inbound{}, fmt.Errorf("%w: no hello within %s", errProtocol, s.helloTimeout)
		}
		return inbound{}, fmt.Errorf("server: read hello: %w", err)
	}
	if m.Type != msgHello {
		return inbound{}, fmt.Errorf("%w: first frame is %q, want %q", errProtocol, m.Type, msgHello)
	}
	return m, nil
}

// readLoop turns client frames into controller calls on the loop. It only
// returns with an error, so the errgroup tears the session down.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, loop *dialogue.Loop, ctrl *dialogue.Controller, cl *client, log *slog.Logger) error {
	for {
		var m inbound
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			return err
		}

		var f func()
		switch m.Type {
		case msgPage:
			f = func() {
				if m.Role != "" {
					cl.role = m.Role
				}
				cl.setPage(m.Page, m.Forms)
				ctrl.PageLoaded(ctx)
			}
		case msgStartListening:
			f = ctrl.StartListening
		case msgStopListening:
			f = ctrl.StopListening
		case msgRecognition:
			ev := dialogue.Event{
				Stream: dialogue.Stream(m.Stream),
				Kind:   dialogue.EventKind(m.Event),
				Text:   m.Text,
				Code:   m.Error,
			}
			f = func() { ctrl.HandleRecognition(ctx, ev) }
		case msgConfirmResult:
			f = func() {
				if !cl.resolve(m.ID, m.OK) {
					log.Debug("server: ignoring unknown confirmation", "id", m.ID)
				}
			}
		case msgWakeWord:
			f = func() { ctrl.SetWakeEnabled(m.Enabled) }
		default:
			log.Warn("server: unexpected frame", "type", m.Type)
			f = func() { cl.send(outbound{Type: msgError, Message: fmt.Sprintf("unexpected message type %q", m.Type)}) }
		}
		if !loop.Post(f) {
			return context.Canceled
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan outbound) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, m)
			cancel()
			if err != nil {
				return fmt.Errorf("server: write %s: %w", m.Type, err)
			}
		}
	}
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
