// Package cmdlog records every interpreted utterance so that the matching
// thresholds and scoring weights can be tuned against real traffic.
//
// Writes go through [Async], which buffers entries and drains them on a
// single goroutine so a slow database never stalls a dialogue loop.
package cmdlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Entry is one interpreted utterance.
type Entry struct {
	SessionID  string
	Transcript string
	Intent     string
	Outcome    string
	Confidence float64
	Entities   json.RawMessage
	CreatedAt  time.Time
}

// Recorder persists entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements [Recorder].
func (Nop) Record(context.Context, Entry) error { return nil }

// Schema is the SQL DDL for the voice_commands table.
const Schema = `
CREATE TABLE IF NOT EXISTS voice_commands (
    id          BIGSERIAL PRIMARY KEY,
    session_id  TEXT NOT NULL,
    transcript  TEXT NOT NULL,
    intent      TEXT NOT NULL DEFAULT '',
    outcome     TEXT NOT NULL,
    confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
    entities    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_voice_commands_outcome ON voice_commands(outcome, created_at);
`

// DB is the database interface used by [PostgresRecorder]. Both
// *pgxpool.Pool and *pgx.Conn satisfy this interface.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRecorder writes entries to the voice_commands table.
type PostgresRecorder struct {
	db DB
}

var _ Recorder = (*PostgresRecorder)(nil)

// NewPostgresRecorder returns a recorder over db. Call Migrate first.
func NewPostgresRecorder(db DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Migrate executes the [Schema] DDL.
func (r *PostgresRecorder) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("cmdlog: migrate: %w", err)
	}
	return nil
}

// Record implements [Recorder].
func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	ents := e.Entities
	if len(ents) == 0 {
		ents = json.RawMessage("{}")
	}
	const q = `
		INSERT INTO voice_commands (session_id, transcript, intent, outcome, confidence, entities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.Exec(ctx, q, e.SessionID, e.Transcript, e.Intent, e.Outcome, e.Confidence, []byte(ents), e.CreatedAt); err != nil {
		return fmt.Errorf("cmdlog: record: %w", err)
	}
	return nil
}

// Async buffers entries in front of a Recorder. Record never blocks: when
// the buffer is full the entry is dropped and a warning is logged.
type Async struct {
	next    Recorder
	entries chan Entry

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ Recorder = (*Async)(nil)

// NewAsync returns an Async with room for size pending entries. Run must be
// called to start draining.
func NewAsync(next Recorder, size int) *Async {
	if size < 1 {
		size = 1
	}
	return &Async{
		next:    next,
		entries: make(chan Entry, size),
		done:    make(chan struct{}),
	}
}

// Record implements [Recorder].
func (a *Async) Record(_ context.Context, e Entry) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.entries <- e:
	default:
		slog.Warn("cmdlog: buffer full, dropping entry", "session_id", e.SessionID, "outcome", e.Outcome)
	}
	return nil
}

// Run drains entries until Close is called and the buffer is empty. It
// always returns nil; write errors are logged.
func (a *Async) Run(ctx context.Context) error {
	defer close(a.done)
	for e := range a.entries {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := a.next.Record(wctx, e); err != nil {
			slog.Warn("cmdlog: write failed", "session_id", e.SessionID, "error", err)
		}
		cancel()
	}
	return nil
}

// Close stops accepting entries and waits for Run to flush the buffer or
// for ctx to end.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.entries)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
