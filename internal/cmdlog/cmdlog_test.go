package cmdlog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type mockDB struct {
	mu    sync.Mutex
	calls [][]any
	sqls  []string
	err   error
}

func (m *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sqls = append(m.sqls, sql)
	m.calls = append(m.calls, args)
	return pgconn.NewCommandTag("INSERT 0 1"), m.err
}

// recordingRecorder collects entries and can block until released.
type recordingRecorder struct {
	mu      sync.Mutex
	entries []Entry
	gate    chan struct{}
	err     error
}

func (r *recordingRecorder) Record(_ context.Context, e Entry) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func (r *recordingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func TestPostgresRecorder_Record(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	r := NewPostgresRecorder(db)
	at := time.Date(2026, 2, 2, 2, 2, 2, 0, time.UTC)
	err := r.Record(context.Background(), Entry{
		SessionID:  "s1",
		Transcript: "ad my truk",
		Intent:     "add_truck",
		Outcome:    "auto_corrected",
		Confidence: 1,
		CreatedAt:  at,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(db.calls) != 1 {
		t.Fatalf("Exec calls = %d, want 1", len(db.calls))
	}
	args := db.calls[0]
	if args[0] != "s1" || args[1] != "ad my truk" || args[2] != "add_truck" || args[3] != "auto_corrected" {
		t.Errorf("args = %v", args)
	}
	if string(args[5].([]byte)) != "{}" {
		t.Errorf("entities default = %s, want {}", args[5])
	}
	if !strings.Contains(db.sqls[0], "INSERT INTO voice_commands") {
		t.Errorf("sql = %s", db.sqls[0])
	}
}

func TestPostgresRecorder_Errors(t *testing.T) {
	t.Parallel()

	db := &mockDB{err: errors.New("boom")}
	r := NewPostgresRecorder(db)
	if err := r.Migrate(context.Background()); err == nil {
		t.Error("Migrate: want error")
	}
	if err := r.Record(context.Background(), Entry{Entities: json.RawMessage(`{"a":1}`)}); err == nil {
		t.Error("Record: want error")
	}
}

func TestAsync_FlushesOnClose(t *testing.T) {
	t.Parallel()

	rec := &recordingRecorder{}
	a := NewAsync(rec, 16)
	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	for i := 0; i < 10; i++ {
		_ = a.Record(context.Background(), Entry{SessionID: "s"})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.count() != 10 {
		t.Errorf("recorded %d entries, want 10", rec.count())
	}
	// Records after Close are ignored.
	if err := a.Record(context.Background(), Entry{}); err != nil {
		t.Errorf("Record after Close: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestAsync_DropsWhenFull(t *testing.T) {
	t.Parallel()

	rec := &recordingRecorder{gate: make(chan struct{})}
	a := NewAsync(rec, 1)

	// No Run yet: the first entry fills the buffer, the rest are dropped.
	for i := 0; i < 5; i++ {
		_ = a.Record(context.Background(), Entry{})
	}
	close(rec.gate)
	go func() { _ = a.Run(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("recorded %d entries, want 1", rec.count())
	}
}

func TestAsync_WriteErrorsAreLogged(t *testing.T) {
	t.Parallel()

	rec := &recordingRecorder{err: errors.New("db down")}
	a := NewAsync(rec, 4)
	go func() { _ = a.Run(context.Background()) }()
	_ = a.Record(context.Background(), Entry{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("recorded %d entries, want 1", rec.count())
	}
}

func TestNop(t *testing.T) {
	t.Parallel()

	if err := (Nop{}).Record(context.Background(), Entry{}); err != nil {
		t.Errorf("Nop.Record: %v", err)
	}
}
