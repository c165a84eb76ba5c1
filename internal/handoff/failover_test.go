package handoff_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/haulvoice/internal/handoff"
	"github.com/MrWong99/haulvoice/internal/resilience"
)

var errUnreachable = errors.New("dial tcp: connection refused")

// flakyStore wraps a MemStore and fails every call while down is set.
type flakyStore struct {
	*handoff.MemStore
	mu    sync.Mutex
	down  bool
	calls int
}

func (f *flakyStore) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flakyStore) fail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.down
}

func (f *flakyStore) Save(ctx context.Context, key string, data []byte) error {
	if f.fail() {
		return errUnreachable
	}
	return f.MemStore.Save(ctx, key, data)
}

func (f *flakyStore) Take(ctx context.Context, key string) ([]byte, error) {
	if f.fail() {
		return nil, errUnreachable
	}
	return f.MemStore.Take(ctx, key)
}

func (f *flakyStore) Ping(context.Context) error {
	if f.fail() {
		return errUnreachable
	}
	return nil
}

func newFailover(remote *flakyStore) *handoff.Failover {
	return handoff.NewFailover("redis", remote, time.Minute, handoff.FailoverConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})
}

func TestFailover_HealthyRemote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	remote := &flakyStore{MemStore: handoff.NewMemStore(time.Minute)}
	f := newFailover(remote)

	if err := f.Save(ctx, "s1", []byte("payload")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Stored remotely, so another instance could take it.
	if data, err := remote.MemStore.Take(ctx, "s1"); err != nil || string(data) != "payload" {
		t.Fatalf("remote Take = %q, %v", data, err)
	}
	if _, err := f.Take(ctx, "s1"); !errors.Is(err, handoff.ErrEmpty) {
		t.Errorf("Take after remote take err = %v, want ErrEmpty", err)
	}
	if f.State() != resilience.StateClosed {
		t.Errorf("state = %v, want closed; empty slots must not trip the breaker", f.State())
	}
}

func TestFailover_RemoteDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	remote := &flakyStore{MemStore: handoff.NewMemStore(time.Minute)}
	remote.setDown(true)
	f := newFailover(remote)

	if err := f.Save(ctx, "s1", []byte("kept locally")); err != nil {
		t.Fatalf("Save during outage: %v", err)
	}
	data, err := f.Take(ctx, "s1")
	if err != nil || string(data) != "kept locally" {
		t.Fatalf("Take = %q, %v", data, err)
	}
	if _, err := f.Take(ctx, "s1"); !errors.Is(err, handoff.ErrEmpty) {
		t.Errorf("second Take err = %v, want ErrEmpty", err)
	}
	if f.State() != resilience.StateOpen {
		t.Errorf("state = %v, want open", f.State())
	}

	// With the circuit open the remote is not called any more.
	before := remote.calls
	_ = f.Save(ctx, "s2", []byte("x"))
	if remote.calls != before {
		t.Errorf("remote called %d times with the circuit open", remote.calls-before)
	}
}

func TestFailover_LocalWinsAfterRecovery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	remote := &flakyStore{MemStore: handoff.NewMemStore(time.Minute)}
	remote.setDown(true)
	f := handoff.NewFailover("redis", remote, time.Minute, handoff.FailoverConfig{MaxFailures: 5})

	_ = f.Save(ctx, "s1", []byte("during outage"))
	remote.setDown(false)

	data, err := f.Take(ctx, "s1")
	if err != nil || string(data) != "during outage" {
		t.Fatalf("Take = %q, %v", data, err)
	}
}

func TestFailover_Ping(t *testing.T) {
	t.Parallel()

	remote := &flakyStore{MemStore: handoff.NewMemStore(time.Minute)}
	f := newFailover(remote)
	if err := f.Ping(context.Background()); err != nil {
		t.Errorf("Ping healthy: %v", err)
	}
	remote.setDown(true)
	if err := f.Ping(context.Background()); err == nil {
		t.Error("Ping should report the remote outage")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestFailover_ReportsTransitions(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		states []string
	)
	remote := &flakyStore{MemStore: handoff.NewMemStore(time.Minute)}
	remote.setDown(true)
	f := handoff.NewFailover("postgres", remote, time.Minute, handoff.FailoverConfig{
		MaxFailures:  1,
		ResetTimeout: time.Hour,
		OnStateChange: func(store string, _, to resilience.State) {
			mu.Lock()
			states = append(states, store+"="+to.String())
			mu.Unlock()
		},
	})
	_ = f.Save(context.Background(), "s1", []byte("x"))

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 1 || states[0] != "postgres=open" {
		t.Errorf("transitions = %v, want [postgres=open]", states)
	}
}
