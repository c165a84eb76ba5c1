package resilience

import (
	"errors"
	"testing"
	"time"
)

func newGroup(cfg CircuitBreakerConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("redis", "redis", FallbackConfig{CircuitBreaker: cfg})
	fg.AddFallback("local", "local")
	return fg
}

func TestFallbackGroup_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fail     map[string]error
		wantUsed string
		wantErr  error
	}{
		{name: "primary healthy", wantUsed: "redis"},
		{name: "primary down", fail: map[string]error{"redis": errDown}, wantUsed: "local"},
		{name: "all down", fail: map[string]error{"redis": errDown, "local": errDown}, wantErr: ErrAllFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fg := newGroup(CircuitBreakerConfig{MaxFailures: 3})
			var used string
			err := fg.Execute(func(v string) error {
				if err := tt.fail[v]; err != nil {
					return err
				}
				used = v
				return nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if used != tt.wantUsed {
				t.Errorf("used = %q, want %q", used, tt.wantUsed)
			}
		})
	}
}

func TestFallbackGroup_SkipsOpenPrimary(t *testing.T) {
	t.Parallel()

	fg := newGroup(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	for range 2 {
		_ = fg.Execute(func(v string) error {
			if v == "redis" {
				return errDown
			}
			return nil
		})
	}
	if fg.PrimaryState() != StateOpen {
		t.Fatalf("primary state = %v, want open", fg.PrimaryState())
	}

	var calls []string
	if err := fg.Execute(func(v string) error { calls = append(calls, v); return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0] != "local" {
		t.Errorf("calls = %v, want [local]", calls)
	}
}

func TestFallbackGroup_IgnoredErrorStops(t *testing.T) {
	t.Parallel()

	fg := newGroup(CircuitBreakerConfig{IsFailure: func(err error) bool { return !errors.Is(err, errNotFound) }})
	var calls []string
	err := fg.Execute(func(v string) error {
		calls = append(calls, v)
		return errNotFound
	})
	if !errors.Is(err, errNotFound) {
		t.Fatalf("err = %v, want errNotFound", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls = %v, want only the primary", calls)
	}
}

func TestExecuteWithResult(t *testing.T) {
	t.Parallel()

	fg := newGroup(CircuitBreakerConfig{MaxFailures: 3})
	got, err := ExecuteWithResult(fg, func(v string) ([]byte, error) {
		if v == "redis" {
			return nil, errDown
		}
		return []byte("from " + v), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "from local" {
		t.Errorf("got %q, want %q", got, "from local")
	}

	_, err = ExecuteWithResult(fg, func(string) ([]byte, error) { return nil, errDown })
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_Name(t *testing.T) {
	t.Parallel()

	if got := newGroup(CircuitBreakerConfig{}).Name(); got != "redis" {
		t.Errorf("Name() = %q, want redis", got)
	}
}
