package handoff

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrWong99/haulvoice/internal/resilience"
)

// FailoverConfig tunes the circuit breaker in front of the remote store.
type FailoverConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration

	// OnStateChange is told about every breaker transition of the remote.
	OnStateChange func(store string, from, to resilience.State)
}

// Failover puts a circuit breaker in front of a remote [Store] and keeps
// hand-offs in process while the remote is unavailable. A hand-off saved
// during an outage can only be taken on the same instance.
type Failover struct {
	group  *resilience.FallbackGroup[Store]
	remote Store
	local  *MemStore
}

var (
	_ Store  = (*Failover)(nil)
	_ Pinger = (*Failover)(nil)
)

// NewFailover guards remote, named name in logs. Local entries expire after
// ttl.
func NewFailover(name string, remote Store, ttl time.Duration, cfg FailoverConfig) *Failover {
	local := NewMemStore(ttl)
	g := resilience.NewFallbackGroup[Store](remote, name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:   cfg.MaxFailures,
			ResetTimeout:  cfg.ResetTimeout,
			IsFailure:     func(err error) bool { return !errors.Is(err, ErrEmpty) },
			OnStateChange: cfg.OnStateChange,
		},
	})
	g.AddFallback("local", local)
	return &Failover{group: g, remote: remote, local: local}
}

// Save implements [Store].
func (f *Failover) Save(ctx context.Context, key string, data []byte) error {
	return f.group.Execute(func(s Store) error { return s.Save(ctx, key, data) })
}

// Take implements [Store]. Entries kept locally during an outage win over the
// remote. When no backend answers, the slot is reported as empty.
func (f *Failover) Take(ctx context.Context, key string) ([]byte, error) {
	if data, err := f.local.Take(ctx, key); err == nil {
		return data, nil
	}
	data, err := resilience.ExecuteWithResult(f.group, func(s Store) ([]byte, error) {
		return s.Take(ctx, key)
	})
	if errors.Is(err, resilience.ErrAllFailed) {
		slog.Warn("handoff: no store reachable, dropping lookup", "store", f.group.Name(), "err", err)
		return nil, ErrEmpty
	}
	return data, err
}

// State reports the breaker state of the remote store.
func (f *Failover) State() resilience.State { return f.group.PrimaryState() }

// Ping implements [Pinger] by pinging the remote store when it can be pinged.
func (f *Failover) Ping(ctx context.Context) error {
	if p, ok := f.remote.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes both stores.
func (f *Failover) Close() error {
	return errors.Join(f.remote.Close(), f.local.Close())
}
