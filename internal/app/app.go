// Package app wires the haulvoice subsystems into a running server.
//
// The App owns the full lifecycle: New connects the configured stores and
// builds the HTTP surfaces, Run serves until the context ends, and Shutdown
// releases everything in order.
//
// For testing, inject in-memory implementations via functional options
// (WithHandoffStore, WithRecorder, WithListener). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/cmdlog"
	"github.com/MrWong99/haulvoice/internal/config"
	"github.com/MrWong99/haulvoice/internal/dialogue"
	"github.com/MrWong99/haulvoice/internal/entities"
	"github.com/MrWong99/haulvoice/internal/handoff"
	"github.com/MrWong99/haulvoice/internal/health"
	"github.com/MrWong99/haulvoice/internal/intent"
	"github.com/MrWong99/haulvoice/internal/mcptool"
	"github.com/MrWong99/haulvoice/internal/observe"
	"github.com/MrWong99/haulvoice/internal/resilience"
	"github.com/MrWong99/haulvoice/internal/server"
	"github.com/MrWong99/haulvoice/internal/transcript/phonetic"
)

// purgeInterval is how often expired PostgreSQL hand-off rows are deleted.
const purgeInterval = 5 * time.Minute

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	version string

	metrics  *observe.Metrics
	level    *slog.LevelVar
	handoff  handoff.Store
	recorder cmdlog.Recorder
	async    *cmdlog.Async
	purger   *handoff.PostgresStore
	pool     *pgxpool.Pool
	checkers []health.Checker

	server   *server.Server
	handler  http.Handler
	httpSrv  *http.Server
	listener net.Listener

	configPath string
	watcher    *config.Watcher

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithHandoffStore injects a hand-off store instead of creating one from config.
func WithHandoffStore(s handoff.Store) Option {
	return func(a *App) { a.handoff = s }
}

// WithRecorder injects a command log recorder instead of creating one from
// config. It is used as is, without an [cmdlog.Async] in front.
func WithRecorder(r cmdlog.Recorder) Option {
	return func(a *App) { a.recorder = r }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets config reloads change the log level of the logger built
// around lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithConfigWatch enables hot reload of the config file at path.
func WithConfigWatch(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithListener serves on ln instead of listening on cfg.Server.ListenAddr.
func WithListener(ln net.Listener) Option {
	return func(a *App) { a.listener = ln }
}

// WithVersion sets the version reported by the MCP endpoint.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// New connects the configured stores and assembles the HTTP handler.
// Anything opened before a failure is closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	a := &App{cfg: cfg, version: "dev"}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	defer func() {
		if err != nil {
			a.runClosers(context.Background())
		}
	}()

	// ── 1. Stores ────────────────────────────────────────────────────────
	if err := a.initHandoff(ctx); err != nil {
		return nil, fmt.Errorf("app: init handoff: %w", err)
	}
	if err := a.initCommandLog(ctx); err != nil {
		return nil, fmt.Errorf("app: init command log: %w", err)
	}

	// ── 2. Config watcher ────────────────────────────────────────────────
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.applyConfig)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.watcher = w
	}

	// ── 3. HTTP surfaces ─────────────────────────────────────────────────
	srvOpts := []server.Option{
		server.WithHandoff(a.handoff),
		server.WithMetrics(a.metrics),
		server.WithOriginPatterns(cfg.Server.AllowedOrigins...),
	}
	if a.recorder != nil {
		srvOpts = append(srvOpts, server.WithRecorder(a.recorder))
	}
	a.server = server.New(BuildTuning(cfg), srvOpts...)

	mux := http.NewServeMux()
	a.server.Register(mux)
	health.New(a.checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	if cfg.Server.MCP.Enabled {
		mux.Handle(cfg.Server.MCP.Path, mcptool.Handler(mcptool.NewServer(a.server, a.version, mcptool.WithMetrics(a.metrics))))
		slog.Info("app: mcp tools enabled", "path", cfg.Server.MCP.Path)
	}
	a.handler = observe.Middleware(a.metrics)(mux)
	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initHandoff(ctx context.Context) error {
	if a.handoff != nil {
		return nil
	}
	h := a.cfg.Handoff
	switch h.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     h.Redis.Addr,
			Password: h.Redis.Password,
			DB:       h.Redis.DB,
		})
		store := handoff.NewRedisStore(client, h.TTL)
		a.closers = append(a.closers, store.Close)
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping %s: %w", h.Redis.Addr, err)
		}
		a.handoff = a.failover("redis", store)
		a.checkers = append(a.checkers, a.remoteCheck("handoff", store))
	case config.BackendPostgres:
		pool, err := a.postgres(ctx)
		if err != nil {
			return err
		}
		store := handoff.NewPostgresStore(pool, h.TTL)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		a.handoff = a.failover("postgres", store)
		a.purger = store
	default:
		store := handoff.NewMemStore(h.TTL)
		a.closers = append(a.closers, store.Close)
		a.handoff = store
	}
	slog.Info("app: hand-off store ready", "backend", h.Backend, "ttl", h.TTL)
	return nil
}

// failover wraps a remote store with a circuit breaker when configured. The
// wrapper closes nothing itself; the remote store's closer is already
// registered.
func (a *App) failover(name string, remote handoff.Store) handoff.Store {
	f := a.cfg.Handoff.Failover
	if !f.Enabled {
		return remote
	}
	return handoff.NewFailover(name, remote, a.cfg.Handoff.TTL, handoff.FailoverConfig{
		MaxFailures:  f.MaxFailures,
		ResetTimeout: f.ResetTimeout,
		OnStateChange: func(store string, _, to resilience.State) {
			a.metrics.RecordBreakerTransition(context.Background(), store, to.String())
		},
	})
}

// remoteCheck only degrades readiness when failover keeps hand-offs in
// process. Without hand-offs on postgres, a pool outage only drops command
// log entries.
func (a *App) remoteCheck(name string, p health.Pinger) health.Checker {
	c := health.Ping(name, p)
	c.Optional = a.cfg.Handoff.Failover.Enabled ||
		(name == "postgres" && a.cfg.Handoff.Backend != config.BackendPostgres)
	return c
}

func (a *App) initCommandLog(ctx context.Context) error {
	if a.recorder != nil || !a.cfg.CommandLog.Enabled {
		return nil
	}
	pool, err := a.postgres(ctx)
	if err != nil {
		return err
	}
	rec := cmdlog.NewPostgresRecorder(pool)
	if err := rec.Migrate(ctx); err != nil {
		return err
	}
	a.async = cmdlog.NewAsync(rec, a.cfg.CommandLog.BufferSize)
	a.recorder = a.async
	slog.Info("app: command log enabled", "buffer_size", a.cfg.CommandLog.BufferSize)
	return nil
}

// postgres returns the shared pool, connecting on first use.
func (a *App) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}
	pool, err := pgxpool.New(ctx, a.cfg.Handoff.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	a.pool = pool
	a.checkers = append(a.checkers, a.remoteCheck("postgres", pool))
	return pool, nil
}

// BuildTuning derives the interpreter tuning from cfg.
func BuildTuning(cfg *config.Config) server.Tuning {
	var xopts []entities.Option
	if len(cfg.Voice.Places) > 0 {
		xopts = append(xopts, entities.WithPlaces(phonetic.New(cfg.Voice.Places)))
	}
	return server.Tuning{
		Matcher:   intent.New(catalog.Default(), intent.WithScoring(cfg.Voice.Matching)),
		Extractor: entities.New(xopts...),
		Dialogue: dialogue.Config{
			SpokenFeedback:  cfg.Voice.SpokenFeedback,
			SuggestionDelay: cfg.Voice.SuggestionDelay,
			Cooldown:        cfg.Voice.WakeWord.Cooldown,
			AckDelay:        cfg.Voice.WakeWord.AckDelay,
			WakeWord:        cfg.Voice.WakeWord.Config,
		},
		WakeWord: cfg.Voice.WakeWord.Enabled,
	}
}

// applyConfig is the watcher callback.
func (a *App) applyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(d.NewLogLevel.Slog())
		slog.Info("app: log level changed", "level", d.NewLogLevel)
	}
	if d.MatchingChanged || d.WakeWordChanged || d.PlacesChanged || d.FeedbackChanged {
		a.server.SetTuning(BuildTuning(new))
		slog.Info("app: interpreter tuning reloaded; applies to new sessions",
			"matching", d.MatchingChanged,
			"wake_word", d.WakeWordChanged,
			"places", d.PlacesChanged,
			"feedback", d.FeedbackChanged,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("app: config changes need a restart to take effect", "sections", d.RestartRequired)
	}
}

// Handler returns the full HTTP handler, including middleware.
func (a *App) Handler() http.Handler { return a.handler }

// Server returns the interpreter server.
func (a *App) Server() *server.Server { return a.server }

// ─── Run / Shutdown ──────────────────────────────────────────────────────────

// Run serves HTTP and runs the background workers until ctx is cancelled.
// On cancellation it stops accepting requests, ends open sessions and
// flushes the command log before returning.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		switch {
		case a.listener != nil:
			err = a.httpSrv.Serve(a.listener)
		case a.cfg.Server.TLS != nil:
			err = a.httpSrv.ListenAndServeTLS(a.cfg.Server.TLS.CertFile, a.cfg.Server.TLS.KeyFile)
		default:
			err = a.httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: http server: %w", err)
	})

	if a.async != nil {
		g.Go(func() error { return a.async.Run(gctx) })
	}
	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}
	if a.purger != nil {
		g.Go(func() error { return a.purge(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		if err := a.httpSrv.Shutdown(stopCtx); err != nil {
			slog.Warn("app: http shutdown", "err", err)
		}
		if err := a.server.Shutdown(stopCtx); err != nil {
			slog.Warn("app: sessions did not end in time", "err", err)
		}
		if a.async != nil {
			if err := a.async.Close(stopCtx); err != nil {
				slog.Warn("app: command log flush incomplete", "err", err)
			}
		}
		return nil
	})

	slog.Info("app running", "listen_addr", a.cfg.Server.ListenAddr, "handoff", a.cfg.Handoff.Backend)
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (a *App) purge(ctx context.Context) error {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := a.purger.Purge(ctx)
			if err != nil {
				slog.Warn("app: hand-off purge failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("app: purged expired hand-offs", "rows", n)
			}
		}
	}
}

// Shutdown closes the stores in reverse-init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("app: shutting down", "closers", len(a.closers))
		shutdownErr = a.runClosers(ctx)
		slog.Info("app: shutdown complete")
	})
	return shutdownErr
}

func (a *App) runClosers(ctx context.Context) error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			slog.Warn("app: shutdown deadline exceeded", "remaining", i+1)
			return ctx.Err()
		default:
		}
		if err := a.closers[i](); err != nil {
			slog.Warn("app: closer error", "index", i, "err", err)
		}
	}
	a.closers = nil
	return nil
}
