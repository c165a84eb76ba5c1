package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fileStamp identifies one version of the watched file.
type fileStamp struct {
	mtime time.Time
	sum   [sha256.Size]byte
}

// Watcher polls a config file and hands every valid change to a callback.
// An invalid edit is reported once and ignored; the last good config stays
// current until the file changes again.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	seen    fileStamp
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path once and returns a watcher for it. Polling starts
// with [Watcher.Run]. onChange may be nil.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, interval: 5 * time.Second, onChange: onChange}
	for _, opt := range opts {
		opt(w)
	}

	data, stamp, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.current, w.seen = cfg, stamp
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls until ctx is cancelled. It always returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Poll(); err != nil {
				slog.Warn("config: reload rejected, keeping previous config", "path", w.path, "err", err)
			}
		}
	}
}

// Poll checks the file once and reports whether a new config was accepted.
// A file whose mtime or content is unchanged is not parsed. The callback
// runs after the new config is current, outside the lock.
func (w *Watcher) Poll() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	if info.ModTime().Equal(w.seen.mtime) {
		w.mu.Unlock()
		return false, nil
	}
	data, stamp, err := w.read()
	if err != nil {
		w.mu.Unlock()
		return false, err
	}
	if stamp.sum == w.seen.sum {
		w.seen = stamp
		w.mu.Unlock()
		return false, nil
	}
	w.seen = stamp

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		w.mu.Unlock()
		return false, err
	}
	old := w.current
	w.current = cfg
	w.mu.Unlock()

	slog.Info("config: configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return true, nil
}

func (w *Watcher) read() ([]byte, fileStamp, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileStamp{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileStamp{}, err
	}
	return data, fileStamp{mtime: info.ModTime(), sum: sha256.Sum256(data)}, nil
}
