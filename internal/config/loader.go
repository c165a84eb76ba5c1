package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	if cfg.Server.MCP.Enabled && (cfg.Server.MCP.Path == "" || cfg.Server.MCP.Path[0] != '/') {
		errs = append(errs, fmt.Errorf("server.mcp.path %q must start with /", cfg.Server.MCP.Path))
	}

	// Voice
	v := cfg.Voice
	if v.SuggestionDelay < 0 {
		errs = append(errs, fmt.Errorf("voice.suggestion_delay %s must not be negative", v.SuggestionDelay))
	}
	if v.WakeWord.Phrase == "" {
		errs = append(errs, errors.New("voice.wake_word.phrase is required"))
	}
	if v.WakeWord.MaxDistance < 0 {
		errs = append(errs, fmt.Errorf("voice.wake_word.max_distance %d must not be negative", v.WakeWord.MaxDistance))
	}
	if v.WakeWord.Cooldown < 0 || v.WakeWord.AckDelay < 0 {
		errs = append(errs, errors.New("voice.wake_word cooldown and ack_delay must not be negative"))
	}
	if err := v.Matching.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("voice.matching: %w", err))
	}
	if len(v.Places) == 0 {
		slog.Debug("config: voice.places is empty; locations are only title-cased")
	}

	// Hand-off
	h := cfg.Handoff
	if !h.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("handoff.backend %q is invalid; valid values: memory, redis, postgres", h.Backend))
	}
	if h.TTL <= 0 {
		errs = append(errs, fmt.Errorf("handoff.ttl %s must be positive", h.TTL))
	}
	if h.Backend == BackendRedis && h.Redis.Addr == "" {
		errs = append(errs, errors.New("handoff.redis.addr is required when backend is redis"))
	}
	if h.Backend == BackendPostgres && h.PostgresDSN == "" {
		errs = append(errs, errors.New("handoff.postgres_dsn is required when backend is postgres"))
	}
	if h.Failover.Enabled && (h.Failover.MaxFailures < 1 || h.Failover.ResetTimeout <= 0) {
		errs = append(errs, errors.New("handoff.failover needs max_failures >= 1 and a positive reset_timeout"))
	}

	// Command log
	if cfg.CommandLog.Enabled && h.PostgresDSN == "" {
		errs = append(errs, errors.New("command_log.enabled requires handoff.postgres_dsn"))
	}
	if cfg.CommandLog.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("command_log.buffer_size %d must be at least 1", cfg.CommandLog.BufferSize))
	}

	return errors.Join(errs...)
}
