package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/haulvoice/internal/config"
)

func TestLoadFromReader_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr []string
	}{
		{
			name:    "unknown field",
			yaml:    "server:\n  listen_port: 80\n",
			wantErr: []string{"listen_port"},
		},
		{
			name:    "bad log level",
			yaml:    "server:\n  log_level: bananas\n",
			wantErr: []string{"server.log_level"},
		},
		{
			name:    "empty listen addr",
			yaml:    "server:\n  listen_addr: \"\"\n",
			wantErr: []string{"server.listen_addr"},
		},
		{
			name:    "half tls",
			yaml:    "server:\n  tls:\n    cert_file: cert.pem\n",
			wantErr: []string{"cert_file and key_file"},
		},
		{
			name:    "mcp path without slash",
			yaml:    "server:\n  mcp:\n    enabled: true\n    path: mcp\n",
			wantErr: []string{"server.mcp.path"},
		},
		{
			name:    "unknown backend",
			yaml:    "handoff:\n  backend: etcd\n",
			wantErr: []string{"handoff.backend"},
		},
		{
			name:    "postgres without dsn",
			yaml:    "handoff:\n  backend: postgres\n",
			wantErr: []string{"handoff.postgres_dsn"},
		},
		{
			name:    "zero ttl",
			yaml:    "handoff:\n  ttl: 0s\n",
			wantErr: []string{"handoff.ttl"},
		},
		{
			name:    "failover without threshold",
			yaml:    "handoff:\n  failover:\n    max_failures: 0\n",
			wantErr: []string{"handoff.failover"},
		},
		{
			name:    "command log without database",
			yaml:    "command_log:\n  enabled: true\n",
			wantErr: []string{"command_log.enabled"},
		},
		{
			name:    "empty wake phrase",
			yaml:    "voice:\n  wake_word:\n    phrase: \"\"\n",
			wantErr: []string{"voice.wake_word.phrase"},
		},
		{
			name:    "ratio out of range",
			yaml:    "voice:\n  matching:\n    auto_correct_ratio: 1.5\n",
			wantErr: []string{"voice.matching", "auto_correct_ratio"},
		},
		{
			name:    "negative delay",
			yaml:    "voice:\n  suggestion_delay: -1s\n",
			wantErr: []string{"voice.suggestion_delay"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error should mention %q, got: %v", want, err)
				}
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Server.LogLevel = "loud"
	cfg.Handoff.Backend = "tape"
	cfg.CommandLog.BufferSize = 0

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"server.log_level", "handoff.backend", "command_log.buffer_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_Default(t *testing.T) {
	t.Parallel()

	if err := config.Validate(config.Default()); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}
