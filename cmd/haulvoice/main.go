// Command haulvoice is the entry point for the voice command interpreter.
//
// Without flags it serves the WebSocket session endpoint, the REST API and
// the optional MCP tools. With -interpret it resolves a single transcript,
// prints the result as JSON and exits.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/haulvoice/internal/app"
	"github.com/MrWong99/haulvoice/internal/config"
	"github.com/MrWong99/haulvoice/internal/dialogue"
	"github.com/MrWong99/haulvoice/internal/observe"
	"github.com/MrWong99/haulvoice/internal/server"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	transcript := flag.String("interpret", "", "resolve a single transcript, print it as JSON and exit")
	formPresented := flag.Bool("form", false, "with -interpret: treat a form as present on the page")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && *transcript != "":
		cfg = config.Default()
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(os.Stderr, "haulvoice: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		return 1
	default:
		fmt.Fprintf(os.Stderr, "haulvoice: %v\n", err)
		return 1
	}

	if *transcript != "" {
		return interpretOnce(cfg, *transcript, *formPresented)
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Slog())
	slog.SetDefault(newLogger(level))

	slog.Info("haulvoice starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg,
		app.WithLevelVar(level),
		app.WithConfigWatch(*configPath),
		app.WithVersion(version),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

type interpretOutput struct {
	dialogue.Result
	Suggestions []server.SuggestionItem `json:"suggestions,omitempty"`
}

// interpretOnce resolves transcript with the configured tuning and writes the
// result to stdout.
func interpretOnce(cfg *config.Config, transcript string, formPresented bool) int {
	t := app.BuildTuning(cfg)
	res := dialogue.Interpret(t.Matcher, t.Extractor, transcript, formPresented)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(interpretOutput{Result: res, Suggestions: server.SuggestionItems(res.Suggestions)}); err != nil {
		fmt.Fprintf(os.Stderr, "haulvoice: %v\n", err)
		return 1
	}
	return 0
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        haulvoice startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Printf("║  Language        : %-19s ║\n", cfg.Voice.RecognitionLanguage)
	fmt.Printf("║  Spoken feedback : %-19t ║\n", cfg.Voice.SpokenFeedback)
	fmt.Printf("║  Wake word       : %-19s ║\n", onOff(cfg.Voice.WakeWord.Enabled, cfg.Voice.WakeWord.Phrase))
	fmt.Printf("║  Places          : %-19d ║\n", len(cfg.Voice.Places))
	fmt.Printf("║  Hand-off store  : %-19s ║\n", cfg.Handoff.Backend)
	fmt.Printf("║  Command log     : %-19s ║\n", onOff(cfg.CommandLog.Enabled, "postgres"))
	fmt.Printf("║  MCP tools       : %-19s ║\n", onOff(cfg.Server.MCP.Enabled, cfg.Server.MCP.Path))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func onOff(enabled bool, detail string) string {
	if !enabled {
		return "(disabled)"
	}
	return detail
}

func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
