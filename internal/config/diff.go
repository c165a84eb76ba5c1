package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// MatchingChanged is set when scoring weights or thresholds changed.
	MatchingChanged bool

	// WakeWordChanged is set when the wake phrase, its tolerances or its
	// timings changed.
	WakeWordChanged bool

	// PlacesChanged is set when the known place list changed.
	PlacesChanged bool

	// FeedbackChanged is set when spoken feedback or the suggestion delay
	// changed.
	FeedbackChanged bool

	// RestartRequired lists changed sections that are only read at startup.
	RestartRequired []string
}

// Any reports whether anything changed.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.MatchingChanged || d.WakeWordChanged ||
		d.PlacesChanged || d.FeedbackChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Voice.Matching != new.Voice.Matching {
		d.MatchingChanged = true
	}
	if !reflect.DeepEqual(old.Voice.WakeWord, new.Voice.WakeWord) {
		d.WakeWordChanged = true
	}
	if !slices.Equal(old.Voice.Places, new.Voice.Places) {
		d.PlacesChanged = true
	}
	if old.Voice.SpokenFeedback != new.Voice.SpokenFeedback ||
		old.Voice.SuggestionDelay != new.Voice.SuggestionDelay ||
		old.Voice.RecognitionLanguage != new.Voice.RecognitionLanguage {
		d.FeedbackChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!reflect.DeepEqual(old.Server.TLS, new.Server.TLS) ||
		!slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) ||
		old.Server.MCP != new.Server.MCP {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if old.Handoff != new.Handoff {
		d.RestartRequired = append(d.RestartRequired, "handoff")
	}
	if old.CommandLog != new.CommandLog {
		d.RestartRequired = append(d.RestartRequired, "command_log")
	}
	return d
}
