package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/cmdlog"
	"github.com/MrWong99/haulvoice/internal/dialogue"
	"github.com/MrWong99/haulvoice/internal/observe"
)

const maxBodyBytes = 64 << 10

// apiSessionID tags command log entries that came through the stateless API.
const apiSessionID = "api"

// InterpretRequest is the body of POST /api/v1/interpret.
type InterpretRequest struct {
	Transcript    string `json:"transcript"`
	FormPresented bool   `json:"form_presented"`
}

// InterpretResponse is the reply of POST /api/v1/interpret.
type InterpretResponse struct {
	dialogue.Result
	Suggestions []SuggestionItem `json:"suggestions,omitempty"`
}

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	var req InterpretRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}

	ctx, span := observe.StartInterpret(r.Context(), observe.SurfaceREST, "")
	t := s.tuning.Load()
	start := time.Now()
	res := dialogue.Interpret(t.Matcher, t.Extractor, req.Transcript, req.FormPresented)
	observe.EndInterpret(span, res.Intent.String(), string(res.Outcome), res.Confidence)
	s.metrics.InterpretDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.RecordUtterance(ctx, string(res.Outcome), res.Intent.String())

	entry := cmdlog.Entry{
		SessionID:  apiSessionID,
		Transcript: res.Transcript,
		Intent:     string(res.Intent),
		Outcome:    string(res.Outcome),
		Confidence: res.Confidence,
		CreatedAt:  start,
	}
	if data, err := json.Marshal(res.Entities); err == nil {
		entry.Entities = data
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		observe.Logger(ctx).Warn("server: command log write failed", "err", err)
	}

	writeJSON(w, http.StatusOK, InterpretResponse{
		Result:      res,
		Suggestions: SuggestionItems(res.Suggestions),
	})
}

// CommandsResponse is the reply of GET /api/v1/commands.
type CommandsResponse struct {
	Commands []catalog.Info   `json:"commands"`
	Common   []catalog.Intent `json:"common"`
}

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	c := s.tuning.Load().Matcher.Catalog()
	resp := CommandsResponse{Commands: catalog.Infos(c.All())}
	for _, cmd := range c.Common() {
		resp.Common = append(resp.Common, cmd.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
