package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/cmdlog"
	"github.com/MrWong99/haulvoice/internal/intent"
	"github.com/MrWong99/haulvoice/internal/observe"
	"github.com/MrWong99/haulvoice/internal/server"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []cmdlog.Entry
}

func (r *captureRecorder) Record(_ context.Context, e cmdlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *captureRecorder) all() []cmdlog.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cmdlog.Entry(nil), r.entries...)
}

func serveAPI(t *testing.T, s *server.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	s.Register(mux)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeInterpret(t *testing.T, rec *httptest.ResponseRecorder) server.InterpretResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	var resp server.InterpretResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestInterpret_Recognized(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	resp := decodeInterpret(t, serveAPI(t, s, "POST", "/api/v1/interpret", `{"transcript":"Go home!"}`))

	if resp.Intent != catalog.GoHome {
		t.Errorf("intent = %q, want %q", resp.Intent, catalog.GoHome)
	}
	if resp.Outcome != intent.OutcomeRecognized {
		t.Errorf("outcome = %q, want recognized", resp.Outcome)
	}
	if resp.Confidence != 1 {
		t.Errorf("confidence = %g, want 1", resp.Confidence)
	}
	if resp.Transcript != "go home" {
		t.Errorf("transcript = %q, want normalized %q", resp.Transcript, "go home")
	}
}

func TestInterpret_Entities(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	resp := decodeInterpret(t, serveAPI(t, s, "POST", "/api/v1/interpret", `{"transcript":"`+truckTranscript+`"}`))

	if resp.Intent != catalog.AddTruck {
		t.Fatalf("intent = %q, want add_truck", resp.Intent)
	}
	if resp.Entities.VehicleNumber != "MH12AB1234" {
		t.Errorf("vehicleNumber = %q, want MH12AB1234", resp.Entities.VehicleNumber)
	}
	if resp.Entities.Contact != "9876543210" {
		t.Errorf("contact = %q, want 9876543210", resp.Entities.Contact)
	}
}

func TestInterpret_SubmitNeedsForm(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	withForm := decodeInterpret(t, serveAPI(t, s, "POST", "/api/v1/interpret", `{"transcript":"submit form","form_presented":true}`))
	if withForm.Intent != catalog.SubmitForm {
		t.Errorf("with form: intent = %q, want submit_form", withForm.Intent)
	}
	without := decodeInterpret(t, serveAPI(t, s, "POST", "/api/v1/interpret", `{"transcript":"submit form"}`))
	if without.Intent == catalog.SubmitForm {
		t.Error("without form: submit_form must not be resolved")
	}
}

func TestInterpret_UnrecognizedHasSuggestions(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	resp := decodeInterpret(t, serveAPI(t, s, "POST", "/api/v1/interpret", `{"transcript":"xylophone quartz"}`))

	if resp.Outcome != intent.OutcomeUnrecognized {
		t.Fatalf("outcome = %q, want unrecognized", resp.Outcome)
	}
	if len(resp.Suggestions) == 0 {
		t.Fatal("expected suggestions")
	}
	for _, s := range resp.Suggestions {
		if s.Phrase == "" || !s.Intent.IsValid() {
			t.Errorf("incomplete suggestion %+v", s)
		}
	}
}

func TestInterpret_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty transcript", `{"transcript":"   "}`, http.StatusBadRequest},
		{"unknown field", `{"transcript":"go home","extra":1}`, http.StatusBadRequest},
		{"not json", `go home`, http.StatusBadRequest},
		{"too large", `{"transcript":"` + strings.Repeat("a", 70<<10) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newServer(t)
			rec := serveAPI(t, s, "POST", "/api/v1/interpret", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("expected JSON error body, got %v (decode err %v)", body, err)
			}
		})
	}
}

func TestInterpret_RecordsCommandLog(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{}
	s := newServer(t, server.WithRecorder(rec))
	decodeInterpret(t, serveAPI(t, s, "POST", "/api/v1/interpret", `{"transcript":"`+truckTranscript+`"}`))

	entries := rec.all()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.SessionID != "api" || e.Intent != "add_truck" || e.Outcome != "recognized" {
		t.Errorf("entry = %+v", e)
	}
	if !strings.Contains(string(e.Entities), "MH12AB1234") {
		t.Errorf("entities = %s, want the plate", e.Entities)
	}
}

func TestInterpret_UnrecognizedIntentLabel(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	s := newServer(t, server.WithMetrics(m))
	decodeInterpret(t, serveAPI(t, s, "POST", "/api/v1/interpret", `{"transcript":"xylophone quartz"}`))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var labels []string
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "haulvoice.utterances" {
				continue
			}
			for _, dp := range met.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("intent"))
				labels = append(labels, v.AsString())
			}
		}
	}
	if len(labels) != 1 || labels[0] != catalog.None.String() {
		t.Errorf("intent labels = %q, want [%q] as on the session path", labels, catalog.None.String())
	}
}

func TestCommands(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	rec := serveAPI(t, s, "GET", "/api/v1/commands", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp server.CommandsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Commands) != catalog.Default().Len() {
		t.Errorf("commands = %d, want %d", len(resp.Commands), catalog.Default().Len())
	}
	want := []catalog.Intent{catalog.AddTruck, catalog.AddDelivery, catalog.GoDashboard}
	if len(resp.Common) != len(want) {
		t.Fatalf("common = %v, want %v", resp.Common, want)
	}
	for i := range want {
		if resp.Common[i] != want[i] {
			t.Errorf("common[%d] = %q, want %q", i, resp.Common[i], want[i])
		}
	}
}

func TestCommands_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	if rec := serveAPI(t, s, "POST", "/api/v1/commands", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
