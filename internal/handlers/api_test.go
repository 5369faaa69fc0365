package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"birdcam/internal/config"
	"birdcam/internal/logger"
	"birdcam/internal/repository"
	"birdcam/internal/services"
	"birdcam/internal/services/ledger"
	"birdcam/internal/services/stream"
)

func handlerFixture() (*services.Manager, *config.Config) {
	cfg := &config.Config{
		ModelPath:       "models/frozen_inference_graph.pb",
		Labels:          []string{"bird"},
		MinConfidence:   0.4,
		DetectionStride: 3,
		LedgerCapacity:  20,
	}
	bus := stream.NewBus()
	mux := stream.NewMux(bus)
	m := services.NewManager(cfg, logger.Discard(), bus, mux,
		ledger.New(cfg.LedgerCapacity), nil, nil, nil)
	return m, cfg
}

func TestDetectionsHandler_EmptyLedger(t *testing.T) {
	m, _ := handlerFixture()
	handler := DetectionsHandler(m, logger.Discard())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/detections", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	want := `{"count":0,"last_updated":null,"detections":[]}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestDetectionsHandler_PopulatedLedger(t *testing.T) {
	m, _ := handlerFixture()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.Ledger().Record([]ledger.Entry{
		{Label: "bird", Confidence: 0.8, Timestamp: now},
	}, now)
	m.Ledger().Record([]ledger.Entry{
		{Label: "bird", Confidence: 0.95, Timestamp: now.Add(time.Minute)},
	}, now.Add(time.Minute))

	rec := httptest.NewRecorder()
	DetectionsHandler(m, logger.Discard())(rec, httptest.NewRequest(http.MethodGet, "/api/detections", nil))

	var payload struct {
		Count       uint64 `json:"count"`
		LastUpdated *int64 `json:"last_updated"`
		Detections  []struct {
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if payload.Count != 2 {
		t.Errorf("expected lifetime count 2, got %d", payload.Count)
	}
	if payload.LastUpdated == nil || *payload.LastUpdated != now.Add(time.Minute).Unix() {
		t.Errorf("unexpected last_updated %v", payload.LastUpdated)
	}
	if len(payload.Detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(payload.Detections))
	}
	// Most recent first.
	if payload.Detections[0].Confidence != 0.95 {
		t.Errorf("expected newest detection first, got %+v", payload.Detections[0])
	}
}

func TestHealthzHandler(t *testing.T) {
	m, cfg := handlerFixture()

	rec := httptest.NewRecorder()
	HealthzHandler(m, cfg, logger.Discard())(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if payload["status"] != "ok" {
		t.Errorf("status = %v", payload["status"])
	}
	if payload["camera_active"] != false {
		t.Errorf("camera_active = %v before start", payload["camera_active"])
	}
	if payload["capture_state"] != "idle" {
		t.Errorf("capture_state = %v", payload["capture_state"])
	}
	if payload["detection_enabled"] != true {
		t.Errorf("detection_enabled = %v", payload["detection_enabled"])
	}
	if payload["viewers"] != float64(0) {
		t.Errorf("viewers = %v", payload["viewers"])
	}
}

type stubEventRepo struct {
	lastFilter repository.EventFilter
	events     []repository.Event
	counts     map[string]int64
}

func (s *stubEventRepo) InsertBatch([]repository.Event) error { return nil }

func (s *stubEventRepo) Recent(filter repository.EventFilter) ([]repository.Event, error) {
	s.lastFilter = filter
	return s.events, nil
}

func (s *stubEventRepo) CountByLabel() (map[string]int64, error) { return s.counts, nil }

func TestHistoryHandler_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	HistoryHandler(nil, logger.Discard())(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a database, got %d", rec.Code)
	}
}

func TestHistoryHandler_QueryParams(t *testing.T) {
	repo := &stubEventRepo{
		events: []repository.Event{{ID: 1, Label: "bird", Confidence: 0.8}},
		counts: map[string]int64{"bird": 1},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history?label=bird&limit=10", nil)
	HistoryHandler(repo, logger.Discard())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.lastFilter.Label != "bird" || repo.lastFilter.Limit != 10 {
		t.Errorf("filter not applied: %+v", repo.lastFilter)
	}

	var payload struct {
		Events []repository.Event `json:"events"`
		Counts map[string]int64   `json:"counts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(payload.Events) != 1 || payload.Counts["bird"] != 1 {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestHistoryHandler_NilEventsRenderAsEmptyList(t *testing.T) {
	repo := &stubEventRepo{}

	rec := httptest.NewRecorder()
	HistoryHandler(repo, logger.Discard())(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Errorf("nil result should serialize as [], got %s", rec.Body.String())
	}
}

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		in   string
		def  int
		want int
	}{
		{"10", 50, 10},
		{"", 50, 50},
		{"abc", 50, 50},
		{"0", 50, 50},
		{"-3", 50, 50},
	}

	for _, tt := range tests {
		if got := atoiDefault(tt.in, tt.def); got != tt.want {
			t.Errorf("atoiDefault(%q, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}
