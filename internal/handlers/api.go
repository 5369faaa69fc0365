package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"birdcam/internal/config"
	"birdcam/internal/logger"
	"birdcam/internal/repository"
	"birdcam/internal/services"
)

// detectionJSON is one entry in the summary payload.
type detectionJSON struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// summaryJSON matches the dashboard poll contract. Count is the lifetime
// total of recorded detections; last_updated is null until the first
// detection is ever recorded.
type summaryJSON struct {
	Count       uint64          `json:"count"`
	LastUpdated *int64          `json:"last_updated"`
	Detections  []detectionJSON `json:"detections"`
}

// DetectionsHandler serves GET /api/detections: a point-in-time snapshot
// of the detection ledger. Always responds, even before any detection.
func DetectionsHandler(manager *services.Manager, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := manager.Ledger().Snapshot()

		payload := summaryJSON{
			Count:      snapshot.Count,
			Detections: make([]detectionJSON, 0, len(snapshot.Detections)),
		}
		if !snapshot.LastUpdated.IsZero() {
			unix := snapshot.LastUpdated.Unix()
			payload.LastUpdated = &unix
		}
		for _, entry := range snapshot.Detections {
			payload.Detections = append(payload.Detections, detectionJSON{
				Label:      entry.Label,
				Confidence: entry.Confidence,
			})
		}

		writeJSON(w, log, payload)
	}
}

// HealthzHandler reports liveness and the capture loop state.
func HealthzHandler(manager *services.Manager, cfg *config.Config, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, map[string]interface{}{
			"status":            "ok",
			"camera_active":     manager.SourceActive(),
			"capture_state":     manager.State().String(),
			"labels":            cfg.LabelsDisplay(),
			"detection_enabled": cfg.DetectionEnabled(),
			"viewers":           manager.Mux().ViewerCount(),
		})
	}
}

// HistoryHandler serves GET /api/history: persisted detection events,
// newest first, optionally filtered by label. Responds 404 when history
// is disabled (no database configured).
func HistoryHandler(repo repository.EventRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			http.Error(w, "History not available", http.StatusNotFound)
			return
		}

		q := r.URL.Query()
		filter := repository.EventFilter{
			Label: q.Get("label"),
			Limit: atoiDefault(q.Get("limit"), 50),
		}

		events, err := repo.Recent(filter)
		if err != nil {
			log.Error("history query failed: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []repository.Event{}
		}

		counts, err := repo.CountByLabel()
		if err != nil {
			log.Error("history counts failed: %v", err)
			counts = map[string]int64{}
		}

		writeJSON(w, log, map[string]interface{}{
			"events": events,
			"counts": counts,
		})
	}
}

func writeJSON(w http.ResponseWriter, log *logger.Logger, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion
// fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
