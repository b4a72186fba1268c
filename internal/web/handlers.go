package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"speed-monitor/internal/models"
)

type healthResponse struct {
	Status      string                    `json:"status"`
	RunID       string                    `json:"run_id"`
	Uptime      string                    `json:"uptime"`
	LastOutcome models.Outcome            `json:"last_outcome,omitempty"`
	LastCycle   *models.MeasurementRecord `json:"last_cycle,omitempty"`
}

// handleHealth handles /healthz requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "starting",
		RunID:  s.runID,
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}
	if last, ok := s.metrics.Last(); ok {
		resp.Status = "ok"
		resp.LastOutcome = last.Outcome()
		resp.LastCycle = &last
	}

	s.writeJSON(w, r, resp)
}

// handleRecent handles /api/recent requests
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(parsed, 10000)
	}

	records, err := s.recent.GetRecent(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.MeasurementRecord{}
	}

	s.writeJSON(w, r, records)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response write failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
}
