package api

import (
	"encoding/json"
	"net/http"

	"docforge/internal/llm"
)

type statsSource interface {
	StatsSnapshot() llm.StatsSnapshot
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	src, ok := s.primary.(statsSource)
	if !ok {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":       s.primary.Model(),
		"stats":       src.StatsSnapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
