package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	if s.pages == nil {
		jsonError(w, "pages integration not configured", http.StatusServiceUnavailable)
		return
	}
	parentID := r.URL.Query().Get("parent")
	if parentID == "" {
		jsonError(w, "parent query parameter is required", http.StatusBadRequest)
		return
	}

	found, err := s.pages.ListChildPages(r.Context(), parentID)
	if err != nil {
		// Partial results are still useful; report what was found.
		s.log.Warn("page listing incomplete", "parent", parentID, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"pages": found})
}

type publishRequest struct {
	ParentPageID string `json:"parent_page_id"`
	Title        string `json:"title"`
	Document     string `json:"document"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if s.pages == nil {
		jsonError(w, "pages integration not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.pages.PublishMarkdown(r.Context(), req.ParentPageID, req.Title, req.Document)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
