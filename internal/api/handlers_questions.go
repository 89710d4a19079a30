package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"docforge/internal/agent"
	"docforge/internal/schema"
	"docforge/internal/store"
)

type gapQuestionsRequest struct {
	Department   string          `json:"department"`
	DocumentType string          `json:"document_type"`
	Items        []schema.QAItem `json:"items"`
}

// handleGapQuestions returns the gap questions for a document type.
// Persisted questions win; detection only runs on a cache miss, so
// answered question sets stay stable across repeated calls.
func (s *Server) handleGapQuestions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req gapQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocumentType == "" {
		jsonError(w, "document_type is required", http.StatusBadRequest)
		return
	}

	sc, err := s.store.FindSchemaByType(r.Context(), req.DocumentType)
	if err != nil {
		jsonError(w, "schema lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sc == nil {
		jsonError(w, fmt.Sprintf("no schema for document type %q", req.DocumentType), http.StatusNotFound)
		return
	}

	st := agent.NewState(req.Department, req.DocumentType, req.Items, sc)
	questions, fromCache, err := s.agent.AnalyzeGapsOnly(r.Context(), st)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	source := "analysis"
	if fromCache {
		source = "cache"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"document_type": req.DocumentType,
		"questions":     questions,
		"source":        source,
		"count":         len(questions),
	})
}

type saveQuestionsRequest struct {
	Department   store.Department `json:"department"`
	DocumentType string           `json:"document_type"`
	DocumentName string           `json:"document_name"`
	Items        []schema.QAItem  `json:"items"`
}

func (s *Server) handleSaveQuestions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req saveQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocumentType == "" {
		jsonError(w, "document_type is required", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		jsonError(w, "items is required", http.StatusBadRequest)
		return
	}

	result, err := s.cache.Save(r.Context(), req.Department, req.DocumentType, req.DocumentName, req.Items)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
