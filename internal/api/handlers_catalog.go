package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := s.store.ListDepartments(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"departments": departments})
}

func (s *Server) handleListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	department := r.URL.Query().Get("department")
	if department == "" {
		jsonError(w, "department query parameter is required", http.StatusBadRequest)
		return
	}
	types, err := s.store.ListDocumentTypes(r.Context(), department)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"department":     department,
		"document_types": types,
	})
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	documentType := r.URL.Query().Get("document_type")
	if documentType == "" {
		jsonError(w, "document_type query parameter is required", http.StatusBadRequest)
		return
	}
	records, err := s.store.ListQuestions(r.Context(), documentType)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"document_type": documentType,
		"questions":     records,
	})
}
