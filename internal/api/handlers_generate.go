package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"docforge/internal/pipeline"
	"docforge/internal/schema"
	"github.com/go-chi/chi/v5"
)

const maxRequestBytes = 4 << 20

type generateRequest struct {
	Department   string          `json:"department"`
	DocumentType string          `json:"document_type"`
	DocumentName string          `json:"document_name,omitempty"`
	Items        []schema.QAItem `json:"items"`
	// Optional inline schema. When present it wins over the stored one.
	Schema *schema.Schema `json:"schema,omitempty"`
}

// resolveSchema picks the schema for a generation request: an inline
// schema wins, then the (department, document_name) key when both are
// supplied, then the first schema registered for the document type.
func (s *Server) resolveSchema(r *http.Request, req generateRequest) (*schema.Schema, error) {
	if req.Schema != nil {
		return req.Schema, nil
	}
	if req.Department != "" && req.DocumentName != "" {
		sc, err := s.store.GetSchema(r.Context(), req.Department, req.DocumentName)
		if err != nil || sc != nil {
			return sc, err
		}
	}
	return s.store.FindSchemaByType(r.Context(), req.DocumentType)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocumentType == "" {
		jsonError(w, "document_type is required", http.StatusBadRequest)
		return
	}

	sc, err := s.resolveSchema(r, req)
	if err != nil {
		jsonError(w, "schema lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sc == nil {
		jsonError(w, fmt.Sprintf("no schema for document type %q", req.DocumentType), http.StatusNotFound)
		return
	}

	job := pipeline.NewJob(req.Department, req.DocumentType, req.Items, sc)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/generate/%s", job.ID),
	})
}

func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

type generateSectionRequest struct {
	Department        string          `json:"department"`
	DocumentType      string          `json:"document_type"`
	Section           schema.Section  `json:"section"`
	Items             []schema.QAItem `json:"items"`
	PriorSectionsText string          `json:"prior_sections_text"`
}

// handleGenerateSection runs one section through the full generation
// loop synchronously. Callers assembling a document section by section
// pass the already generated text so the model does not repeat it.
func (s *Server) handleGenerateSection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req generateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Section.Title == "" && len(req.Section.Subsections) == 0 {
		jsonError(w, "section is required", http.StatusBadRequest)
		return
	}

	doc, err := s.agent.GenerateSection(r.Context(), req.Department, req.DocumentType, req.Section, req.Items, req.PriorSectionsText)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"section":  req.Section.Title,
		"document": doc,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
