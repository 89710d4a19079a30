package agent

import (
	"docforge/internal/gaps"
	"docforge/internal/schema"
)

// Status is the terminal disposition of a generation run.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
)

// State is the single mutable record threaded through one generation
// run. Inputs are immutable once set; each derived field is owned by
// exactly one stage and written once per attempt. GeneratedDocument is
// the only field overwritten on retry, and every gate evaluation
// replaces (never merges) the prior quality output.
type State struct {
	// Inputs.
	Department   string
	DocumentType string
	Items        []schema.QAItem
	Schema       *schema.Schema

	// Derived, stage-owned.
	GapQuestions       []gaps.Question
	SupplementaryNotes string
	SystemPrompt       string
	GeneratedDocument  string
	QualityScores      map[string]int
	QualityIssues      []string
	QualitySuggestions []string

	RetryCount int
	Status     Status

	// Section-scoped runs carry previously generated sections so the
	// model does not repeat prior content.
	PriorSectionsText string
}

// NewState creates the per-request state for a full-document run.
func NewState(department, documentType string, items []schema.QAItem, s *schema.Schema) *State {
	return &State{
		Department:   department,
		DocumentType: documentType,
		Items:        items,
		Schema:       s,
		Status:       StatusGenerating,
	}
}
