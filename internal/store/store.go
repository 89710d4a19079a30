package store

import (
	"context"
	"encoding/json"
	"time"

	"docforge/internal/schema"
)

// Department identifies an organizational unit owning document types.
type Department struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DocumentType pairs a document type with its display name.
type DocumentType struct {
	DocumentType string `json:"document_type"`
	DocumentName string `json:"document_name"`
}

// QuestionRecord is one persisted question, seeded or gap-origin.
// Gap records are keyed by (document_type, question, is_gap=true);
// re-saving one updates it in place.
type QuestionRecord struct {
	Department     Department        `json:"department"`
	DocumentType   string            `json:"document_type"`
	DocumentName   string            `json:"document_name,omitempty"`
	Question       string            `json:"question"`
	IsGap          bool              `json:"is_gap_question"`
	Category       string            `json:"category,omitempty"`
	AnswerKind     schema.AnswerKind `json:"answer_type,omitempty"`
	SectionCovered string            `json:"section_covered,omitempty"`
	Answer         json.RawMessage   `json:"answer,omitempty"`
	CategoryOrder  int               `json:"category_order,omitempty"`
	QuestionOrder  int               `json:"question_order,omitempty"`
	OrderingRank   int               `json:"ordering_rank,omitempty"`
	AnsweredAt     time.Time         `json:"answered_at,omitempty"`
}

// SchemaStore is read/upsert access to document schemas.
type SchemaStore interface {
	// GetSchema returns the schema keyed by (department, documentName),
	// or nil when absent.
	GetSchema(ctx context.Context, department, documentName string) (*schema.Schema, error)
	// FindSchemaByType returns the first schema for a document type,
	// or nil when absent.
	FindSchemaByType(ctx context.Context, documentType string) (*schema.Schema, error)
	// PutSchema upserts a schema.
	PutSchema(ctx context.Context, s *schema.Schema) error
	// ListDepartments returns distinct departments sorted by code.
	ListDepartments(ctx context.Context) ([]Department, error)
	// ListDocumentTypes returns document types for a department.
	ListDocumentTypes(ctx context.Context, department string) ([]DocumentType, error)
}

// QuestionStore is read/upsert access to question records.
type QuestionStore interface {
	// ListQuestions returns all records for a document type, sorted by
	// (category_order, question_order, ordering_rank).
	ListQuestions(ctx context.Context, documentType string) ([]QuestionRecord, error)
	// ListGapQuestions returns gap-origin records for a document type,
	// sorted by ordering_rank.
	ListGapQuestions(ctx context.Context, documentType string) ([]QuestionRecord, error)
	// UpsertQuestions inserts or updates records. New gap records are
	// assigned an ordering rank strictly greater than any existing rank
	// for the document type.
	UpsertQuestions(ctx context.Context, records []QuestionRecord) (inserted, updated int, err error)
}

// Store combines schema and question storage.
type Store interface {
	SchemaStore
	QuestionStore
	Close() error
}
