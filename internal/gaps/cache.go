package gaps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docforge/internal/schema"
	"docforge/internal/store"
)

// Cache is the cache-first gap-question store. A cache hit for a
// document type skips the analysis model entirely.
type Cache struct {
	questions store.QuestionStore
}

func NewCache(questions store.QuestionStore) *Cache {
	return &Cache{questions: questions}
}

// SaveResult reports what an upsert did.
type SaveResult struct {
	Inserted int `json:"saved"`
	Updated  int `json:"updated"`
}

// Check returns the persisted gap questions for a document type sorted
// by ordering rank, or nil when none exist.
func (c *Cache) Check(ctx context.Context, documentType string) ([]Question, error) {
	records, err := c.questions.ListGapQuestions(ctx, documentType)
	if err != nil {
		return nil, fmt.Errorf("check gap cache: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]Question, 0, len(records))
	for _, rec := range records {
		out = append(out, Question{
			Question:       rec.Question,
			Category:       rec.Category,
			AnswerKind:     rec.AnswerKind,
			SectionCovered: rec.SectionCovered,
		})
	}
	return out, nil
}

// Save upserts answered gap questions. Saving the same question twice
// updates it in place, so repeated saves are idempotent.
func (c *Cache) Save(ctx context.Context, department store.Department, documentType, documentName string, items []schema.QAItem) (SaveResult, error) {
	records := make([]store.QuestionRecord, 0, len(items))
	now := time.Now().UTC()
	for _, item := range items {
		kind := item.AnswerKind
		if kind == "" {
			kind = schema.AnswerText
		}
		records = append(records, store.QuestionRecord{
			Department:     department,
			DocumentType:   documentType,
			DocumentName:   documentName,
			Question:       item.Question,
			IsGap:          true,
			Category:       item.Category,
			AnswerKind:     kind,
			SectionCovered: item.SectionCovered,
			Answer:         answerJSON(item),
			AnsweredAt:     now,
		})
	}

	inserted, updated, err := c.questions.UpsertQuestions(ctx, records)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save gap questions: %w", err)
	}
	return SaveResult{Inserted: inserted, Updated: updated}, nil
}

func answerJSON(item schema.QAItem) []byte {
	if len(item.Answers) > 0 {
		return item.Answers
	}
	if len(item.AnswerList) > 0 {
		if b, err := json.Marshal(item.AnswerList); err == nil {
			return b
		}
	}
	if item.Answer == "" {
		return nil
	}
	b, err := json.Marshal(item.Answer)
	if err != nil {
		return nil
	}
	return b
}
