// Package gaps detects schema sections the supplied answers do not
// cover, and memoizes the resulting follow-up questions per document
// type so the analysis model is consulted at most once per type.
package gaps

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"docforge/internal/llm"
	"docforge/internal/schema"
)

// Question is one follow-up question targeting an uncovered schema unit.
type Question struct {
	Question       string            `json:"question"`
	Category       string            `json:"category,omitempty"`
	AnswerKind     schema.AnswerKind `json:"answer_type,omitempty"`
	SectionCovered string            `json:"section_covered,omitempty"`
}

// Detector asks the analysis model which schema units lack coverage.
// Stateless; failures are absorbed and never fatal, so every caller
// must tolerate zero gap questions.
type Detector struct {
	client  llm.Client
	log     *slog.Logger
	timeout time.Duration
}

func NewDetector(client llm.Client, log *slog.Logger, timeout time.Duration) *Detector {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Detector{client: client, log: log, timeout: timeout}
}

const detectorPrompt = `You are an expert business analyst for SaaS companies.

Below is a document schema (all sections the document must cover) and the questions & answers already provided by the user.

## YOUR TASK

1. Classify each schema section/subsection as covered (at least one answer substantively addresses it) or uncovered.
2. For every uncovered unit, emit exactly one targeted follow-up question that would elicit the missing information.

## OUTPUT FORMAT

Return ONLY a JSON array, no commentary:

[
  {"question": "...", "category": "...", "answer_type": "text", "section_covered": "<exact schema section title>"}
]

If every section is adequately covered, return [].`

// Detect issues one analysis call and returns the gap questions plus
// derived supplementary notes for later prompts. On any call or parse
// failure it returns an empty list; this stage is explicitly
// non-fatal.
func (d *Detector) Detect(ctx context.Context, s *schema.Schema, items []schema.QAItem, department, documentType string) ([]Question, string) {
	var sb strings.Builder
	sb.WriteString("Department: " + department + "\n")
	sb.WriteString("Document Type: " + documentType + "\n\n")
	sb.WriteString("## DOCUMENT SCHEMA\n\n")
	sb.WriteString(schema.FormatSchema(s))
	sb.WriteString("\n\n## QUESTIONS & ANSWERS\n\n")
	sb.WriteString(schema.FormatQA(items))

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	raw, err := d.client.Complete(callCtx, llm.Request{
		System:      detectorPrompt,
		User:        sb.String(),
		Temperature: 0.5,
		MaxTokens:   1024,
	})
	if err != nil {
		d.log.Warn("gap analysis call failed, continuing without gap questions", "error", err)
		return nil, ""
	}

	var questions []Question
	if err := llm.ParseJSON(raw, &questions); err != nil {
		d.log.Warn("gap analysis returned unparsable output, continuing without gap questions", "error", err)
		return nil, ""
	}

	cleaned := make([]Question, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		if q.AnswerKind == "" {
			q.AnswerKind = schema.AnswerText
		}
		cleaned = append(cleaned, q)
	}

	return cleaned, SupplementaryNotes(cleaned)
}

// SupplementaryNotes renders one line per gap question so the
// generation stage knows which sections still lack information before
// the user has answered.
func SupplementaryNotes(questions []Question) string {
	if len(questions) == 0 {
		return ""
	}
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		section := q.SectionCovered
		if section == "" {
			section = q.Category
		}
		if section == "" {
			section = "The document"
		}
		lines = append(lines, section+" requires additional information; pending question: "+q.Question)
	}
	return strings.Join(lines, "\n")
}
