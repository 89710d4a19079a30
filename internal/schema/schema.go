package schema

import (
	"encoding/json"
	"sort"
	"strings"
)

// SectionKind distinguishes free-text sections from table sections.
type SectionKind string

const (
	KindText  SectionKind = "text"
	KindTable SectionKind = "table"
)

// AnswerKind describes how a question is answered in the UI.
type AnswerKind string

const (
	AnswerText           AnswerKind = "text"
	AnswerSelect         AnswerKind = "select"
	AnswerMultiSelect    AnswerKind = "multi_select"
	AnswerStructuredList AnswerKind = "structured_list"
)

// Schema is the required shape of a generated document: an ordered set
// of sections, each either free text with subsections or a flat table.
// Loaded once per generation request and immutable for the run.
type Schema struct {
	Department   string    `json:"department,omitempty"`
	DocumentName string    `json:"document_name,omitempty"`
	DocumentType string    `json:"document_type,omitempty"`
	Sections     []Section `json:"sections"`
}

// Section is one top-level unit of a schema. Table-only sections carry
// columns directly and may omit the title; compound sections carry
// ordered subsections.
type Section struct {
	Title       string       `json:"title,omitempty"`
	Kind        SectionKind  `json:"type"`
	Order       int          `json:"order"`
	Subsections []Subsection `json:"subsections,omitempty"`
	Columns     []string     `json:"columns,omitempty"`
}

// Subsection is a required heading inside a compound section.
type Subsection struct {
	Title   string      `json:"title"`
	Kind    SectionKind `json:"type"`
	Order   int         `json:"order"`
	Columns []string    `json:"columns,omitempty"`
}

// IsTableOnly reports whether every section is a direct table with no
// subsections. This single predicate selects the generation and
// validation strategy for the whole document.
func (s *Schema) IsTableOnly() bool {
	if s == nil || len(s.Sections) == 0 {
		return false
	}
	for _, sec := range s.Sections {
		if sec.Kind != KindTable || len(sec.Subsections) > 0 {
			return false
		}
	}
	return true
}

// TableColumns returns the column list of the first table section.
func (s *Schema) TableColumns() []string {
	for _, sec := range s.Sections {
		if sec.Kind == KindTable {
			return sec.Columns
		}
	}
	return nil
}

// TableTitle returns the display title for a table-only schema. Table
// sections frequently omit the title key, so fall back to the
// document-level name fields.
func (s *Schema) TableTitle() string {
	for _, sec := range s.Sections {
		if sec.Kind == KindTable {
			if t := strings.TrimSpace(sec.Title); t != "" {
				return t
			}
		}
	}
	if t := strings.TrimSpace(s.DocumentName); t != "" {
		return t
	}
	if t := strings.TrimSpace(s.DocumentType); t != "" {
		return t
	}
	return "Data Table"
}

// RequiredUnit is one heading the document must contain, flattened from
// the schema's subsections in order.
type RequiredUnit struct {
	Title   string
	Kind    SectionKind
	Columns []string
}

// RequiredUnits flattens the schema into the ordered list of required
// headings. For compound schemas these are the subsection titles; the
// parent section titles organize but are not independently required.
// Titled sections without subsections are required directly.
func (s *Schema) RequiredUnits() []RequiredUnit {
	var units []RequiredUnit
	for _, sec := range s.Sections {
		if len(sec.Subsections) > 0 {
			subs := append([]Subsection(nil), sec.Subsections...)
			sort.SliceStable(subs, func(i, j int) bool { return subs[i].Order < subs[j].Order })
			for _, sub := range subs {
				if t := strings.TrimSpace(sub.Title); t != "" {
					units = append(units, RequiredUnit{Title: t, Kind: sub.Kind, Columns: sub.Columns})
				}
			}
			continue
		}
		if t := strings.TrimSpace(sec.Title); t != "" {
			units = append(units, RequiredUnit{Title: t, Kind: sec.Kind, Columns: sec.Columns})
		}
	}
	return units
}

// ParentTitles returns the top-level section titles. These wrap
// subsections in compound schemas and are permitted (but not required)
// as document headings.
func (s *Schema) ParentTitles() []string {
	var titles []string
	for _, sec := range s.Sections {
		if t := strings.TrimSpace(sec.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

// QAItem is one question/answer unit supplied by the caller.
type QAItem struct {
	Question       string          `json:"question"`
	Answer         string          `json:"answer,omitempty"`
	AnswerList     []string        `json:"answer_list,omitempty"`
	Answers        json.RawMessage `json:"answers,omitempty"`
	Category       string          `json:"category,omitempty"`
	AnswerKind     AnswerKind      `json:"answer_type,omitempty"`
	IsGapQuestion  bool            `json:"is_gap_question,omitempty"`
	SectionCovered string          `json:"section_covered,omitempty"`
}

// HasAnswer reports whether the item carries any answer content. Items
// without one contribute no coverage and are excluded from formatted
// output.
func (q QAItem) HasAnswer() bool {
	if strings.TrimSpace(q.Answer) != "" {
		return true
	}
	for _, v := range q.AnswerList {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return q.AnswerKind == AnswerStructuredList && len(q.Answers) > 0 && string(q.Answers) != "null"
}

// AnswerText renders the answer as a single prompt-ready string.
func (q QAItem) AnswerText() string {
	if q.AnswerKind == AnswerStructuredList && len(q.Answers) > 0 && string(q.Answers) != "null" {
		var pretty any
		if err := json.Unmarshal(q.Answers, &pretty); err == nil {
			if b, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				return string(b)
			}
		}
		return string(q.Answers)
	}
	if len(q.AnswerList) > 0 {
		parts := make([]string, 0, len(q.AnswerList))
		for _, v := range q.AnswerList {
			if s := strings.TrimSpace(v); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(q.Answer)
}
