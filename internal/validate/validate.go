// Package validate deterministically checks a generated document's
// headings and table columns against its schema. No model involvement:
// the output is a typed violation list consumed by the quality gate.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"docforge/internal/schema"
)

// ViolationKind classifies a structural violation.
type ViolationKind string

const (
	// Missing: a required subsection heading is absent.
	Missing ViolationKind = "missing"
	// Extra: the document contains a heading the schema does not allow.
	Extra ViolationKind = "extra"
	// TableMismatch: a table subsection lacks a table or has wrong columns.
	TableMismatch ViolationKind = "table_mismatch"
)

// Violation is one structural defect. Never persisted; consumed
// immediately by the quality gate.
type Violation struct {
	Kind         ViolationKind `json:"kind"`
	Message      string        `json:"message"`
	SectionTitle string        `json:"section_title,omitempty"`
}

var (
	numberPrefixRe = regexp.MustCompile(`^\d+(\.\d+)*\.?\s*`)
	punctuationRe  = regexp.MustCompile(`[^\w\s]`)
	separatorRowRe = regexp.MustCompile(`\|[\s:\-|]+\|`)
)

// NormalizeHeading normalizes a heading for tolerant but content-strict
// comparison: strips # markers, leading number prefixes like "4.1 ",
// and punctuation, lowercases, and collapses whitespace. Models
// reformat numbering and punctuation freely; genuinely renamed or
// fabricated sections must still be caught.
func NormalizeHeading(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimLeft(text, "#")
	text = strings.TrimSpace(text)
	text = numberPrefixRe.ReplaceAllString(text, "")
	text = punctuationRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Validate compares documentText against the schema and returns all
// violations from all checks together. Pure function, no I/O.
//
// Table-only schemas return nil unconditionally: they have no headings
// to reconcile, and column correctness is checked deterministically by
// the quality gate's table extraction.
func Validate(documentText string, s *schema.Schema) []Violation {
	if s == nil || s.IsTableOnly() {
		return nil
	}

	required := s.RequiredUnits()
	if len(required) == 0 {
		return nil
	}

	docLines := strings.Split(documentText, "\n")
	docHeadings := ExtractHeadings(documentText)
	normHeadings := make([]string, len(docHeadings))
	for i, h := range docHeadings {
		normHeadings[i] = NormalizeHeading(h.Text)
	}

	var violations []Violation

	// Check 1: every required subsection title must appear as a heading.
	normRequired := make([]string, len(required))
	for i, unit := range required {
		normRequired[i] = NormalizeHeading(unit.Title)
		found := false
		for _, norm := range normHeadings {
			if strings.Contains(norm, normRequired[i]) {
				found = true
				break
			}
		}
		if !found {
			violations = append(violations, Violation{
				Kind:         Missing,
				Message:      fmt.Sprintf("Missing required section: %q", unit.Title),
				SectionTitle: unit.Title,
			})
		}
	}

	// Check 2: every document heading must match a required title or an
	// allowed skip entry (document name, document type, parent section
	// titles, which organize but are not independently required).
	skip := make([]string, 0, 4)
	if n := NormalizeHeading(s.DocumentName); n != "" {
		skip = append(skip, n)
	}
	if n := NormalizeHeading(s.DocumentType); n != "" {
		skip = append(skip, n)
	}
	for _, parent := range s.ParentTitles() {
		if n := NormalizeHeading(parent); n != "" {
			skip = append(skip, n)
		}
	}

	for i, h := range docHeadings {
		norm := normHeadings[i]
		if norm == "" {
			continue
		}
		if containsEither(normRequired, norm) || containsEither(skip, norm) {
			continue
		}
		violations = append(violations, Violation{
			Kind:         Extra,
			Message:      fmt.Sprintf("Extra section not in schema: %q — remove it, the document must only contain schema-defined sections", h.Text),
			SectionTitle: h.Text,
		})
	}

	// Check 3: table subsections must contain a pipe-delimited table
	// with the schema's exact columns under their heading.
	for i, unit := range required {
		if unit.Kind != schema.KindTable {
			continue
		}
		violations = append(violations, checkTable(unit, normRequired[i], docLines, docHeadings, normHeadings)...)
	}

	return violations
}

// containsEither reports whether norm matches any allowed entry by
// substring containment in either direction, tolerating numbering or
// wording the model prepended or trimmed.
func containsEither(allowed []string, norm string) bool {
	for _, a := range allowed {
		if a == "" {
			continue
		}
		if strings.Contains(norm, a) || strings.Contains(a, norm) {
			return true
		}
	}
	return false
}

func checkTable(unit schema.RequiredUnit, normTitle string, docLines []string, headings []Heading, normHeadings []string) []Violation {
	headingIdx := -1
	for i, norm := range normHeadings {
		if strings.Contains(norm, normTitle) {
			headingIdx = i
			break
		}
	}
	if headingIdx == -1 {
		// Already reported as Missing.
		return nil
	}

	start := headings[headingIdx].Line
	end := len(docLines)
	for _, h := range headings[headingIdx+1:] {
		if h.Line > start {
			end = h.Line
			break
		}
	}
	if start > len(docLines) {
		start = len(docLines)
	}
	block := docLines[start:end]
	blockText := strings.Join(block, "\n")

	if !strings.Contains(blockText, "|") || !separatorRowRe.MatchString(blockText) {
		return []Violation{{
			Kind:         TableMismatch,
			Message:      fmt.Sprintf("Section %q must contain a Markdown table (expected columns: %s)", unit.Title, strings.Join(unit.Columns, ", ")),
			SectionTitle: unit.Title,
		}}
	}

	if len(unit.Columns) == 0 {
		return nil
	}
	var headerCells []string
	for _, line := range block {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") {
			headerCells = SplitTableRow(trimmed)
			break
		}
	}
	if !columnsEqualFold(unit.Columns, headerCells) {
		return []Violation{{
			Kind:         TableMismatch,
			Message:      fmt.Sprintf("Section %q has wrong table columns. Expected: [%s]. Got: [%s]", unit.Title, strings.Join(unit.Columns, ", "), strings.Join(headerCells, ", ")),
			SectionTitle: unit.Title,
		}}
	}
	return nil
}

// SplitTableRow splits a pipe-delimited row into trimmed, non-empty cells.
func SplitTableRow(line string) []string {
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// columnsEqualFold compares column lists case-insensitively and
// order-sensitively.
func columnsEqualFold(expected, actual []string) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if !strings.EqualFold(strings.TrimSpace(expected[i]), strings.TrimSpace(actual[i])) {
			return false
		}
	}
	return true
}
