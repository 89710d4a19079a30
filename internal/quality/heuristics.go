package quality

import (
	"fmt"
	"strings"

	"docforge/internal/schema"
	"docforge/internal/validate"
)

const (
	minDocumentLength = 400
	minHeadingCount   = 3
	minSectionLength  = 120
)

var placeholderTokens = []string{
	"tbd",
	"to be determined",
	"lorem ipsum",
	"[insert",
	"[company name]",
	"[your team]",
	"insert here",
	"xxx",
}

// heuristicReview is the rule-based fallback used when the semantic
// reviewer is unreachable or returns garbage. Deliberately permissive:
// it rejects only clear defects, so an unavailable reviewer does not
// block structurally valid documents.
func heuristicReview(documentText string, s *schema.Schema) Result {
	var issues []string
	text := strings.TrimSpace(documentText)
	lower := strings.ToLower(text)

	if len(text) < minDocumentLength {
		issues = append(issues, fmt.Sprintf("Document too short: %d characters (minimum %d)", len(text), minDocumentLength))
	}

	for _, token := range placeholderTokens {
		if strings.Contains(lower, token) {
			issues = append(issues, fmt.Sprintf("Placeholder text found: %q", token))
			break
		}
	}

	headings := validate.ExtractHeadings(documentText)
	if len(headings) < minHeadingCount {
		issues = append(issues, fmt.Sprintf("Too few headings: %d (minimum %d)", len(headings), minHeadingCount))
	}

	// Content under each top-level heading must not be trivially thin.
	// A section spans until the next heading of the same or a higher
	// level, so subsection text counts toward its parent and the
	// document title is measured over the whole body.
	lines := strings.Split(documentText, "\n")
	for i, h := range headings {
		if h.Level > 2 {
			continue
		}
		end := len(lines)
		for j := i + 1; j < len(headings); j++ {
			if headings[j].Level <= h.Level {
				end = headings[j].Line
				break
			}
		}
		var body int
		for _, line := range lines[min(h.Line+1, len(lines)):min(end, len(lines))] {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") {
				continue
			}
			body += len(trimmed)
		}
		if body < minSectionLength {
			issues = append(issues, fmt.Sprintf("Section %q is too thin (%d characters of content)", h.Text, body))
		}
	}

	passed := len(issues) == 0
	score := 4
	if !passed {
		score = 2
	}
	return Result{
		Passed:       passed,
		Scores:       map[string]int{"heuristic": score},
		OverallScore: score,
		Issues:       issues,
		Suggestions:  heuristicSuggestions(issues),
	}
}

func heuristicSuggestions(issues []string) []string {
	if len(issues) == 0 {
		return nil
	}
	return []string{
		"Expand thin sections to at least 2-3 substantive sentences each",
		"Replace placeholder tokens with concrete, specific content",
	}
}
