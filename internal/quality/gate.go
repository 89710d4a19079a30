// Package quality decides pass/fail for a generated document. It
// composes the deterministic structural validator with an optional
// semantic model review, which runs only when structural checks pass.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docforge/internal/llm"
	"docforge/internal/schema"
	"docforge/internal/validate"
)

// Result is the gate's decision for one document attempt. Each
// evaluation replaces any prior result wholesale.
type Result struct {
	Passed       bool           `json:"passed"`
	Scores       map[string]int `json:"scores,omitempty"`
	OverallScore int            `json:"overall_score,omitempty"`
	Issues       []string       `json:"issues,omitempty"`
	Suggestions  []string       `json:"suggestions,omitempty"`
	// CorrectedText is set on the table-only pass path, where the
	// output is reconstructed as heading + table only.
	CorrectedText string `json:"-"`
}

// Gate evaluates generated documents. The reviewer client is the
// primary model profile; when it is unreachable or returns unparsable
// output, a lenient rule-based fallback decides instead.
type Gate struct {
	reviewer llm.Client
	log      *slog.Logger
	timeout  time.Duration
}

func NewGate(reviewer llm.Client, log *slog.Logger, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gate{reviewer: reviewer, log: log, timeout: timeout}
}

// Evaluate runs the full quality decision for one document attempt.
func (g *Gate) Evaluate(ctx context.Context, documentText string, s *schema.Schema, department, documentType string) Result {
	if s.IsTableOnly() {
		return evaluateTableOnly(documentText, s)
	}
	return g.evaluateCompound(ctx, documentText, s, department, documentType)
}

// evaluateTableOnly is the fully deterministic path for table-only
// schemas: extract the heading and table lines, verify the columns, and
// reconstruct the output as heading + table only, discarding any other
// prose the model emitted.
func evaluateTableOnly(documentText string, s *schema.Schema) Result {
	var heading string
	var tableLines []string
	for _, raw := range strings.Split(documentText, "\n") {
		line := strings.TrimSpace(raw)
		if heading == "" && strings.HasPrefix(line, "# ") {
			heading = line
			continue
		}
		if strings.HasPrefix(line, "|") {
			tableLines = append(tableLines, line)
		}
	}

	// Header + separator + at least one data row.
	if len(tableLines) < 3 {
		return Result{
			Passed: false,
			Scores: map[string]int{"structure": 1},
			Issues: []string{fmt.Sprintf("No table found — the document must be a Markdown table with columns: %s", strings.Join(s.TableColumns(), ", "))},
			Suggestions: []string{
				"Output the document as a single Markdown table with a header row, a separator row, and data rows",
			},
		}
	}

	expected := s.TableColumns()
	actual := validate.SplitTableRow(tableLines[0])
	if !columnsMatch(expected, actual) {
		return Result{
			Passed: false,
			Scores: map[string]int{"structure": 1},
			Issues: []string{fmt.Sprintf("Wrong table columns. Expected: [%s]. Got: [%s]", strings.Join(expected, ", "), strings.Join(actual, ", "))},
			Suggestions: []string{
				"Use the exact column headers from the schema, in order, without renaming or adding columns",
			},
		}
	}

	if heading == "" {
		heading = "# " + s.TableTitle()
	}
	return Result{
		Passed:        true,
		Scores:        map[string]int{"structure": 5},
		OverallScore:  5,
		CorrectedText: heading + "\n\n" + strings.Join(tableLines, "\n"),
	}
}

// evaluateCompound runs the structural validator as a hard gate, then
// the semantic review. Structural violations fail immediately no matter
// how good the prose is.
func (g *Gate) evaluateCompound(ctx context.Context, documentText string, s *schema.Schema, department, documentType string) Result {
	violations := validate.Validate(documentText, s)
	if len(violations) > 0 {
		return structuralFailure(violations)
	}
	return g.semanticReview(ctx, documentText, s, department, documentType)
}

// structuralFailure converts violations into a failed result with one
// templated remediation instruction per violation kind.
func structuralFailure(violations []validate.Violation) Result {
	issues := make([]string, 0, len(violations))
	var missing, extra, tables []string
	for _, v := range violations {
		issues = append(issues, v.Message)
		switch v.Kind {
		case validate.Missing:
			missing = append(missing, v.SectionTitle)
		case validate.Extra:
			extra = append(extra, v.SectionTitle)
		case validate.TableMismatch:
			tables = append(tables, v.SectionTitle)
		}
	}

	var suggestions []string
	if len(missing) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Add the missing sections with their exact schema titles: %s", strings.Join(missing, "; ")))
	}
	if len(extra) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Remove the sections that are not in the schema: %s", strings.Join(extra, "; ")))
	}
	if len(tables) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Rewrite these sections as Markdown tables with the exact schema columns: %s", strings.Join(tables, "; ")))
	}

	return Result{
		Passed:      false,
		Scores:      map[string]int{"structure": 1},
		Issues:      issues,
		Suggestions: suggestions,
	}
}

type reviewResponse struct {
	Scores       map[string]int `json:"scores"`
	OverallScore int            `json:"overall_score"`
	Passed       *bool          `json:"passed"`
	Issues       []string       `json:"issues"`
	Suggestions  []string       `json:"suggestions"`
}

func (g *Gate) semanticReview(ctx context.Context, documentText string, s *schema.Schema, department, documentType string) Result {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.reviewer.Complete(callCtx, llm.Request{
		System:      buildReviewPrompt(department, documentType, documentText),
		User:        "Review the document and return the JSON verdict now.",
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		g.log.Warn("semantic review call failed, falling back to heuristics", "error", err)
		return heuristicReview(documentText, s)
	}

	var review reviewResponse
	if err := llm.ParseJSON(raw, &review); err != nil {
		g.log.Warn("semantic review returned unparsable output, falling back to heuristics", "error", err)
		return heuristicReview(documentText, s)
	}

	passed := review.OverallScore >= 3
	if review.Passed != nil {
		passed = *review.Passed
	}
	return Result{
		Passed:       passed,
		Scores:       review.Scores,
		OverallScore: review.OverallScore,
		Issues:       review.Issues,
		Suggestions:  review.Suggestions,
	}
}

func columnsMatch(expected, actual []string) bool {
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
