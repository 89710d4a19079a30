package schema

import (
	"fmt"
	"strings"
)

// FormatQA renders answered Q&A items into the Markdown block consumed
// by generation and analysis prompts. Items are grouped under their
// category heading; unanswered items are skipped.
func FormatQA(items []QAItem) string {
	var sb strings.Builder
	currentCategory := ""

	for _, item := range items {
		if !item.HasAnswer() {
			continue
		}
		category := item.Category
		if category == "" {
			category = "General"
		}
		if category != currentCategory {
			currentCategory = category
			sb.WriteString("\n### " + category + "\n")
		}
		sb.WriteString("**Q:** " + item.Question + "\n")
		sb.WriteString("**A:** " + item.AnswerText() + "\n\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// FormatSchema renders a schema into a human-readable outline of the
// expected document structure, with explicit table directives so the
// model outputs real Markdown tables instead of describing them.
func FormatSchema(s *Schema) string {
	if s == nil || len(s.Sections) == 0 {
		return "No schema sections available"
	}

	var sb strings.Builder
	for _, sec := range s.Sections {
		if sec.Kind == KindTable && len(sec.Subsections) == 0 {
			title := strings.TrimSpace(sec.Title)
			if title == "" {
				title = s.TableTitle()
			}
			sb.WriteString("## " + title + "\n\n")
			sb.WriteString("TABLE FORMAT REQUIRED — this entire document is a Markdown table.\n")
			sb.WriteString("Column headers: " + PipeRow(sec.Columns) + "\n")
			sb.WriteString("Output a real Markdown table with these exact columns and realistic data rows.\n")
			sb.WriteString("Do NOT describe the table — output the table itself.\n\n")
			continue
		}

		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = "Untitled Section"
		}
		sb.WriteString("## " + title + "\n")

		for _, sub := range sec.Subsections {
			if sub.Kind == KindTable && len(sub.Columns) > 0 {
				sb.WriteString(fmt.Sprintf("  - %s — TABLE, columns: %s\n", sub.Title, PipeRow(sub.Columns)))
				sb.WriteString("    (output a real Markdown table with these columns and realistic rows)\n")
			} else {
				sb.WriteString(fmt.Sprintf("  - %s (type: %s)\n", sub.Title, sub.Kind))
			}
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// PipeRow renders cells as a Markdown table row.
func PipeRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

// PipeSeparator renders the Markdown table separator row for n columns.
func PipeSeparator(n int) string {
	cells := make([]string, n)
	for i := range cells {
		cells[i] = "---"
	}
	return PipeRow(cells)
}
