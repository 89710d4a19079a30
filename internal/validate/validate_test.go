package validate

import (
	"strings"
	"testing"

	"docforge/internal/schema"
)

func compoundSchema() *schema.Schema {
	return &schema.Schema{
		Department:   "Engineering",
		DocumentName: "Project Charter",
		DocumentType: "project charter",
		Sections: []schema.Section{
			{
				Title: "1. Introduction",
				Kind:  schema.KindText,
				Order: 1,
				Subsections: []schema.Subsection{
					{Title: "1.1 Scope", Kind: schema.KindText, Order: 1},
					{Title: "1.2 Risks", Kind: schema.KindTable, Order: 2, Columns: []string{"Risk", "Impact", "Mitigation"}},
				},
			},
		},
	}
}

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"## 4.1 Budget & Costs", "budget costs"},
		{"Budget Costs", "budget costs"},
		{"#   2.3.1.   Risk   Register!", "risk register"},
		{"Scope", "scope"},
		{"1.1 Scope", "scope"},
		{"", ""},
		{"###", ""},
	}
	for _, tt := range tests {
		if got := NormalizeHeading(tt.in); got != tt.want {
			t.Errorf("NormalizeHeading(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeHeading_NumberingInvariant(t *testing.T) {
	variants := []string{"1.1 Scope", "Scope", "## Scope", "### 3. Scope", "scope"}
	for _, v := range variants {
		if got := NormalizeHeading(v); got != "scope" {
			t.Errorf("NormalizeHeading(%q) = %q, want %q", v, got, "scope")
		}
	}
}

func TestValidate_TableOnlySchemaReturnsNil(t *testing.T) {
	s := &schema.Schema{
		DocumentType: "price list",
		Sections: []schema.Section{
			{Kind: schema.KindTable, Columns: []string{"Item", "Price"}},
		},
	}
	if v := Validate("total garbage, no table at all", s); v != nil {
		t.Fatalf("expected nil violations for table-only schema, got %v", v)
	}
}

func TestValidate_CleanDocumentPasses(t *testing.T) {
	doc := strings.Join([]string{
		"# Project Charter",
		"",
		"## 1. Introduction",
		"",
		"### 1.1 Scope",
		"The scope covers everything.",
		"",
		"### 1.2 Risks",
		"",
		"| Risk | Impact | Mitigation |",
		"|------|--------|------------|",
		"| Delay | High | Buffer time |",
	}, "\n")

	violations := Validate(doc, compoundSchema())
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestValidate_MissingSection(t *testing.T) {
	doc := strings.Join([]string{
		"# Project Charter",
		"",
		"### 1.1 Scope",
		"The scope covers everything.",
	}, "\n")

	violations := Validate(doc, compoundSchema())
	var missing []Violation
	for _, v := range violations {
		if v.Kind == Missing {
			missing = append(missing, v)
		}
	}
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing violation, got %d: %v", len(missing), violations)
	}
	if missing[0].SectionTitle != "1.2 Risks" {
		t.Errorf("wrong section reported: %q", missing[0].SectionTitle)
	}
}

func TestValidate_ExtraSection(t *testing.T) {
	doc := strings.Join([]string{
		"## 1.1 Scope",
		"Text.",
		"",
		"## 1.2 Risks",
		"",
		"| Risk | Impact | Mitigation |",
		"|------|--------|------------|",
		"",
		"## Appendix of Wild Ideas",
		"Should not be here.",
	}, "\n")

	violations := Validate(doc, compoundSchema())
	var extra []Violation
	for _, v := range violations {
		if v.Kind == Extra {
			extra = append(extra, v)
		}
	}
	if len(extra) != 1 {
		t.Fatalf("expected 1 extra violation, got %d: %v", len(extra), violations)
	}
	if !strings.Contains(extra[0].Message, "Appendix of Wild Ideas") {
		t.Errorf("message should name the offending heading: %q", extra[0].Message)
	}
}

func TestValidate_ParentAndDocumentHeadingsAllowed(t *testing.T) {
	// The document title, document type, and parent section titles are
	// organizational headings, not violations.
	doc := strings.Join([]string{
		"# Project Charter",
		"## Introduction",
		"### Scope",
		"Text.",
		"### Risks",
		"| Risk | Impact | Mitigation |",
		"|------|--------|------------|",
	}, "\n")

	violations := Validate(doc, compoundSchema())
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestValidate_TableMissingUnderHeading(t *testing.T) {
	doc := strings.Join([]string{
		"### 1.1 Scope",
		"Text.",
		"",
		"### 1.2 Risks",
		"Just prose where a table should be.",
	}, "\n")

	violations := Validate(doc, compoundSchema())
	var mismatches []Violation
	for _, v := range violations {
		if v.Kind == TableMismatch {
			mismatches = append(mismatches, v)
		}
	}
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 table mismatch, got %d: %v", len(mismatches), violations)
	}
	if mismatches[0].SectionTitle != "1.2 Risks" {
		t.Errorf("wrong section reported: %q", mismatches[0].SectionTitle)
	}
}

func TestValidate_TableWrongColumns(t *testing.T) {
	doc := strings.Join([]string{
		"### 1.1 Scope",
		"Text.",
		"",
		"### 1.2 Risks",
		"",
		"| Danger | Severity |",
		"|--------|----------|",
	}, "\n")

	violations := Validate(doc, compoundSchema())
	found := false
	for _, v := range violations {
		if v.Kind == TableMismatch && strings.Contains(v.Message, "wrong table columns") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected wrong-columns table mismatch, got %v", violations)
	}
}

func TestValidate_TableColumnsCaseInsensitive(t *testing.T) {
	doc := strings.Join([]string{
		"### 1.1 Scope",
		"Text.",
		"",
		"### 1.2 Risks",
		"",
		"| RISK | impact | Mitigation |",
		"|------|--------|------------|",
	}, "\n")

	violations := Validate(doc, compoundSchema())
	if len(violations) != 0 {
		t.Fatalf("column case must not matter, got %v", violations)
	}
}

func TestSplitTableRow(t *testing.T) {
	got := SplitTableRow("| Risk | Impact | Mitigation |")
	want := []string{"Risk", "Impact", "Mitigation"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractHeadings(t *testing.T) {
	doc := "# Title\n\nBody text.\n\n## Second\nMore.\n"
	headings := ExtractHeadings(doc)
	if len(headings) != 2 {
		t.Fatalf("expected 2 headings, got %d", len(headings))
	}
	if headings[0].Level != 1 || headings[0].Text != "Title" || headings[0].Line != 0 {
		t.Errorf("first heading: %+v", headings[0])
	}
	if headings[1].Level != 2 || headings[1].Text != "Second" || headings[1].Line != 4 {
		t.Errorf("second heading: %+v", headings[1])
	}
}
