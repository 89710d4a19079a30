package agent

import (
	"strings"
	"testing"
)

func TestBuildGenerationPrompt_IncludesConstraints(t *testing.T) {
	st := NewState("PM", "project charter", nil, compoundSchema())
	st.SupplementaryNotes = "1.2 Risks requires additional information; pending question: What risks?"

	prompt := buildGenerationPrompt(st)
	if !strings.Contains(prompt, "REQUIRED HEADINGS (verbatim)") {
		t.Error("heading constraint block missing")
	}
	if !strings.Contains(prompt, "- 1.1 Scope") || !strings.Contains(prompt, "- 1.2 Risks") {
		t.Error("required headings not enumerated")
	}
	if !strings.Contains(prompt, "SUPPLEMENTARY NOTES") {
		t.Error("supplementary notes block missing")
	}
	if !strings.Contains(prompt, "Department: PM") {
		t.Error("department not substituted")
	}
}

func TestBuildTableOnlyPrompt_ColumnRows(t *testing.T) {
	st := NewState("Sales", "price list", nil, tableOnlySchema())
	prompt := buildTableOnlyPrompt(st)
	if !strings.Contains(prompt, "| Item | Price |") {
		t.Error("column header row missing")
	}
	if !strings.Contains(prompt, "| --- | --- |") {
		t.Error("separator row missing")
	}
}

func TestBuildFixPrompt_FallbacksWhenNoIssues(t *testing.T) {
	st := NewState("PM", "project charter", nil, compoundSchema())
	st.GeneratedDocument = "# Doc"
	prompt := buildFixPrompt(st)
	if !strings.Contains(prompt, "No specific issues were itemized") {
		t.Error("issue fallback missing")
	}
	if !strings.Contains(prompt, "# Doc") {
		t.Error("current document missing from fix prompt")
	}
}

func TestBuildFixPrompt_ItemizesIssues(t *testing.T) {
	st := NewState("PM", "project charter", nil, compoundSchema())
	st.QualityIssues = []string{"Missing required section: \"1.2 Risks\""}
	st.QualitySuggestions = []string{"Add the missing sections"}
	prompt := buildFixPrompt(st)
	if !strings.Contains(prompt, "- Missing required section") {
		t.Error("issues not itemized")
	}
	if !strings.Contains(prompt, "- Add the missing sections") {
		t.Error("suggestions not itemized")
	}
}

func TestSupplementaryBlock_PriorSections(t *testing.T) {
	st := NewState("PM", "project charter", nil, compoundSchema())
	st.PriorSectionsText = "## Done Already\nText."
	block := supplementaryBlock(st)
	if !strings.Contains(block, "Do NOT repeat") {
		t.Error("prior sections directive missing")
	}
}
