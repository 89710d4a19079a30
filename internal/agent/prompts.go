package agent

import (
	"fmt"
	"strings"

	"docforge/internal/schema"
)

const generationPromptTemplate = `You are a senior SaaS document specialist with 15+ years of experience creating audit-ready, executive-level business documents.

Industry: SaaS
Department: {department}
Document Type: {document_type}

## YOUR TASK

Generate a complete, polished {document_type} document. The final output must read as if it was written by a seasoned professional, not a template fill-in.

## CRITICAL WRITING RULES

### Content Elevation
- Do NOT copy-paste the user's answers verbatim. Transform them into polished, professional prose.
- If an answer is brief or vague, expand it with relevant industry context and concrete details that logically follow from it.
- If an answer is poorly written, rewrite it in clear, professional language while preserving the core meaning.
- Every section must feel substantial: at least 2-3 sentences, with bullet points, tables, or numbered lists where they add clarity.
- Add relevant metrics, KPIs, or success criteria where appropriate, inferring reasonable ones from context.

### Structural Rules (STRICT ENFORCEMENT)
- Follow the sections from the schema EXACTLY.
- Do NOT add extra sections or introductions not listed in the schema.
- Do NOT skip, rename, merge, or renumber sections.
- When a section is marked as type: table, output a valid Markdown table. No prose, no lists, just the table.
- When a section is marked as type: text, output professional prose.
- If the user provided no answer for a section, infer reasonable content from the department, document type, and other answers.

### Absolute Prohibitions
- Do NOT use placeholders like [Company Name], [TBD], [Insert here]
- Do NOT use vague filler like "This section covers...", "As applicable...", "etc."
- Do NOT use Lorem ipsum or any dummy text
- Do NOT leave any section with only 1 sentence
- Do NOT describe what a table should contain; output the actual table with data rows

## DOCUMENT SCHEMA

The document must follow this structure. Cover EVERY section listed below:

{required_section}

{heading_constraints}

## QUESTIONS & ANSWERS

The user provided these answers. Use them as the foundation, but elevate, expand, and professionalize every answer:

{questions_and_answers}

{supplementary_content}

## OUTPUT FORMAT

- Output ONLY valid Markdown, no commentary, no explanations
- Start with a level-1 heading: # {document_type}
- Use ## for major sections, ### for subsections
- When the schema specifies type: table, output a REAL Markdown table with the exact columns and realistic data rows

Generate the complete document now.`

const tableOnlyPromptTemplate = `You are a data-table generator for {department} documents.

Your job: produce a single Markdown table with EXACTLY these columns:

{columns_header}
{columns_separator}

### Rules
1. Output ONLY the document heading and the Markdown table, nothing else.
2. The first line of output must be: # {document_type}
3. Immediately after the heading, output the Markdown table.
4. Use the EXACT column headers listed above. Do NOT rename, reorder, or add columns.
5. Populate the table with 4-12 realistic rows based on the user's answers.
6. If the user's answers don't provide enough data, generate plausible, professional entries that match the {department} domain.

### Absolute Prohibitions
- NO introductions, descriptions, or explanatory paragraphs
- NO extra sections such as Introduction, Scope, or Overview
- NO bullet-point lists describing what the table should contain
- NO commentary before or after the table

### User's Answers
{questions_and_answers}

{supplementary_content}

Generate the table now. Output NOTHING except the heading and table.`

const fixPromptTemplate = `You are a senior SaaS document specialist revising a document that failed quality review.

Department: {department}
Document Type: {document_type}

## CURRENT DOCUMENT

{generated_document}

## ISSUES FOUND

{issues}

## SUGGESTIONS

{suggestions}

## YOUR TASK

Rewrite the document resolving EVERY listed issue:
- Keep all content that is already correct.
- Expand any thin section to at least 3 substantive sentences.
- Remove every placeholder token and replace it with concrete specifics.
- Keep the exact section structure required by the schema: no additions, renames, merges, or omissions.
- Output ONLY the corrected Markdown document, no commentary.

Produce the corrected document now.`

// buildGenerationPrompt assembles the compound-schema prompt, including
// the hard heading-constraint block that is the primary lever reducing
// structural violations before generation happens.
func buildGenerationPrompt(st *State) string {
	r := strings.NewReplacer(
		"{department}", st.Department,
		"{document_type}", st.DocumentType,
		"{required_section}", schema.FormatSchema(st.Schema),
		"{heading_constraints}", headingConstraintBlock(st.Schema),
		"{questions_and_answers}", schema.FormatQA(st.Items),
		"{supplementary_content}", supplementaryBlock(st),
	)
	return r.Replace(generationPromptTemplate)
}

func buildTableOnlyPrompt(st *State) string {
	columns := st.Schema.TableColumns()
	r := strings.NewReplacer(
		"{department}", st.Department,
		"{document_type}", st.DocumentType,
		"{columns_header}", schema.PipeRow(columns),
		"{columns_separator}", schema.PipeSeparator(len(columns)),
		"{questions_and_answers}", schema.FormatQA(st.Items),
		"{supplementary_content}", supplementaryBlock(st),
	)
	return r.Replace(tableOnlyPromptTemplate)
}

func buildFixPrompt(st *State) string {
	r := strings.NewReplacer(
		"{department}", st.Department,
		"{document_type}", st.DocumentType,
		"{generated_document}", st.GeneratedDocument,
		"{issues}", bulletList(st.QualityIssues, "- No specific issues were itemized; improve overall quality."),
		"{suggestions}", bulletList(st.QualitySuggestions, "- Add concrete specifics and professional framing throughout."),
	)
	return r.Replace(fixPromptTemplate)
}

// headingConstraintBlock enumerates every required heading verbatim
// with an explicit no-deviation instruction.
func headingConstraintBlock(s *schema.Schema) string {
	units := s.RequiredUnits()
	if len(units) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## REQUIRED HEADINGS (verbatim)\n\n")
	sb.WriteString("The document MUST contain exactly these headings, word for word:\n")
	for _, u := range units {
		sb.WriteString(fmt.Sprintf("- %s\n", u.Title))
	}
	sb.WriteString("No additions, renames, merges, or omissions are permitted.")
	return sb.String()
}

func supplementaryBlock(st *State) string {
	var parts []string
	if strings.TrimSpace(st.SupplementaryNotes) != "" {
		parts = append(parts,
			"## SUPPLEMENTARY NOTES (sections not covered by Q&A)\n\n"+
				"Use this additional context for sections the user's answers did not directly address:\n\n"+
				st.SupplementaryNotes)
	}
	if strings.TrimSpace(st.PriorSectionsText) != "" {
		parts = append(parts,
			"## PREVIOUSLY GENERATED SECTIONS\n\n"+
				"These sections already exist. Do NOT repeat their content:\n\n"+
				st.PriorSectionsText)
	}
	return strings.Join(parts, "\n\n")
}

func bulletList(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
