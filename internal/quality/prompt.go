package quality

import "strings"

const reviewPromptTemplate = `You are a senior document quality reviewer for SaaS organizations. Your job is to evaluate whether a generated document meets professional standards.

Department: {department}
Document Type: {document_type}

## DOCUMENT TO REVIEW

{document}

## REVIEW CRITERIA

Score EACH of these criteria from 1-5 (1=terrible, 5=excellent):

1. **completeness** — Does the document cover all expected sections for a {document_type}?
2. **professionalism** — Does it read like an industry-grade document? No placeholder text?
3. **depth** — Are sections substantive (not just 1-2 sentences)?
4. **actionability** — Does it contain concrete, specific details?
5. **structure** — Is the Markdown well-formatted with proper headings, lists, tables?

## OUTPUT FORMAT

Return your review in this EXACT JSON format (no commentary before or after):

{
    "scores": {
        "completeness": <1-5>,
        "professionalism": <1-5>,
        "depth": <1-5>,
        "actionability": <1-5>,
        "structure": <1-5>
    },
    "overall_score": <1-5>,
    "passed": <true if overall_score >= 3, else false>,
    "issues": ["issue 1", "issue 2"],
    "suggestions": ["suggestion 1", "suggestion 2"]
}`

func buildReviewPrompt(department, documentType, documentText string) string {
	r := strings.NewReplacer(
		"{department}", department,
		"{document_type}", documentType,
		"{document}", documentText,
	)
	return r.Replace(reviewPromptTemplate)
}
