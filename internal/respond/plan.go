package respond

import "strings"

const (
	planOpenTag  = "<proposed_plan>"
	planCloseTag = "</proposed_plan>"
)

// planExtraction is the result of pulling a <proposed_plan> block out of a
// response's text.
type planExtraction struct {
	StrippedText string
	PlanText     string
}

// extractProposedPlan finds the first <proposed_plan>...</proposed_plan>
// block in text, if any, and returns the text with that block removed
// alongside the block's trimmed inner content. Authored from spec.md
// §4.8 step 2's explicit tag syntax; the Rust original (plan_blocks.rs) is
// not present in the retrieved pack.
func extractProposedPlan(text string) planExtraction {
	start := strings.Index(text, planOpenTag)
	if start == -1 {
		return planExtraction{StrippedText: text}
	}
	afterOpen := start + len(planOpenTag)
	end := strings.Index(text[afterOpen:], planCloseTag)
	if end == -1 {
		return planExtraction{StrippedText: text}
	}
	planBody := text[afterOpen : afterOpen+end]
	afterClose := afterOpen + end + len(planCloseTag)

	stripped := text[:start] + text[afterClose:]
	return planExtraction{
		StrippedText: strings.TrimSpace(stripped),
		PlanText:     strings.TrimSpace(planBody),
	}
}
