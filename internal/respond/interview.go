package respond

import (
	"fmt"
	"strings"
)

const maxInterviewQuestions = 3
const maxAnalysisHints = 8

// buildInterviewArgs scans text for an interview-style question list and,
// if found, returns the request_user_input tool-call arguments to
// synthesize. Grounded on response_processing.rs's
// build_interview_args_from_text.
func buildInterviewArgs(text string) (map[string]any, bool) {
	questions := extractInterviewQuestions(text)
	if len(questions) == 0 {
		if synthesized, ok := synthesizeAlignmentQuestion(text); ok {
			questions = append(questions, synthesized)
		}
	}
	if len(questions) == 0 {
		return nil, false
	}

	focusArea := inferFocusArea(text)
	hints := extractAnalysisHints(text)

	entries := make([]any, 0, len(questions))
	for i, q := range questions {
		entry := map[string]any{
			"id":       fmt.Sprintf("question_%d", i+1),
			"header":   fmt.Sprintf("Q%d", i+1),
			"question": q,
		}
		if focusArea != "" {
			entry["focus_area"] = focusArea
		}
		if len(hints) > 0 {
			entry["analysis_hints"] = hints
		}
		entries = append(entries, entry)
	}
	return map[string]any{"questions": entries}, true
}

// extractInterviewQuestions pulls numbered or bulleted question lines out
// of text, falling back to treating the whole trimmed text as one question
// when it looks like a single inline question.
func extractInterviewQuestions(text string) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		if len(questions) >= maxInterviewQuestions {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if q, ok := parseNumberedQuestion(trimmed); ok {
			questions = append(questions, q)
			continue
		}
		if q, ok := parseBulletQuestion(trimmed); ok {
			questions = append(questions, q)
		}
	}

	if len(questions) == 0 {
		trimmed := strings.TrimSpace(text)
		normalized := normalizeQuestionLine(trimmed)
		if normalized != "" && strings.Contains(normalized, "?") && len(normalized) <= 200 {
			questions = append(questions, normalized)
		}
	}

	if len(questions) > maxInterviewQuestions {
		questions = questions[:maxInterviewQuestions]
	}
	return questions
}

func parseNumberedQuestion(line string) (string, bool) {
	digits := 0
	for _, r := range line {
		if r < '0' || r > '9' {
			break
		}
		digits++
	}
	if digits == 0 {
		return "", false
	}
	rest := strings.TrimLeft(line[digits:], " \t")
	if rest == "" {
		return "", false
	}
	punct, size := rest[0], 1
	if punct != '.' && punct != ')' {
		return "", false
	}
	remainder := strings.TrimLeft(rest[size:], " \t")
	normalized := normalizeQuestionLine(remainder)
	if strings.Contains(normalized, "?") {
		return normalized, true
	}
	return "", false
}

var bulletPrefixes = []string{"- ", "* ", "• "}

func parseBulletQuestion(line string) (string, bool) {
	for _, prefix := range bulletPrefixes {
		if stripped, ok := strings.CutPrefix(line, prefix); ok {
			candidate := normalizeQuestionLine(strings.TrimSpace(stripped))
			if strings.Contains(candidate, "?") {
				return candidate, true
			}
		}
	}
	return "", false
}

// normalizeQuestionLine strips a leading blockquote marker and repeatedly
// peels matching emphasis/quote wrapping (**bold**, __bold__, `code`,
// *italic*, _italic_, "quoted", 'quoted').
func normalizeQuestionLine(line string) string {
	current := strings.TrimSpace(line)
	if stripped, ok := strings.CutPrefix(current, ">"); ok {
		current = strings.TrimLeft(stripped, " \t")
	}

	pairs := [][2]string{
		{"**", "**"}, {"__", "__"}, {"`", "`"}, {"*", "*"}, {"_", "_"}, {"\"", "\""}, {"'", "'"},
	}
	for changed := true; changed; {
		changed = false
		for _, p := range pairs {
			if stripped, ok := stripWrapping(current, p[0], p[1]); ok {
				current = stripped
				changed = true
				break
			}
		}
	}
	return strings.TrimSpace(current)
}

func stripWrapping(line, prefix, suffix string) (string, bool) {
	if len(line) <= len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, suffix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix) : len(line)-len(suffix)]), true
}

var alignmentTriggers = []string{
	"need clarification", "need your input", "before finalizing", "before finalising",
	"open questions", "for alignment", "key decisions", "decision points",
}

func synthesizeAlignmentQuestion(text string) (string, bool) {
	lower := strings.ToLower(text)
	if !containsAny(lower, alignmentTriggers) {
		return "", false
	}
	if containsAny(lower, []string{"system prompt", "prompt architecture", "prompt variants"}) {
		return "Which system prompt improvement area should we prioritize first?", true
	}
	if strings.Contains(lower, "plan mode") {
		return "Which plan mode improvement area should we prioritize first?", true
	}
	return "Which improvement area should we prioritize first?", true
}

func inferFocusArea(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, []string{"system prompt", "prompt architecture", "prompt variants"}):
		return "system_prompt"
	case strings.Contains(lower, "plan mode"):
		return "plan_mode"
	case containsAny(lower, []string{"verification", "test coverage", "validation"}):
		return "verification"
	default:
		return ""
	}
}

var analysisHintKeywords = []string{
	"redundan", "overlap", "missing", "failure", "timeout", "fallback", "loop",
	"optimiz", "token", "prompt", "harness", "doc", "verification", "test",
	"quality", "risk", "constraint", "circular",
}

func extractAnalysisHints(text string) []string {
	var hints []string
	for _, line := range strings.Split(text, "\n") {
		if len(hints) >= maxAnalysisHints {
			break
		}
		normalized := normalizeHintLine(line)
		if len(normalized) < 12 || strings.Contains(normalized, "?") {
			continue
		}
		lower := strings.ToLower(normalized)
		if !containsAny(lower, analysisHintKeywords) {
			continue
		}
		duplicate := false
		for _, existing := range hints {
			if strings.EqualFold(existing, normalized) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		hints = append(hints, normalized)
	}
	return hints
}

func normalizeHintLine(line string) string {
	current := strings.TrimSpace(line)
	for _, prefix := range bulletPrefixes {
		if stripped, ok := strings.CutPrefix(current, prefix); ok {
			current = strings.TrimLeft(stripped, " \t")
			break
		}
	}

	digits := 0
	for _, r := range current {
		if r < '0' || r > '9' {
			break
		}
		digits++
	}
	if digits > 0 {
		rest := strings.TrimLeft(current[digits:], " \t")
		if stripped, ok := strings.CutPrefix(rest, "."); ok {
			current = strings.TrimLeft(stripped, " \t")
		} else if stripped, ok := strings.CutPrefix(rest, ")"); ok {
			current = strings.TrimLeft(stripped, " \t")
		}
	}

	return normalizeQuestionLine(current)
}
