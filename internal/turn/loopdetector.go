// Package turn drives the per-session interaction loop (spec.md §4.1):
// await input, build a provider request, await the response, dispatch any
// tool calls, and repeat until the inner loop yields. Grounded on teacher
// pkg/engine/runtime/turn_runner.go, the repo's largest file.
package turn

import "strings"

// LoopDetector maintains a sliding window of the last K assistant
// responses and declares a loop when two consecutive responses are
// text-equal after normalization (spec.md §4.9). Grounded on teacher
// pkg/engine/runtime/skill_router.go's normalizeForMatch
// (whitespace-collapse, lowercase), extended with a leading-bullet strip
// per spec.md's explicit wording.
type LoopDetector struct {
	window   int
	recent   []string
	lastNorm string
	hasLast  bool
}

// NewLoopDetector returns a detector keeping up to window responses of
// history. window <= 0 defaults to 2, the minimum needed to compare
// consecutive responses.
func NewLoopDetector(window int) *LoopDetector {
	if window <= 0 {
		window = 2
	}
	return &LoopDetector{window: window}
}

// Observe records one assistant response's text and reports whether it is
// a loop with the immediately preceding response.
func (d *LoopDetector) Observe(text string) bool {
	norm := normalizeForLoopMatch(text)

	d.recent = append(d.recent, norm)
	if len(d.recent) > d.window {
		d.recent = d.recent[len(d.recent)-d.window:]
	}

	loop := d.hasLast && norm != "" && norm == d.lastNorm
	d.lastNorm = norm
	d.hasLast = true
	return loop
}

// Reset clears the detector's history. Engine does not call it, so the
// history carries over from one RunTurn to the next.
func (d *LoopDetector) Reset() {
	d.recent = nil
	d.lastNorm = ""
	d.hasLast = false
}

var bulletLinePrefixes = []string{"- ", "* ", "• ", "+ "}

// normalizeForLoopMatch collapses whitespace, lowercases, and strips a
// leading markdown bullet from every line before rejoining, so
// "- Done." and "Done." compare equal.
func normalizeForLoopMatch(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, prefix := range bulletLinePrefixes {
			if stripped, ok := strings.CutPrefix(trimmed, prefix); ok {
				trimmed = stripped
				break
			}
		}
		lines[i] = trimmed
	}
	joined := strings.ToLower(strings.Join(lines, " "))
	return strings.Join(strings.Fields(joined), " ")
}
