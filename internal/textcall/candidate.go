// Package textcall recovers a structured tool call from free-form
// assistant text when a provider emits one as prose instead of a native
// tool-call message (spec.md §4.7).
//
// Transliterated from original_source/src/agent/runloop/text_tools.rs.
// The four accepted forms are tried, in order, against the raw text and
// then against each fenced code block found in it: shell-call sugar,
// a JSON tool object, a direct name(args) call, and a default_api.-prefixed
// call. The first segment and form that parses wins.
package textcall

import "strings"

// Candidate is a tool call recovered from text.
type Candidate struct {
	Name      string
	Arguments map[string]any
	Form      string
}

var shellCallPrefixes = []string{"shell", "default_api.shell"}

var directToolNames = []string{
	"run_terminal_cmd", "default_api.run_terminal_cmd", "bash", "default_api.bash",
}

var textualToolPrefix = "default_api."

// Detect tries every accepted form against text and, failing that,
// against each fenced code block it contains.
func Detect(text string) (Candidate, bool) {
	for _, segment := range segments(text) {
		if c, ok := detectShellCall(segment); ok {
			return c, true
		}
		if c, ok := detectJSONToolCall(segment); ok {
			return c, true
		}
		if c, ok := detectDirectToolCall(segment); ok {
			return c, true
		}
		if c, ok := detectPrefixedToolCall(segment); ok {
			return c, true
		}
	}
	return Candidate{}, false
}

// segments returns text itself followed by the content of every fenced
// code block within it, in order, so a model's explanation-plus-code-block
// response is checked both ways.
func segments(text string) []string {
	out := []string{text}
	out = append(out, codeFenceBodies(text)...)
	return out
}

func codeFenceBodies(text string) []string {
	var out []string
	lines := strings.Split(text, "\n")
	inFence := false
	var body []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				out = append(out, strings.Join(body, "\n"))
				body = nil
				inFence = false
			} else {
				inFence = true
			}
			continue
		}
		if inFence {
			body = append(body, line)
		}
	}
	return out
}
