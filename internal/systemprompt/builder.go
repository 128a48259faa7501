// Package systemprompt builds the system prompt string the turn loop
// sends on every request, composing a base workspace-aware prompt with
// layered persona overrides and the coding-agent steering knobs spec.md
// §4.2 groups under "coding_agent_settings".
//
// Grounded on teacher pkg/engine/middleware/base_prompt.go
// (BasePromptMiddleware, the workspace-root-aware base prompt text) and
// persona.go (PersonaMiddleware's layered persona lookup: built-in
// default, then `~/.sea/<agent>/persona.md`, then
// `<project>/.sea/persona.md`, then `<workspace>/persona.md`, joined
// with `---` dividers), generalized from the teacher's BeforeTurn
// middleware hook (which mutates `api.State.SystemPrompt` once per
// turn) into a single pure Build function that cmd's session wiring
// calls once per session, since this module's Engine has no middleware
// chain.
package systemprompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vtcode-go/vtcode/internal/provider"
)

// DefaultPersona is the fallback persona block when no persona.md
// exists anywhere in the lookup chain.
const DefaultPersona = `## Assistant Persona

You are a precise, tool-using coding assistant. You:
- Investigate before acting: read relevant files before proposing changes.
- Use tools rather than guessing at file contents or command output.
- Report concrete status; ask only when a request is genuinely ambiguous.
- Keep responses proportional to the question asked.`

// Options configures one call to Build.
type Options struct {
	WorkspaceRoot string
	ProjectRoot   string
	AgentName     string
	// SessionSummary, if non-empty, is a prior compaction's digest
	// (internal/context.Manager's synthetic note), surfaced as a
	// context-handoff block ahead of the persona.
	SessionSummary string
	Agent          provider.CodingAgentSettings
}

// Build composes the full system prompt for a session: the workspace-
// aware base instructions, an optional context-handoff block, the
// layered persona, and the coding-agent steering knobs.
func Build(opts Options) string {
	var b strings.Builder

	b.WriteString(basePrompt(opts.WorkspaceRoot))
	b.WriteString("\n\n")

	if opts.SessionSummary != "" {
		fmt.Fprintf(&b, "--- CONTEXT HANDOFF ---\n%s\n--- END HANDOFF ---\n\n", opts.SessionSummary)
	}

	fmt.Fprintf(&b, "--- PERSONA ---\n%s\n--- END PERSONA ---\n", loadPersona(opts))

	if steering := agentSteering(opts.Agent); steering != "" {
		b.WriteString("\n\n")
		b.WriteString(steering)
	}

	return b.String()
}

// basePrompt is the workspace-anchoring instruction block every
// session gets regardless of persona or agent settings.
func basePrompt(workspaceRoot string) string {
	return fmt.Sprintf(`You are an interactive terminal coding agent with access to file, search,
and shell tools scoped to one workspace.

## Working Directory
Your working directory is: %s
Paths you pass to tools are relative to this directory; "." refers to it
directly.

## Working Style
Investigate before changing anything: read the files a task touches
before editing them. Prefer the smallest change that satisfies the
request. Report what you did, not a narration of your own reasoning.`, workspaceRoot)
}

// loadPersona layers the built-in default under, in increasing
// precedence, a user-level, project-level, and workspace-level
// persona.md, joined by divider lines (grounded verbatim on the
// teacher's PersonaMiddleware.loadPersona).
func loadPersona(opts Options) string {
	parts := []string{strings.TrimSpace(DefaultPersona)}

	if strings.TrimSpace(opts.AgentName) != "" {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			if s := readNonEmptyFile(filepath.Join(home, ".vtcode", opts.AgentName, "persona.md")); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if strings.TrimSpace(opts.ProjectRoot) != "" {
		if s := readNonEmptyFile(filepath.Join(opts.ProjectRoot, ".vtcode", "persona.md")); s != "" {
			parts = append(parts, s)
		}
	}
	if s := readNonEmptyFile(filepath.Join(opts.WorkspaceRoot, "persona.md")); s != "" {
		parts = append(parts, s)
	}

	return strings.Join(parts, "\n\n---\n\n")
}

func readNonEmptyFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// agentSteering renders the coding_agent_settings knobs (spec.md §4.2)
// into a trailing instruction block. Returns "" when none are set, so
// a request with default settings gets no extra block.
func agentSteering(a provider.CodingAgentSettings) string {
	var lines []string
	if a.Role != "" {
		lines = append(lines, fmt.Sprintf("Role: %s", a.Role))
	}
	if a.StrictGrounding {
		lines = append(lines, "Ground every claim in a tool result or file you have actually read this session; never assert file contents or command output from memory.")
	}
	if a.CharacterReinforce {
		lines = append(lines, "Stay in the role described above consistently across the whole session, including when corrected or challenged.")
	}
	if len(lines) == 0 {
		return ""
	}
	return "--- AGENT SETTINGS ---\n" + strings.Join(lines, "\n") + "\n--- END AGENT SETTINGS ---"
}
