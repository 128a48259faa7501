package systemprompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtcode-go/vtcode/internal/provider"
)

func TestBuild_IncludesWorkspaceAndDefaultPersona(t *testing.T) {
	out := Build(Options{WorkspaceRoot: "/tmp/work"})
	assert.Contains(t, out, "/tmp/work")
	assert.Contains(t, out, "Assistant Persona")
}

func TestBuild_IncludesSessionSummaryHandoff(t *testing.T) {
	out := Build(Options{WorkspaceRoot: "/tmp/work", SessionSummary: "we added a login form"})
	assert.Contains(t, out, "CONTEXT HANDOFF")
	assert.Contains(t, out, "we added a login form")
}

func TestBuild_WorkspacePersonaOverridesAppend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "persona.md"), []byte("Be extremely terse."), 0o644))

	out := Build(Options{WorkspaceRoot: dir})
	assert.Contains(t, out, "Assistant Persona")
	assert.Contains(t, out, "Be extremely terse.")
}

func TestBuild_AgentSteeringOmittedWhenUnset(t *testing.T) {
	out := Build(Options{WorkspaceRoot: "/tmp/work"})
	assert.NotContains(t, out, "AGENT SETTINGS")
}

func TestBuild_AgentSteeringIncludesRoleAndGrounding(t *testing.T) {
	out := Build(Options{
		WorkspaceRoot: "/tmp/work",
		Agent:         provider.CodingAgentSettings{Role: "backend reviewer", StrictGrounding: true},
	})
	assert.Contains(t, out, "Role: backend reviewer")
	assert.Contains(t, out, "Ground every claim")
}
