package cmd

import (
	"path/filepath"
	"testing"
)

func TestPromptRoots_OrderAndPrecedence(t *testing.T) {
	projectRoot := t.TempDir()
	workspaceRoot := filepath.Join(projectRoot, "workspace")

	home := t.TempDir()
	t.Setenv("HOME", home)

	origAgentFlag := agentFlag
	agentFlag = "test-agent"
	t.Cleanup(func() { agentFlag = origAgentFlag })

	roots := promptRoots(workspaceRoot)

	want := []string{
		filepath.Join(workspaceRoot, ".vtcode", "prompts"),
		filepath.Join(projectRoot, ".vtcode", "prompts"),
		filepath.Join(home, ".vtcode", "test-agent", "prompts"),
	}

	if len(roots) != len(want) {
		t.Fatalf("roots length mismatch: got=%d want=%d\nroots=%v", len(roots), len(want), roots)
	}
	for i := range want {
		if roots[i] != want[i] {
			t.Fatalf("roots[%d] mismatch: got=%q want=%q\nroots=%v", i, roots[i], want[i], roots)
		}
	}
}

func TestResolveWorkspaceRoot_CreatesWorkspaceDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got, err := resolveWorkspaceRoot()
	if err != nil {
		t.Fatalf("resolveWorkspaceRoot: %v", err)
	}
	want := filepath.Join(dir, "workspace")
	if realWant, err := filepath.EvalSymlinks(want); err == nil {
		want = realWant
	}
	if got != want {
		t.Fatalf("resolveWorkspaceRoot() = %q, want %q", got, want)
	}
}
