package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtcode-go/vtcode/internal/diff"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/sandbox"
	"github.com/vtcode-go/vtcode/internal/tools"
)

func newTestExecutor(t *testing.T) (*Executor, *sandbox.Guard, *diff.Tracker) {
	t.Helper()
	root := t.TempDir()
	guard, err := sandbox.NewGuard(root)
	require.NoError(t, err)

	registry := tools.NewRegistry()
	registry.MustRegister(tools.NewReadFileTool(guard))
	registry.MustRegister(tools.NewWriteFileTool(guard))
	registry.MustRegister(tools.NewLsTool(guard))

	tracker := diff.NewTracker()
	exec, err := New(registry, tracker, 64)
	require.NoError(t, err)
	return exec, guard, tracker
}

func baseExecCtx() model.ExecutionContext {
	return model.ExecutionContext{
		TrustLevel: model.TrustStandard,
		Policy:     model.PolicyConfig{BasePolicy: model.PolicyAllow},
	}
}

func TestExecute_ToolNotFound(t *testing.T) {
	exec, _, _ := newTestExecutor(t)
	_, err := exec.Execute(context.Background(), "nonexistent", model.Args{}, baseExecCtx(), nil)
	require.Error(t, err)
}

func TestExecute_InvalidArgsFailsSchema(t *testing.T) {
	exec, _, _ := newTestExecutor(t)
	_, err := exec.Execute(context.Background(), "read_file", model.Args{}, baseExecCtx(), nil)
	require.Error(t, err)
}

func TestExecute_ReadFileAllowedAndCached(t *testing.T) {
	exec, guard, _ := newTestExecutor(t)
	require.NoError(t, os.WriteFile(filepath.Join(guard.Root(), "f.txt"), []byte("hi"), 0644))

	res, err := exec.Execute(context.Background(), "read_file", model.Args{"path": "f.txt"}, baseExecCtx(), nil)
	require.NoError(t, err)
	assert.False(t, res.WasCached)

	res2, err := exec.Execute(context.Background(), "read_file", model.Args{"path": "f.txt"}, baseExecCtx(), nil)
	require.NoError(t, err)
	assert.True(t, res2.WasCached)
}

func TestExecute_MutatingToolInvalidatesCacheAndRecordsDiff(t *testing.T) {
	exec, guard, tracker := newTestExecutor(t)
	require.NoError(t, os.WriteFile(filepath.Join(guard.Root(), "f.txt"), []byte("old"), 0644))

	_, err := exec.Execute(context.Background(), "read_file", model.Args{"path": "f.txt"}, baseExecCtx(), nil)
	require.NoError(t, err)

	writeCtx := baseExecCtx()
	writeCtx.Policy.BasePolicy = model.PolicyAllow
	res, err := exec.Execute(context.Background(), "write_file", model.Args{"path": "f.txt", "content": "new"}, writeCtx, nil)
	require.NoError(t, err)
	assert.False(t, res.Value.IsError)

	assert.True(t, tracker.HasChanges())

	readAgain, err := exec.Execute(context.Background(), "read_file", model.Args{"path": "f.txt"}, baseExecCtx(), nil)
	require.NoError(t, err)
	assert.False(t, readAgain.WasCached)
	assert.Contains(t, readAgain.Value.Content, "new")
}

func TestExecute_NeedsApprovalDeniedByDefault(t *testing.T) {
	exec, _, _ := newTestExecutor(t)
	ctx := model.ExecutionContext{
		TrustLevel: model.TrustUntrusted,
		Policy:     model.PolicyConfig{BasePolicy: model.PolicyPrompt},
	}
	_, err := exec.Execute(context.Background(), "write_file", model.Args{"path": "x.txt", "content": "y"}, ctx, nil)
	require.Error(t, err)
}

type stubApprover struct{ state model.ApprovalState }

func (s stubApprover) RequestApproval(context.Context, string, model.Args, *tools.Preview) (model.ApprovalState, error) {
	return s.state, nil
}

func TestExecute_NeedsApprovalGrantedByApprover(t *testing.T) {
	exec, _, _ := newTestExecutor(t)
	ctx := model.ExecutionContext{
		TrustLevel: model.TrustUntrusted,
		Policy:     model.PolicyConfig{BasePolicy: model.PolicyPrompt},
	}
	res, err := exec.Execute(context.Background(), "write_file", model.Args{"path": "x.txt", "content": "y"}, ctx, stubApprover{state: model.ApprovalApproved})
	require.NoError(t, err)
	assert.False(t, res.Value.IsError)
}

func TestInvalidatePath_RemovesDescendantCacheEntries(t *testing.T) {
	exec, _, _ := newTestExecutor(t)
	exec.indexCacheKey("dir", "key-dir")
	exec.indexCacheKey("dir/f.txt", "key-file")
	exec.indexCacheKey("dir-other/f.txt", "key-unrelated")
	exec.cache.Add("key-dir", tools.Success("dir listing"))
	exec.cache.Add("key-file", tools.Success("file contents"))
	exec.cache.Add("key-unrelated", tools.Success("unrelated"))

	exec.invalidatePath("dir")

	_, ok := exec.cache.Get("key-dir")
	assert.False(t, ok)
	_, ok = exec.cache.Get("key-file")
	assert.False(t, ok)
	_, ok = exec.cache.Get("key-unrelated")
	assert.True(t, ok)
}

func TestEvaluatePolicy_PlanModeBlocksMutatingTool(t *testing.T) {
	def := model.ToolDefinition{Name: "write_file", BasePolicy: model.PolicyAllow, Mutating: true}
	ctx := model.ExecutionContext{Policy: model.PolicyConfig{PlanModeEnforced: true}}
	assert.Equal(t, model.ApprovalBlocked, evaluatePolicy(def, ctx))
}

func TestEvaluatePolicy_TrustBypassesPrompt(t *testing.T) {
	def := model.ToolDefinition{Name: "shell", BasePolicy: model.PolicyPrompt, Mutating: true}
	ctx := model.ExecutionContext{TrustLevel: model.TrustFull}
	assert.Equal(t, model.ApprovalPreApproved, evaluatePolicy(def, ctx))
}
