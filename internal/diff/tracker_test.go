package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vtcode-go/vtcode/internal/model"
)

func TestTracker_RecordsSingleAdd(t *testing.T) {
	tr := NewTracker()
	tr.Record("a.go", model.AddChange("package a\n"))

	changes := tr.Changes()
	assert.True(t, changes["a.go"].IsAdd())
}

func TestMerge_AddThenUpdate_StaysAddWithLatestContent(t *testing.T) {
	tr := NewTracker()
	tr.Record("a.go", model.AddChange("v1"))
	tr.Record("a.go", model.UpdateChange("v1", "v2"))

	got := tr.Changes()["a.go"]
	assert.True(t, got.IsAdd())
	assert.Equal(t, "v2", got.Content)
}

func TestMerge_AddThenDelete_Cancels(t *testing.T) {
	tr := NewTracker()
	tr.Record("a.go", model.AddChange("v1"))
	tr.Record("a.go", model.DeleteChange("v1"))

	_, ok := tr.Changes()["a.go"]
	assert.False(t, ok)
	assert.False(t, tr.HasChanges())
}

func TestMerge_UpdateThenUpdate_SpansFirstOldToLastNew(t *testing.T) {
	tr := NewTracker()
	tr.Record("a.go", model.UpdateChange("v0", "v1"))
	tr.Record("a.go", model.UpdateChange("v1", "v2"))

	got := tr.Changes()["a.go"]
	assert.True(t, got.IsUpdate())
	assert.Equal(t, "v0", got.OldContent)
	assert.Equal(t, "v2", got.NewContent)
}

func TestMerge_UpdateThenDelete_BecomesDeleteOfOriginal(t *testing.T) {
	tr := NewTracker()
	tr.Record("a.go", model.UpdateChange("v0", "v1"))
	tr.Record("a.go", model.DeleteChange("v1"))

	got := tr.Changes()["a.go"]
	assert.True(t, got.IsDelete())
	assert.Equal(t, "v0", got.OriginalContent)
}

func TestMerge_DeleteThenAdd_BecomesUpdate(t *testing.T) {
	tr := NewTracker()
	tr.Record("a.go", model.DeleteChange("v0"))
	tr.Record("a.go", model.AddChange("v1"))

	got := tr.Changes()["a.go"]
	assert.True(t, got.IsUpdate())
	assert.Equal(t, "v0", got.OldContent)
	assert.Equal(t, "v1", got.NewContent)
}

func TestAttribution_AppliedWhenUnset(t *testing.T) {
	tr := NewTracker()
	tr.SetAttribution(model.AIAttribution("claude", "anthropic"))
	tr.Record("a.go", model.AddChange("v1"))
	tr.ClearAttribution()
	tr.Record("b.go", model.AddChange("v1"))

	changes := tr.Changes()
	if assert.NotNil(t, changes["a.go"].Attribution) {
		assert.Equal(t, model.ContributorAI, changes["a.go"].Attribution.ContributorType)
	}
	assert.Nil(t, changes["b.go"].Attribution)
}

func TestAttribution_ExplicitWins(t *testing.T) {
	tr := NewTracker()
	tr.SetAttribution(model.AIAttribution("claude", "anthropic"))
	tr.Record("a.go", model.AddChange("v1").WithAttribution(model.HumanAttribution()))

	got := tr.Changes()["a.go"]
	if assert.NotNil(t, got.Attribution) {
		assert.Equal(t, model.ContributorHuman, got.Attribution.ContributorType)
	}
}

func TestBeginEndPatch_MergesPendingIntoCommitted(t *testing.T) {
	tr := NewTracker()
	tr.BeginPatch()
	tr.Record("a.go", model.AddChange("v1"))
	assert.False(t, tr.HasChanges())
	assert.NotNil(t, tr.PendingChanges())

	tr.EndPatch()
	assert.True(t, tr.HasChanges())
	assert.Nil(t, tr.PendingChanges())
}

func TestEndPatchWithoutBegin_IsNoop(t *testing.T) {
	tr := NewTracker()
	tr.EndPatch()
	assert.False(t, tr.HasChanges())
}

func TestClear_RemovesEverything(t *testing.T) {
	tr := NewTracker()
	tr.Record("a.go", model.AddChange("v1"))
	tr.Clear()
	assert.False(t, tr.HasChanges())
}

func TestUnifiedDiff_IsDeterministicallyOrdered(t *testing.T) {
	tr := NewTracker()
	tr.Record("z.go", model.AddChange("z\n"))
	tr.Record("a.go", model.AddChange("a\n"))

	out, err := tr.UnifiedDiff()
	assert.NoError(t, err)
	assert.Less(t, indexOf(out, "a.go"), indexOf(out, "z.go"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestNormalizedModelID(t *testing.T) {
	a := model.AIAttribution("claude-opus", "anthropic")
	assert.Equal(t, "anthropic/claude-opus", a.NormalizedModelID())

	b := model.AIAttribution("anthropic/claude-opus", "anthropic")
	assert.Equal(t, "anthropic/claude-opus", b.NormalizedModelID())

	assert.Equal(t, "", model.UnknownAttribution().NormalizedModelID())
}
