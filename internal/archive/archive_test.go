package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtcode-go/vtcode/internal/model"
)

func TestStore_PutGetRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	snap := &Snapshot{
		SessionID:     "sess-1",
		DisplayID:     "friendly-name",
		WorkspaceRoot: "/workspace",
		Model:         "gpt-5",
		Provider:      "openai",
		Messages: []model.Message{
			{Role: model.RoleUser, Text: "hello"},
			{Role: model.RoleAssistant, Text: "hi", ReasoningDetails: []byte(`{"k":"v"}`)},
		},
		Budget:        model.ContextBudget{MaxContextTokens: 100000, EstimatedUsage: 500},
		CreatedAtUnix: 1000,
		UpdatedAtUnix: 1001,
	}

	require.NoError(t, store.Put(context.Background(), snap))

	loaded, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, snap.DisplayID, loaded.DisplayID)
	assert.Len(t, loaded.Messages, 2)
	assert.Equal(t, `{"k":"v"}`, string(loaded.Messages[1].ReasoningDetails))
}

func TestStore_GetMissingReturnsErrNotFound(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListOrdersMostRecentFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), &Snapshot{SessionID: "older"}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.Put(context.Background(), &Snapshot{SessionID: "newer"}))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "newer", ids[0])
}

func TestStore_PathValidationRejectsEscape(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), &Snapshot{SessionID: "../../etc/passwd"})
	assert.ErrorIs(t, err, ErrWorkspaceEscape)
}

func TestStore_DelRemovesSnapshot(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), &Snapshot{SessionID: "temp"}))
	require.NoError(t, store.Del(context.Background(), "temp"))

	_, err = store.Get(context.Background(), "temp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Resume(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), &Snapshot{SessionID: "resumable", Model: "claude"}))
	snap, err := store.Resume(context.Background(), "resumable")
	require.NoError(t, err)
	assert.Equal(t, "claude", snap.Model)
}
